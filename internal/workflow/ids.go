package workflow

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

// ID scheme names accepted by IDSchemeByName.
const (
	SchemeContent    = "content"
	SchemePositional = "positional"
)

// IDFunc assigns the index id of the record at position i of a sync.
type IDFunc func(i int, rec apptype.GraphRecord) string

// ContentIDs derives a stable id from the record's subject, relationship type
// and object, so re-syncing the same edge overwrites its entry.
func ContentIDs(_ int, rec apptype.GraphRecord) string {
	key := rec.Subject.Name
	if rec.Complete() {
		key = rec.Subject.Name + "|" + rec.Relationship.Type + "|" + rec.Object.Name
	}
	sum := sha256.Sum256([]byte(key))
	return "rel:" + base64.RawURLEncoding.EncodeToString(sum[:12])
}

// PositionalIDs numbers records "0", "1", ... in fetch order.
func PositionalIDs(i int, _ apptype.GraphRecord) string {
	return strconv.Itoa(i)
}

// IDSchemeByName resolves "content" or "positional".
func IDSchemeByName(name string) (IDFunc, error) {
	switch name {
	case "", SchemeContent:
		return ContentIDs, nil
	case SchemePositional:
		return PositionalIDs, nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q", name)
	}
}
