// Package vectorindex stores embedding vectors under namespaces and answers
// cosine nearest-neighbour queries.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

const (
	// DefaultNamespace is the namespace graph edges are synced into.
	DefaultNamespace = "neo4j-data"
	// DefaultTopK applies when a query asks for zero or fewer matches.
	DefaultTopK = 5
)

// Index is a namespaced vector store. Implementations are safe for concurrent use.
type Index interface {
	// Upsert writes or overwrites entries. An empty slice is a no-op.
	Upsert(ctx context.Context, namespace string, entries []apptype.IndexEntry) error
	// Query returns up to topK matches ordered by descending cosine similarity.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]apptype.Match, error)
	// Count returns the number of entries stored under namespace.
	Count(ctx context.Context, namespace string) (int, error)
	// DeleteNamespace removes every entry under namespace.
	DeleteNamespace(ctx context.Context, namespace string) error
	// Prune removes entries under namespace whose id is not in keep and
	// reports how many were removed.
	Prune(ctx context.Context, namespace string, keep []string) (int, error)
	// Dimensions is the vector length the index accepts.
	Dimensions() int
	Close() error
}

var (
	_ Index = (*LibSQLIndex)(nil)
	_ Index = (*PGVectorIndex)(nil)
	_ Index = (*MemoryIndex)(nil)
)

// New opens the backend selected by cfg.Backend.
func New(ctx context.Context, cfg *Config, logger *zap.Logger) (Index, error) {
	switch cfg.Backend {
	case "", BackendLibSQL:
		return OpenLibSQL(ctx, cfg, logger)
	case BackendPGVector:
		return OpenPGVector(ctx, cfg, logger)
	case BackendMemory:
		return NewMemoryIndex(cfg.EmbeddingDims), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}

// validateEntries checks ids and vector lengths before anything is written.
func validateEntries(dims int, entries []apptype.IndexEntry) error {
	for _, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("index entry id must be a non-empty string")
		}
		if len(e.Vector) != dims {
			return fmt.Errorf("entry %q has %d dimensions, index has %d: %w", e.ID, len(e.Vector), dims, apptype.ErrDimensionMismatch)
		}
	}
	return nil
}

func validateQuery(dims int, namespace string, vector []float32) error {
	if namespace == "" {
		return fmt.Errorf("empty namespace: %w", apptype.ErrNamespaceNotFound)
	}
	if len(vector) != dims {
		return fmt.Errorf("query vector has %d dimensions, index has %d: %w", len(vector), dims, apptype.ErrDimensionMismatch)
	}
	return nil
}

func normalizeTopK(topK int) int {
	if topK <= 0 {
		return DefaultTopK
	}
	return topK
}

// vectorToString renders v in the "[a,b,c]" literal accepted by both
// vector32() and pgvector. Non-finite components become 0.
func vectorToString(v []float32) (string, int) {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	sanitized := 0
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			f = 0
			sanitized++
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), sanitized
}

// parseVectorString is the inverse of vectorToString.
func parseVectorString(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("invalid vector literal %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []float32{}, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
