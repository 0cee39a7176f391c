package workflow

import (
	"os"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/vectorindex"
)

// DefaultSeedStatement creates the two-person toy graph.
const DefaultSeedStatement = "CREATE (a:Person {name: 'Nob'})-[:KNOWS]->(b:Person {name: 'Biru'})"

// Config holds the workflow settings
type Config struct {
	Namespace     string
	TopK          int
	SeedStatement string
	IDScheme      string
	// Prune removes index entries for edges no longer in the graph after a sync.
	Prune bool
}

// NewConfig creates a new Config from environment variables
func NewConfig() *Config {
	ns := os.Getenv("NAMESPACE")
	if ns == "" {
		ns = vectorindex.DefaultNamespace
	}
	topK := vectorindex.DefaultTopK
	if v := os.Getenv("TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			topK = n
		}
	}
	seed := os.Getenv("SEED_STATEMENT")
	if seed == "" {
		seed = DefaultSeedStatement
	}
	scheme := strings.ToLower(strings.TrimSpace(os.Getenv("ID_SCHEME")))
	if scheme == "" {
		scheme = SchemeContent
	}
	prune := os.Getenv("SYNC_PRUNE")
	return &Config{
		Namespace:     ns,
		TopK:          topK,
		SeedStatement: seed,
		IDScheme:      scheme,
		Prune:         strings.EqualFold(prune, "true") || prune == "1",
	}
}
