package vectorindex

import (
	"os"
	"strconv"
	"strings"
)

// Supported values of VECTOR_BACKEND.
const (
	BackendLibSQL   = "libsql"
	BackendPGVector = "pgvector"
	BackendMemory   = "memory"
)

// Config holds the vector index configuration
type Config struct {
	Backend       string
	URL           string
	AuthToken     string
	PostgresURL   string
	EmbeddingDims int
	// Pool tuning (optional)
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int
	// ANNOverfetch multiplies topK for vector_top_k before the namespace filter.
	ANNOverfetch int
}

// NewConfig creates a new Config from environment variables
func NewConfig() *Config {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VECTOR_BACKEND")))
	if backend == "" {
		backend = BackendLibSQL
	}
	url := os.Getenv("LIBSQL_URL")
	if url == "" {
		url = "file:./graphvec.db"
	}
	return &Config{
		Backend:        backend,
		URL:            url,
		AuthToken:      os.Getenv("LIBSQL_AUTH_TOKEN"),
		PostgresURL:    os.Getenv("PGVECTOR_URL"),
		EmbeddingDims:  envInt("EMBEDDING_DIMS", 384),
		MaxOpenConns:   envInt("DB_MAX_OPEN_CONNS", 0),
		MaxIdleConns:   envInt("DB_MAX_IDLE_CONNS", 0),
		ConnMaxIdleSec: envInt("DB_CONN_MAX_IDLE_SEC", 0),
		ConnMaxLifeSec: envInt("DB_CONN_MAX_LIFETIME_SEC", 0),
		ANNOverfetch:   envInt("ANN_OVERFETCH", 10),
	}
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
