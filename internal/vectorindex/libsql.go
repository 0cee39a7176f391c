package vectorindex

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/tursodatabase/go-libsql"
	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
)

// LibSQLIndex keeps vectors in a libSQL table with an F32_BLOB column.
// Queries use the vector_top_k ANN index when the server provides it and an
// exact vector_distance_cos scan otherwise.
type LibSQLIndex struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
	dims   int

	stmtMu    sync.RWMutex
	stmtCache map[string]*sql.Stmt

	capMu sync.RWMutex
	caps  capFlags
}

// OpenLibSQL connects to cfg.URL, creates the schema and probes capabilities.
func OpenLibSQL(ctx context.Context, cfg *Config, logger *zap.Logger) (*LibSQLIndex, error) {
	if cfg.EmbeddingDims <= 0 || cfg.EmbeddingDims > 65536 {
		return nil, fmt.Errorf("EMBEDDING_DIMS must be between 1 and 65536 inclusive, got %d", cfg.EmbeddingDims)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("libsql", connURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connector: %w: %w", apptype.ErrConnection, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach vector index: %w: %w", apptype.ErrConnection, err)
	}

	idx := &LibSQLIndex{
		config:    cfg,
		db:        db,
		logger:    logger,
		dims:      cfg.EmbeddingDims,
		stmtCache: make(map[string]*sql.Stmt),
	}
	if err := idx.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleSec > 0 {
		db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleSec) * time.Second)
	}
	if cfg.ConnMaxLifeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeSec) * time.Second)
	}

	// An existing table wins over the environment so old data stays queryable.
	if dbDims := detectDBEmbeddingDims(ctx, db); dbDims > 0 && dbDims != idx.dims {
		logger.Warn("embedding dims mismatch, adopting table dims",
			zap.Int("table_dims", dbDims), zap.Int("config_dims", idx.dims))
		idx.dims = dbDims
	}

	idx.detectCapabilities(ctx)
	idx.observePool()
	return idx, nil
}

func connURL(cfg *Config) string {
	if strings.HasPrefix(cfg.URL, "file:") || cfg.AuthToken == "" {
		return cfg.URL
	}
	if u, err := url.Parse(cfg.URL); err == nil {
		q := u.Query()
		q.Set("authToken", cfg.AuthToken)
		u.RawQuery = q.Encode()
		return u.String()
	}
	sep := "?"
	if strings.Contains(cfg.URL, "?") {
		sep = "&"
	}
	return cfg.URL + sep + "authToken=" + url.QueryEscape(cfg.AuthToken)
}

// initialize creates tables and indexes if they don't exist
func (x *LibSQLIndex) initialize(ctx context.Context) error {
	done := metrics.TimeOp("index_initialize")
	success := false
	defer func() { done(success) }()

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()

	for _, statement := range dynamicSchema(x.dims) {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

// detectDBEmbeddingDims reads F32_BLOB(n) from the vectors DDL, falling back
// to the byte length of a stored embedding.
func detectDBEmbeddingDims(ctx context.Context, db *sql.DB) int {
	var sqlText string
	_ = db.QueryRowContext(ctx, "SELECT sql FROM sqlite_master WHERE type='table' AND name='vectors'").Scan(&sqlText)
	if low := strings.ToLower(sqlText); low != "" {
		if i := strings.Index(low, "f32_blob("); i >= 0 {
			rest := low[i+len("f32_blob("):]
			if end := strings.Index(rest, ")"); end > 0 {
				if n, err := strconv.Atoi(strings.TrimSpace(rest[:end])); err == nil && n > 0 {
					return n
				}
			}
		}
	}
	var blob []byte
	_ = db.QueryRowContext(ctx, "SELECT embedding FROM vectors LIMIT 1").Scan(&blob)
	if len(blob) > 0 && len(blob)%4 == 0 {
		return len(blob) / 4
	}
	return 0
}

func (x *LibSQLIndex) observePool() {
	stats := x.db.Stats()
	metrics.Default().ObservePoolStats(stats.InUse, stats.Idle)
}

// Dimensions returns the vector length of the vectors table.
func (x *LibSQLIndex) Dimensions() int { return x.dims }

// Close releases cached statements and the connection pool.
func (x *LibSQLIndex) Close() error {
	x.closeStatements()
	return x.db.Close()
}
