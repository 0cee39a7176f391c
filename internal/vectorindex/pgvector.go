package vectorindex

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
)

// PGVectorIndex keeps vectors in PostgreSQL with the pgvector extension.
type PGVectorIndex struct {
	db     *sql.DB
	dims   int
	logger *zap.Logger
}

// OpenPGVector connects to cfg.PostgresURL and creates the graph_vectors table.
func OpenPGVector(ctx context.Context, cfg *Config, logger *zap.Logger) (*PGVectorIndex, error) {
	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("PGVECTOR_URL is required for the pgvector backend")
	}
	if cfg.EmbeddingDims <= 0 || cfg.EmbeddingDims > 16000 {
		return nil, fmt.Errorf("EMBEDDING_DIMS must be between 1 and 16000 for pgvector, got %d", cfg.EmbeddingDims)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w: %w", apptype.ErrConnection, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w: %w", apptype.ErrConnection, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	schema := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS graph_vectors (
            namespace TEXT NOT NULL,
            id TEXT NOT NULL,
            content TEXT NOT NULL DEFAULT '',
            embedding vector(%d) NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (namespace, id)
        )`, cfg.EmbeddingDims),
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate pgvector schema: %w", err)
		}
	}
	return &PGVectorIndex{db: db, dims: cfg.EmbeddingDims, logger: logger}, nil
}

func (p *PGVectorIndex) Dimensions() int { return p.dims }

func (p *PGVectorIndex) Close() error { return p.db.Close() }

func (p *PGVectorIndex) Upsert(ctx context.Context, namespace string, entries []apptype.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if namespace == "" {
		return fmt.Errorf("namespace must be a non-empty string")
	}
	if err := validateEntries(p.dims, entries); err != nil {
		return err
	}
	done := metrics.TimeOp("index_upsert")
	success := false
	defer func() { done(success) }()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO graph_vectors (namespace, id, content, embedding)
		 VALUES ($1, $2, $3, $4::vector)
		 ON CONFLICT (namespace, id) DO UPDATE
		 SET content = EXCLUDED.content, embedding = EXCLUDED.embedding, updated_at = now()`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		vec, sanitized := vectorToString(e.Vector)
		if sanitized > 0 {
			p.logger.Warn("non-finite vector components replaced with 0",
				zap.String("id", e.ID), zap.Int("count", sanitized))
		}
		if _, err := stmt.ExecContext(ctx, namespace, e.ID, e.Text, vec); err != nil {
			return fmt.Errorf("upsert vector %q: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

func (p *PGVectorIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]apptype.Match, error) {
	if err := validateQuery(p.dims, namespace, vector); err != nil {
		return nil, err
	}
	topK = normalizeTopK(topK)
	done := metrics.TimeOp("index_query")
	success := false
	defer func() { done(success) }()

	total, err := p.Count(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, fmt.Errorf("namespace %q: %w", namespace, apptype.ErrNamespaceNotFound)
	}

	vec, _ := vectorToString(vector)
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, content, 1 - (embedding <=> $1::vector) AS similarity
		 FROM graph_vectors
		 WHERE namespace = $2
		 ORDER BY embedding <=> $1::vector, id
		 LIMIT $3`, vec, namespace, topK)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	matches := make([]apptype.Match, 0, topK)
	for rows.Next() {
		var m apptype.Match
		if err := rows.Scan(&m.ID, &m.Text, &m.Score); err != nil {
			return nil, fmt.Errorf("scan similar: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	success = true
	return matches, nil
}

func (p *PGVectorIndex) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM graph_vectors WHERE namespace = $1`, namespace).Scan(&n); err != nil {
		return 0, fmt.Errorf("count namespace %q: %w", namespace, err)
	}
	return n, nil
}

func (p *PGVectorIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM graph_vectors WHERE namespace = $1`, namespace)
	return err
}

func (p *PGVectorIndex) Prune(ctx context.Context, namespace string, keep []string) (int, error) {
	if keep == nil {
		keep = []string{}
	}
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM graph_vectors WHERE namespace = $1 AND NOT (id = ANY($2))`, namespace, pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("prune namespace %q: %w", namespace, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
