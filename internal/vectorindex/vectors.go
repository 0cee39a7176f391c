package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
)

const (
	updateVectorSQL = `UPDATE vectors SET content = ?, embedding = vector32(?), updated_at = CURRENT_TIMESTAMP
        WHERE namespace = ? AND id = ?`
	insertVectorSQL = `INSERT INTO vectors (namespace, id, content, embedding) VALUES (?, ?, ?, vector32(?))`
	countSQL        = `SELECT COUNT(*) FROM vectors WHERE namespace = ?`
	listIDsSQL      = `SELECT id FROM vectors WHERE namespace = ?`
	deleteOneSQL    = `DELETE FROM vectors WHERE namespace = ? AND id = ?`

	exactSearchSQL = `SELECT v.id, v.content, vector_distance_cos(v.embedding, vector32(?)) AS distance
        FROM vectors v
        WHERE v.namespace = ?
        ORDER BY distance ASC, v.id ASC
        LIMIT ?`
	annSearchSQL = `WITH vt AS (
            SELECT id FROM vector_top_k('idx_vectors_embedding', vector32(?), ?)
        )
        SELECT v.id, v.content, vector_distance_cos(v.embedding, vector32(?)) AS distance
        FROM vt JOIN vectors v ON v.rowid = vt.id
        WHERE v.namespace = ?
        ORDER BY distance ASC, v.id ASC
        LIMIT ?`
)

// Upsert writes each entry, updating rows that already exist. The batch is
// applied in a single transaction.
func (x *LibSQLIndex) Upsert(ctx context.Context, namespace string, entries []apptype.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if namespace == "" {
		return fmt.Errorf("namespace must be a non-empty string")
	}
	if err := validateEntries(x.dims, entries); err != nil {
		return err
	}
	done := metrics.TimeOp("index_upsert")
	success := false
	defer func() { done(success) }()

	updateStmt, err := x.preparedStmt(ctx, updateVectorSQL)
	if err != nil {
		return err
	}
	insertStmt, err := x.preparedStmt(ctx, insertVectorSQL)
	if err != nil {
		return err
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer tx.Rollback()

	update := tx.StmtContext(ctx, updateStmt)
	insert := tx.StmtContext(ctx, insertStmt)
	for _, e := range entries {
		vec, sanitized := vectorToString(e.Vector)
		if sanitized > 0 {
			x.logger.Warn("non-finite vector components replaced with 0",
				zap.String("id", e.ID), zap.Int("count", sanitized))
		}
		res, err := update.ExecContext(ctx, e.Text, vec, namespace, e.ID)
		if err != nil {
			return fmt.Errorf("failed to update vector %q: %w", e.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected for update: %w", err)
		}
		if affected == 0 {
			if _, err := insert.ExecContext(ctx, namespace, e.ID, e.Text, vec); err != nil {
				return fmt.Errorf("failed to insert vector %q: %w", e.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	x.observePool()
	success = true
	return nil
}

// Query ranks the namespace's vectors by cosine similarity to vector.
func (x *LibSQLIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]apptype.Match, error) {
	if err := validateQuery(x.dims, namespace, vector); err != nil {
		return nil, err
	}
	topK = normalizeTopK(topK)
	done := metrics.TimeOp("index_query")
	success := false
	defer func() { done(success) }()

	total, err := x.Count(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, fmt.Errorf("namespace %q: %w", namespace, apptype.ErrNamespaceNotFound)
	}

	vec, _ := vectorToString(vector)
	var matches []apptype.Match
	if x.useANN() {
		matches, err = x.queryANN(ctx, namespace, vec, topK)
		if err != nil && strings.Contains(strings.ToLower(err.Error()), "no such function: vector_top_k") {
			x.disableANN()
			matches, err = nil, nil
		} else if err != nil {
			return nil, fmt.Errorf("failed ANN search: %w", err)
		}
		// the ANN candidate set is global; fall back when the namespace filter starved it
		if len(matches) < topK && len(matches) < total {
			matches = nil
		}
	}
	if matches == nil {
		matches, err = x.queryExact(ctx, namespace, vec, topK)
		if err != nil {
			low := strings.ToLower(err.Error())
			if strings.Contains(low, "no such function: vector_distance_cos") || strings.Contains(low, "no such function: vector32") {
				return nil, fmt.Errorf("vector search functions are unavailable in this libSQL build: %w", err)
			}
			return nil, fmt.Errorf("failed to execute similarity search: %w", err)
		}
	}
	success = true
	return matches, nil
}

func (x *LibSQLIndex) queryANN(ctx context.Context, namespace, vec string, topK int) ([]apptype.Match, error) {
	stmt, err := x.preparedStmt(ctx, annSearchSQL)
	if err != nil {
		return nil, err
	}
	overfetch := x.config.ANNOverfetch
	if overfetch <= 0 {
		overfetch = 1
	}
	rows, err := stmt.QueryContext(ctx, vec, topK*overfetch, vec, namespace, topK)
	if err != nil {
		return nil, err
	}
	return x.scanMatches(rows)
}

func (x *LibSQLIndex) queryExact(ctx context.Context, namespace, vec string, topK int) ([]apptype.Match, error) {
	stmt, err := x.preparedStmt(ctx, exactSearchSQL)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, vec, namespace, topK)
	if err != nil {
		return nil, err
	}
	return x.scanMatches(rows)
}

func (x *LibSQLIndex) scanMatches(rows *sql.Rows) ([]apptype.Match, error) {
	defer rows.Close()
	matches := make([]apptype.Match, 0)
	for rows.Next() {
		var (
			m        apptype.Match
			content  sql.NullString
			distance float64
		)
		if err := rows.Scan(&m.ID, &content, &distance); err != nil {
			x.logger.Warn("failed to scan search result row", zap.Error(err))
			continue
		}
		m.Text = content.String
		m.Score = 1 - distance
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}
	return matches, nil
}

// Count returns the number of vectors under namespace.
func (x *LibSQLIndex) Count(ctx context.Context, namespace string) (int, error) {
	stmt, err := x.preparedStmt(ctx, countSQL)
	if err != nil {
		return 0, err
	}
	var n int
	if err := stmt.QueryRowContext(ctx, namespace).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count namespace %q: %w", namespace, err)
	}
	return n, nil
}

// DeleteNamespace drops every vector under namespace.
func (x *LibSQLIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	done := metrics.TimeOp("index_delete_namespace")
	success := false
	defer func() { done(success) }()
	if _, err := x.db.ExecContext(ctx, "DELETE FROM vectors WHERE namespace = ?", namespace); err != nil {
		return fmt.Errorf("failed to delete namespace %q: %w", namespace, err)
	}
	success = true
	return nil
}

// Prune deletes the namespace's vectors whose ids are not listed in keep.
func (x *LibSQLIndex) Prune(ctx context.Context, namespace string, keep []string) (int, error) {
	done := metrics.TimeOp("index_prune")
	success := false
	defer func() { done(success) }()

	listStmt, err := x.preparedStmt(ctx, listIDsSQL)
	if err != nil {
		return 0, err
	}
	rows, err := listStmt.QueryContext(ctx, namespace)
	if err != nil {
		return 0, fmt.Errorf("failed to list namespace %q: %w", namespace, err)
	}
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan id: %w", err)
		}
		if _, ok := keepSet[id]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		success = true
		return 0, nil
	}

	delStmt, err := x.preparedStmt(ctx, deleteOneSQL)
	if err != nil {
		return 0, err
	}
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin prune transaction: %w", err)
	}
	defer tx.Rollback()
	del := tx.StmtContext(ctx, delStmt)
	for _, id := range stale {
		if _, err := del.ExecContext(ctx, namespace, id); err != nil {
			return 0, fmt.Errorf("failed to delete vector %q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	success = true
	return len(stale), nil
}

// Get returns the stored entry, decoding its F32_BLOB embedding.
func (x *LibSQLIndex) Get(ctx context.Context, namespace, id string) (*apptype.IndexEntry, error) {
	var (
		content sql.NullString
		blob    []byte
	)
	err := x.db.QueryRowContext(ctx,
		"SELECT content, embedding FROM vectors WHERE namespace = ? AND id = ?", namespace, id).Scan(&content, &blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("vector %q not found in namespace %q", id, namespace)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vector %q: %w", id, err)
	}
	vec, err := x.ExtractVector(blob)
	if err != nil {
		return nil, err
	}
	return &apptype.IndexEntry{ID: id, Vector: vec, Text: content.String}, nil
}

// ExtractVector decodes a little-endian F32_BLOB.
func (x *LibSQLIndex) ExtractVector(embedding []byte) ([]float32, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	expected := x.dims * 4
	if len(embedding) != expected {
		return nil, fmt.Errorf("invalid embedding size: expected %d bytes for %d-dimensional vector, got %d", expected, x.dims, len(embedding))
	}
	vector := make([]float32, x.dims)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(embedding[i*4:]))
	}
	return vector, nil
}
