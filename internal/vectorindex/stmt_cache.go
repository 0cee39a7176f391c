package vectorindex

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
)

// preparedStmt returns a cached prepared statement for sqlText, preparing it on first use.
func (x *LibSQLIndex) preparedStmt(ctx context.Context, sqlText string) (*sql.Stmt, error) {
	x.stmtMu.RLock()
	stmt, ok := x.stmtCache[sqlText]
	x.stmtMu.RUnlock()
	if ok {
		metrics.Default().IncStmtCacheHit("prepare")
		return stmt, nil
	}
	metrics.Default().IncStmtCacheMiss("prepare")

	stmt, err := x.db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	x.stmtMu.Lock()
	if existing, ok := x.stmtCache[sqlText]; ok {
		// lost the race; keep the first one
		x.stmtMu.Unlock()
		stmt.Close()
		return existing, nil
	}
	x.stmtCache[sqlText] = stmt
	x.stmtMu.Unlock()
	return stmt, nil
}

func (x *LibSQLIndex) closeStatements() {
	x.stmtMu.Lock()
	defer x.stmtMu.Unlock()
	for k, stmt := range x.stmtCache {
		_ = stmt.Close()
		delete(x.stmtCache, k)
	}
}
