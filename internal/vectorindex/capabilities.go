package vectorindex

import (
	"context"
	"strings"
	"time"
)

type capFlags struct {
	checked    bool
	vectorTopK bool
}

// detectCapabilities probes for vector_top_k. In-memory URLs skip the probe
// and use exact search.
func (x *LibSQLIndex) detectCapabilities(ctx context.Context) {
	x.capMu.Lock()
	defer x.capMu.Unlock()
	if x.caps.checked {
		return
	}
	x.caps.checked = true
	if strings.Contains(x.config.URL, "mode=memory") {
		x.caps.vectorTopK = false
		return
	}
	zero, _ := vectorToString(make([]float32, x.dims))
	ctx2, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	rows, err := x.db.QueryContext(ctx2, "SELECT id FROM vector_top_k('idx_vectors_embedding', vector32(?), 1) LIMIT 1", zero)
	if rows != nil {
		rows.Close()
	}
	x.caps.vectorTopK = err == nil
}

func (x *LibSQLIndex) useANN() bool {
	x.capMu.RLock()
	defer x.capMu.RUnlock()
	return x.caps.vectorTopK
}

func (x *LibSQLIndex) disableANN() {
	x.capMu.Lock()
	x.caps.vectorTopK = false
	x.capMu.Unlock()
}
