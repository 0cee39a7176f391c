//go:build !noprom

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimeOp_RecordsOnSwappedRecorder(t *testing.T) {
	p := newPromRecorder()
	SetRecorder(p)
	defer SetRecorder(nil)

	done := TimeOp("index_upsert")
	done(true)
	TimeOp("index_upsert")(false)
	TimeTool("combined_query")(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.opTotal.WithLabelValues("index_upsert", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.opTotal.WithLabelValues("index_upsert", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.toolTotal.WithLabelValues("combined_query", "true")))
}

func TestRecorderCountersAndGauges(t *testing.T) {
	p := newPromRecorder()
	p.IncStmtCacheHit("prepare")
	p.IncStmtCacheMiss("prepare")
	p.IncStmtCacheMiss("prepare")
	p.ObservePoolStats(3, 2)
	p.IncEmbeddingCache(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.stmtCache.WithLabelValues("prepare", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.stmtCache.WithLabelValues("prepare", "miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.poolInUse))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.poolIdle))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.embedLookups.WithLabelValues("hit")))
}

func TestSetRecorderNilFallsBackToNoop(t *testing.T) {
	SetRecorder(nil)
	assert.NotPanics(t, func() { TimeOp("anything")(true) })
}
