//go:build !noprom

package metrics

import (
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	opTotal      *prom.CounterVec
	opSeconds    *prom.HistogramVec
	toolTotal    *prom.CounterVec
	toolSeconds  *prom.HistogramVec
	stmtCache    *prom.CounterVec
	poolInUse    prom.Gauge
	poolIdle     prom.Gauge
	embedLookups *prom.CounterVec
}

func (p *promRecorder) IncOpTotal(op string, success bool) {
	p.opTotal.WithLabelValues(op, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveOpSeconds(op string, success bool, seconds float64) {
	p.opSeconds.WithLabelValues(op, fmt.Sprintf("%t", success)).Observe(seconds)
}

func (p *promRecorder) IncToolTotal(tool string, success bool) {
	p.toolTotal.WithLabelValues(tool, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveToolSeconds(tool string, success bool, seconds float64) {
	p.toolSeconds.WithLabelValues(tool, fmt.Sprintf("%t", success)).Observe(seconds)
}

func (p *promRecorder) IncStmtCacheHit(kind string) {
	p.stmtCache.WithLabelValues(kind, "hit").Inc()
}

func (p *promRecorder) IncStmtCacheMiss(kind string) {
	p.stmtCache.WithLabelValues(kind, "miss").Inc()
}

func (p *promRecorder) ObservePoolStats(inUse, idle int) {
	p.poolInUse.Set(float64(inUse))
	p.poolIdle.Set(float64(idle))
}

func (p *promRecorder) IncEmbeddingCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.embedLookups.WithLabelValues(result).Inc()
}

func newPromRecorder() *promRecorder {
	return &promRecorder{
		opTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "graphvec_ops_total",
			Help: "Total number of store, index and workflow operations",
		}, []string{"op", "success"}),
		opSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "graphvec_op_seconds",
			Help:    "Operation duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"op", "success"}),
		toolTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "graphvec_tool_calls_total",
			Help: "Total number of tool and HTTP handler calls",
		}, []string{"tool", "success"}),
		toolSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "graphvec_tool_call_seconds",
			Help:    "Tool handler duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"tool", "success"}),
		stmtCache: prom.NewCounterVec(prom.CounterOpts{
			Name: "graphvec_stmt_cache_total",
			Help: "Prepared statement cache lookups",
		}, []string{"kind", "result"}),
		poolInUse: prom.NewGauge(prom.GaugeOpts{
			Name: "graphvec_db_pool_in_use",
			Help: "Vector index connections in use",
		}),
		poolIdle: prom.NewGauge(prom.GaugeOpts{
			Name: "graphvec_db_pool_idle",
			Help: "Idle vector index connections",
		}),
		embedLookups: prom.NewCounterVec(prom.CounterOpts{
			Name: "graphvec_embedding_cache_total",
			Help: "Embedding cache lookups",
		}, []string{"result"}),
	}
}

func (p *promRecorder) collectors() []prom.Collector {
	return []prom.Collector{
		p.opTotal, p.opSeconds, p.toolTotal, p.toolSeconds,
		p.stmtCache, p.poolInUse, p.poolIdle, p.embedLookups,
	}
}

func enablePrometheus(addr string) error {
	registry := prom.NewRegistry()
	p := newPromRecorder()
	registry.MustRegister(p.collectors()...)
	SetRecorder(p)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() { _ = http.ListenAndServe(addr, mux) }()
	return nil
}
