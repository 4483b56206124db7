package metrics

import (
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	cacheHits    prom.Counter
	cacheMisses  prom.Counter
	queryTotal   *prom.CounterVec
	querySeconds *prom.HistogramVec
}

func (p *promRecorder) IncCacheHit()  { p.cacheHits.Inc() }
func (p *promRecorder) IncCacheMiss() { p.cacheMisses.Inc() }

func (p *promRecorder) IncQueryTotal(kind string, success bool) {
	p.queryTotal.WithLabelValues(kind, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveQuerySeconds(kind string, success bool, seconds float64) {
	p.querySeconds.WithLabelValues(kind, fmt.Sprintf("%t", success)).Observe(seconds)
}

// EnablePrometheus installs a Prometheus-backed recorder and serves /metrics
// on addr. Pass an empty addr to register the recorder without a listener.
func EnablePrometheus(addr string) error {
	registry := prom.NewRegistry()
	p := &promRecorder{
		cacheHits: prom.NewCounter(prom.CounterOpts{
			Name: "muninn_cache_hits_total",
			Help: "Retrieval cache hits",
		}),
		cacheMisses: prom.NewCounter(prom.CounterOpts{
			Name: "muninn_cache_misses_total",
			Help: "Retrieval cache misses",
		}),
		queryTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "muninn_queries_total",
			Help: "Total graph queries by kind",
		}, []string{"kind", "success"}),
		querySeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "muninn_query_seconds",
			Help:    "Graph query duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"kind", "success"}),
	}
	registry.MustRegister(p.cacheHits, p.cacheMisses, p.queryTotal, p.querySeconds)
	SetRecorder(p)

	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() { _ = http.ListenAndServe(addr, mux) }()
	return nil
}
