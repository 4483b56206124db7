// Package metrics provides a minimal instrumentation interface with a no-op
// default and an optional Prometheus-backed implementation.
package metrics

import (
	"sync"
	"time"
)

// Recorder defines the metrics surface used across the engine.
type Recorder interface {
	IncCacheHit()
	IncCacheMiss()
	IncQueryTotal(kind string, success bool)
	ObserveQuerySeconds(kind string, success bool, seconds float64)
}

type noopRecorder struct{}

func (noopRecorder) IncCacheHit()                              {}
func (noopRecorder) IncCacheMiss()                             {}
func (noopRecorder) IncQueryTotal(string, bool)                {}
func (noopRecorder) ObserveQuerySeconds(string, bool, float64) {}

var (
	recMu    sync.RWMutex
	recorder Recorder = noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	recorder = r
}

// TimeQuery times a query and records it on completion.
//
//	done := metrics.TimeQuery("traversal")
//	...
//	done(err == nil)
func TimeQuery(kind string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		r := Default()
		r.IncQueryTotal(kind, success)
		r.ObserveQuerySeconds(kind, success, time.Since(start).Seconds())
	}
}
