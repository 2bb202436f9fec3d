package index

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "total_recall_embedding_cache_hits_total",
		Help: "Content hashes served from the persisted embedding cache.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "total_recall_embedding_cache_misses_total",
		Help: "Content hashes that required a new embedding call.",
	})
	snapshotRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "total_recall_index_snapshot_rebuilds_total",
		Help: "Number of times a new snapshot was materialised.",
	})
	sessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "total_recall_index_sessions_evicted_total",
		Help: "Sessions dropped from the index by memory-budget enforcement.",
	})
	cacheLockWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "total_recall_embedding_cache_lock_wait_seconds_total",
		Help: "Cumulative time spent waiting on the cross-process embedding cache lock.",
	})
	cacheLockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "total_recall_embedding_cache_lock_timeouts_total",
		Help: "Saves that gave up waiting on the embedding cache lock.",
	})
)

// Metrics records index-level counters. A nil *Metrics is safe to call.
type Metrics struct{}

// NewMetrics returns a Metrics bound to the package's registered collectors.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	cacheHits.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	cacheMisses.Inc()
}

func (m *Metrics) RecordSnapshotRebuild() {
	if m == nil {
		return
	}
	snapshotRebuilds.Inc()
}

func (m *Metrics) RecordEviction(sessionCount int) {
	if m == nil {
		return
	}
	sessionsEvicted.Add(float64(sessionCount))
}

func (m *Metrics) RecordLockWait(wait time.Duration) {
	if m == nil {
		return
	}
	cacheLockWaitSeconds.Add(wait.Seconds())
}

func (m *Metrics) RecordLockTimeout() {
	if m == nil {
		return
	}
	cacheLockTimeouts.Inc()
}
