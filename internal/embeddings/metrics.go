package embeddings

import (
	"time"

	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	embeddingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "total_recall_embedding_generation_duration_seconds",
		Help:    "Duration of embedding generation calls, labelled by model and operation.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}, []string{"model", "operation"})

	embeddingBatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "total_recall_embedding_batch_size",
		Help:    "Number of texts per embedding batch request.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	}, []string{"model", "operation"})

	embeddingErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "total_recall_embedding_errors_total",
		Help: "Total embedding generation errors, labelled by model and operation.",
	}, []string{"model", "operation"})
)

// Metrics records embedding-generation instrumentation. It has no state of
// its own; the underlying collectors are package-level so every Metrics
// value shares one registration.
type Metrics struct{}

// NewMetrics returns a Metrics recorder. Collectors are registered with the
// default Prometheus registerer exactly once via promauto, so constructing
// many providers never double-registers.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordGeneration records one embedding call's duration, batch size, and
// whether it failed.
func (m *Metrics) RecordGeneration(model, operation string, duration time.Duration, batchSize int, err error) {
	if m == nil {
		return
	}
	embeddingDuration.WithLabelValues(model, operation).Observe(duration.Seconds())
	if batchSize > 0 {
		embeddingBatchSize.WithLabelValues(model, operation).Observe(float64(batchSize))
	}
	if err != nil {
		embeddingErrors.WithLabelValues(model, operation).Inc()
	}
}
