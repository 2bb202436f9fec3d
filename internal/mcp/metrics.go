package mcp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "total_recall_mcp_tool_invocations_total",
		Help: "Total number of MCP tool invocations.",
	}, []string{"tool"})

	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "total_recall_mcp_tool_duration_seconds",
		Help:    "Duration of MCP tool invocations.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}, []string{"tool"})

	toolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "total_recall_mcp_tool_errors_total",
		Help: "Total number of MCP tool errors.",
	}, []string{"tool"})
)

// Metrics records tool-call counters and latencies. A nil *Metrics is safe
// to call.
type Metrics struct{}

// NewMetrics returns a Metrics bound to the package's registered collectors.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// startTool records an invocation and returns a function to call on return,
// passing the error (if any) the tool call produced.
func (m *Metrics) startTool(tool string) func(*error) {
	start := time.Now()
	if m == nil {
		return func(*error) {}
	}
	toolInvocations.WithLabelValues(tool).Inc()
	return func(errp *error) {
		toolDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
		if errp != nil && *errp != nil {
			toolErrors.WithLabelValues(tool).Inc()
		}
	}
}
