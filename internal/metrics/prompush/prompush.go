// Package prompush adapts the metrics.Backend interface to a Prometheus
// Pushgateway. All Prometheus-specific dependencies stay inside this package
// so the transfer pipeline remains decoupled from the metrics system.
package prompush

import (
	"fmt"

	"dbfload/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend pushes transfer metrics to a Prometheus Pushgateway.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // dbfload_step_total
	stepDuration *prometheus.SummaryVec // dbfload_step_duration_seconds
	rowCounter   *prometheus.CounterVec // dbfload_rows_total
}

// NewBackend constructs a Pushgateway backend. jobName becomes the
// Pushgateway "job" grouping; gatewayURL is its base URL.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "dbfload"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbfload_step_total",
			Help: "Transfer step executions, partitioned by table, step, and status.",
		},
		[]string{"table", "step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "dbfload_step_duration_seconds",
			Help:       "Duration of transfer steps in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"table", "step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbfload_rows_total",
			Help: "Row-level counts per table and kind (read, written, errors).",
		},
		[]string{"table", "kind"},
	)

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, rowCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
	}, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "dbfload_step_total":
		b.stepCounter.WithLabelValues(labels["table"], labels["step"], labels["status"]).Add(delta)
	case "dbfload_rows_total":
		b.rowCounter.WithLabelValues(labels["table"], labels["kind"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "dbfload_step_duration_seconds" {
		return
	}
	b.stepDuration.WithLabelValues(labels["table"], labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
