// Package metrics is a small, backend-agnostic layer for recording transfer
// metrics. The global backend defaults to a no-op, so instrumentation is
// always safe to call; a concrete system (Prometheus Pushgateway) lives in a
// subpackage and is installed by the CLI when requested.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal surface a metrics system has to provide.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style observation.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the current one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep records latency and success/failure for one stage of a transfer.
func RecordStep(table, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"table":  table,
		"step":   step,
		"status": status,
	}
	backend.IncCounter("dbfload_step_total", 1, lbls)
	backend.ObserveHistogram("dbfload_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the given table. Typical
// kinds are "read", "written", and "errors".
func RecordRows(table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("dbfload_rows_total", float64(delta), Labels{
		"table": table,
		"kind":  kind,
	})
}
