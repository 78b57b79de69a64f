// Package metrics records operational metrics of harvest runs through a
// pluggable backend.
//
// The default backend is a no-op, so every function here is safe to call
// when no metrics system is configured. Concrete systems (Prometheus
// Pushgateway, DogStatsD) live in subpackages and are installed with
// SetBackend.
package metrics

import (
	"time"

	"pudl/internal/metadata"
)

// Metric names emitted by this package.
const (
	StepTotal      = "pudl_step_total"
	StepDuration   = "pudl_step_duration_seconds"
	RecordsTotal   = "pudl_records_total"
	BatchesTotal   = "pudl_batches_total"
	GroupsTotal    = "pudl_harvest_groups_total"
	ResourcesTotal = "pudl_harvest_resources_total"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
	statusValid   = "valid"
	statusInvalid = "invalid"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
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

// RecordStep counts one execution of a run step (read, harvest, load, ...)
// and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments a record-level counter for the given job and kind,
// e.g. "read", "parse_errors" or "inserted".
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments a batch-level counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}

// RecordHarvest counts the key groups of one harvested resource, split into
// valid and invalid, and whether the resource as a whole passed. A nil
// report (harvest skipped, or aggregation not run) records nothing.
func RecordHarvest(job, resource string, report *metadata.Report) {
	if report == nil {
		return
	}
	all, invalid := 0, 0
	for _, f := range report.Fields {
		all += f.Stats.All
		invalid += f.Stats.Invalid
	}
	if n := all - invalid; n > 0 {
		backend.IncCounter(GroupsTotal, float64(n), Labels{"job": job, "resource": resource, "status": statusValid})
	}
	if invalid > 0 {
		backend.IncCounter(GroupsTotal, float64(invalid), Labels{"job": job, "resource": resource, "status": statusInvalid})
	}
	status := statusValid
	if !report.Valid {
		status = statusInvalid
	}
	backend.IncCounter(ResourcesTotal, 1, Labels{"job": job, "resource": resource, "status": status})
}
