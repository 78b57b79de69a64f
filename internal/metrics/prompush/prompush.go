// Package prompush pushes harvest metrics to a Prometheus Pushgateway.
//
// The job label of every metric is used as the Pushgateway grouping key, so
// collectors carry only the remaining labels.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"pudl/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter     *prometheus.CounterVec
	stepDuration    *prometheus.SummaryVec
	recordCounter   *prometheus.CounterVec
	batchCounter    prometheus.Counter
	groupCounter    *prometheus.CounterVec
	resourceCounter *prometheus.CounterVec
}

// NewBackend constructs a Pushgateway backend pushing under jobName, which
// defaults to "pudl".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "pudl"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Run step executions by step and status.",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Run step duration in seconds by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"step", "status"}),
		recordCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Record counts by kind (read, parse_errors, loaded).",
		}, []string{"kind"}),
		batchCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Load batches written to storage.",
		}),
		groupCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.GroupsTotal,
			Help: "Harvested primary key groups by resource and status.",
		}, []string{"resource", "status"}),
		resourceCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.ResourcesTotal,
			Help: "Harvested resources by status.",
		}, []string{"resource", "status"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":     b.stepCounter,
		"step summary":     b.stepDuration,
		"record counter":   b.recordCounter,
		"batch counter":    b.batchCounter,
		"group counter":    b.groupCounter,
		"resource counter": b.resourceCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

// IncCounter routes a counter to its collector. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RecordsTotal:
		if b.recordCounter != nil {
			b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
		}
	case metrics.BatchesTotal:
		if b.batchCounter != nil {
			b.batchCounter.Add(delta)
		}
	case metrics.GroupsTotal:
		if b.groupCounter != nil {
			b.groupCounter.WithLabelValues(labels["resource"], labels["status"]).Add(delta)
		}
	case metrics.ResourcesTotal:
		if b.resourceCounter != nil {
			b.resourceCounter.WithLabelValues(labels["resource"], labels["status"]).Add(delta)
		}
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
