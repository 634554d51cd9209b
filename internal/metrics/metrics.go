package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Item outcomes recorded by RecordItems
const (
	OutcomeRequested        = "requested"
	OutcomeFailed           = "failed"
	OutcomeSkippedAvailable = "skipped_available"
	OutcomeSkippedRequested = "skipped_requested"
)

// Recorder is what the processing pipeline and scheduler report to
type Recorder interface {
	RecordExecution(status, trigger string, duration time.Duration)
	RecordItems(outcome string, count int)
	RecordLookupFailure()
	RecordScheduledRun(result string)
}

// Collector is the Prometheus implementation of Recorder
type Collector struct {
	executions     *prometheus.CounterVec
	items          *prometheus.CounterVec
	duration       prometheus.Histogram
	lookupFailures prometheus.Counter
	scheduledRuns  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listarr_executions_total",
			Help: "Finished list executions by status and trigger",
		}, []string{"status", "trigger"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listarr_items_total",
			Help: "Processed items by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "listarr_execution_duration_seconds",
			Help:    "Duration of list executions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		lookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listarr_availability_lookup_failures_total",
			Help: "Destination status lookups that failed and were treated as needing a request",
		}),
		scheduledRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listarr_scheduled_runs_total",
			Help: "Scheduled processing ticks by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.executions,
		c.items,
		c.duration,
		c.lookupFailures,
		c.scheduledRuns,
	)

	return c
}

func (c *Collector) RecordExecution(status, trigger string, duration time.Duration) {
	c.executions.WithLabelValues(status, trigger).Inc()
	c.duration.Observe(duration.Seconds())
}

func (c *Collector) RecordItems(outcome string, count int) {
	if count <= 0 {
		return
	}
	c.items.WithLabelValues(outcome).Add(float64(count))
}

func (c *Collector) RecordLookupFailure() {
	c.lookupFailures.Inc()
}

func (c *Collector) RecordScheduledRun(result string) {
	c.scheduledRuns.WithLabelValues(result).Inc()
}

// Handler serves the registry for Prometheus scraping
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every observation
type Nop struct{}

func (Nop) RecordExecution(string, string, time.Duration) {}
func (Nop) RecordItems(string, int)                       {}
func (Nop) RecordLookupFailure()                          {}
func (Nop) RecordScheduledRun(string)                     {}
