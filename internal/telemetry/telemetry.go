package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups the Prometheus instruments exported by the metrics engine.
// A nil *Collectors is valid and records nothing.
type Collectors struct {
	metricWrites    *prometheus.CounterVec
	computations    *prometheus.CounterVec
	batchRuns       prometheus.Counter
	batchBusinesses *prometheus.CounterVec
	batchDuration   prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		metricWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockmetrics_metric_writes_total",
				Help: "Metric rows written by the sync step, by result",
			},
			[]string{"result"},
		),
		computations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockmetrics_monthly_computations_total",
				Help: "Monthly metric computations, by outcome code",
			},
			[]string{"code"},
		),
		batchRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stockmetrics_batch_runs_total",
				Help: "Batch scheduler runs started",
			},
		),
		batchBusinesses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockmetrics_batch_businesses_total",
				Help: "Businesses processed by the batch scheduler, by result",
			},
			[]string{"result"},
		),
		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockmetrics_batch_duration_seconds",
				Help:    "Wall time of a batch scheduler run",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
		),
	}

	reg.MustRegister(c.metricWrites, c.computations, c.batchRuns, c.batchBusinesses, c.batchDuration)
	return c
}

// MetricWritten counts one metric row write.
func (c *Collectors) MetricWritten(ok bool) {
	if c == nil {
		return
	}
	c.metricWrites.WithLabelValues(result(ok)).Inc()
}

// ComputationFinished counts one orchestrator run. An empty code means success.
func (c *Collectors) ComputationFinished(code string) {
	if c == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	c.computations.WithLabelValues(code).Inc()
}

// BatchStarted counts a scheduler run.
func (c *Collectors) BatchStarted() {
	if c == nil {
		return
	}
	c.batchRuns.Inc()
}

// BatchBusinessDone counts one business processed by the scheduler.
func (c *Collectors) BatchBusinessDone(ok bool) {
	if c == nil {
		return
	}
	c.batchBusinesses.WithLabelValues(result(ok)).Inc()
}

// BatchFinished records the duration of a scheduler run.
func (c *Collectors) BatchFinished(d time.Duration) {
	if c == nil {
		return
	}
	c.batchDuration.Observe(d.Seconds())
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
