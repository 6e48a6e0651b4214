package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FinalizeMetrics records outcomes for the payment finalization pipeline.
type FinalizeMetrics struct {
	stepDuration *prometheus.HistogramVec
	stepFailure  *prometheus.CounterVec
	outcome      *prometheus.CounterVec
	queueDepth   prometheus.Gauge
}

// NewFinalizeMetrics registers the finalization metrics on the provided
// registerer. A nil registerer yields a no-op recorder, which keeps tests
// and tooling free of registration side effects.
func NewFinalizeMetrics(reg prometheus.Registerer) *FinalizeMetrics {
	if reg == nil {
		return &FinalizeMetrics{}
	}
	stepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finalize_step_duration_seconds",
		Help:    "Duration of individual finalization steps in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})
	stepFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finalize_step_failure",
		Help: "Failed finalization steps.",
	}, []string{"step"})
	outcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finalize_outcome",
		Help: "Finalization results by outcome.",
	}, []string{"outcome"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notification_queue_depth",
		Help: "Pending order confirmations awaiting dispatch.",
	})
	reg.MustRegister(stepDuration, stepFailure, outcome, queueDepth)
	return &FinalizeMetrics{
		stepDuration: stepDuration,
		stepFailure:  stepFailure,
		outcome:      outcome,
		queueDepth:   queueDepth,
	}
}

// ObserveStep records the duration for the named step.
func (f *FinalizeMetrics) ObserveStep(step string, duration time.Duration) {
	if f == nil || f.stepDuration == nil {
		return
	}
	f.stepDuration.WithLabelValues(normalizeLabel(step)).Observe(duration.Seconds())
}

// IncStepFailure increments the failure counter for the named step.
func (f *FinalizeMetrics) IncStepFailure(step string) {
	if f == nil || f.stepFailure == nil {
		return
	}
	f.stepFailure.WithLabelValues(normalizeLabel(step)).Inc()
}

// IncOutcome increments the counter for the named finalization outcome.
func (f *FinalizeMetrics) IncOutcome(outcome string) {
	if f == nil || f.outcome == nil {
		return
	}
	f.outcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// SetQueueDepth records the current notification backlog size.
func (f *FinalizeMetrics) SetQueueDepth(n int) {
	if f == nil || f.queueDepth == nil {
		return
	}
	f.queueDepth.Set(float64(n))
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
