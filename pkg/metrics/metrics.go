package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// InvocationsActive tracks the current size of the invocation table.
	InvocationsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "noctiforge_invocations_active",
			Help: "Current number of live invocations in the invocation table",
		},
	)

	// ContainersCreatedTotal counts container builds, labeled by outcome ("ok" or "error").
	ContainersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noctiforge_containers_created_total",
			Help: "Total number of containers built, labeled by outcome",
		},
		[]string{"outcome"},
	)

	// ContainersDeletedTotal counts container teardowns, labeled by the reason.
	ContainersDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noctiforge_containers_deleted_total",
			Help: "Total number of containers deleted, labeled by reason",
		},
		[]string{"reason"},
	)

	// FetchDuration measures registry fetch+extract latency.
	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noctiforge_fetch_duration_seconds",
			Help:    "Time taken to fetch and extract an artifact by digest",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ExecuteDuration measures the orchestrator's execute() latency (C7):
	// get-or-create, readiness and invoke, excluding name resolution.
	ExecuteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noctiforge_execute_duration_seconds",
			Help:    "End-to-end execute duration in seconds, labeled by outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// ReadinessAttempts records how many dial attempts the prober needed.
	ReadinessAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noctiforge_readiness_attempts",
			Help:    "Number of dial attempts the readiness prober made before success or timeout",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 200, 300},
		},
	)

	// ReaperEvictionsTotal counts invocations the reaper has evicted.
	ReaperEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "noctiforge_reaper_evictions_total",
			Help: "Total number of invocations evicted by the reaper",
		},
	)

	// ReaperCycleDuration measures one full reaper scan.
	ReaperCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noctiforge_reaper_cycle_duration_seconds",
			Help:    "Time taken for one reaper scan cycle",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(InvocationsActive)
	prometheus.MustRegister(ContainersCreatedTotal)
	prometheus.MustRegister(ContainersDeletedTotal)
	prometheus.MustRegister(FetchDuration)
	prometheus.MustRegister(ExecuteDuration)
	prometheus.MustRegister(ReadinessAttempts)
	prometheus.MustRegister(ReaperEvictionsTotal)
	prometheus.MustRegister(ReaperCycleDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
