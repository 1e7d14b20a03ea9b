package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/larkmail/keepd/internal/housekeeper"
)

// Gauge values mirrored outside Prometheus so the OTEL pusher (otel.go) can
// observe the same numbers on its own push cadence, independent of
// Prometheus's pull model.
var (
	userCountValue    atomic.Uint64
	domainCountValue  atomic.Uint64
	serverMemoryValue atomic.Uint64
)

// HTTPRequestDuration tracks HTTP request latency on the admin API.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "keepd",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

var (
	userCountGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keepd",
		Subsystem: "directory",
		Name:      "user_count",
		Help:      "Total number of directory accounts.",
	})
	domainCountGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keepd",
		Subsystem: "directory",
		Name:      "domain_count",
		Help:      "Total number of configured domains.",
	})
	serverMemoryGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keepd",
		Subsystem: "server",
		Name:      "memory_bytes",
		Help:      "Heap memory allocated by the server process, in bytes.",
	})

	housekeeperStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keepd",
		Subsystem: "housekeeper",
		Name:      "started_total",
		Help:      "Number of times the housekeeper scheduler has started.",
	})
	housekeeperStoppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keepd",
		Subsystem: "housekeeper",
		Name:      "stopped_total",
		Help:      "Number of times the housekeeper scheduler has stopped.",
	})
	housekeeperRunTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keepd",
		Subsystem: "housekeeper",
		Name:      "run_total",
		Help:      "Number of times an action has fired, by action type.",
	}, []string{"type"})
	housekeeperScheduleTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keepd",
		Subsystem: "housekeeper",
		Name:      "schedule_total",
		Help:      "Number of times an action has been (re)scheduled, by action type.",
	}, []string{"type"})

	purgeStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keepd",
		Subsystem: "purge",
		Name:      "started_total",
		Help:      "Number of purge runs started, by purge type.",
	}, []string{"type"})
	purgeFinishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keepd",
		Subsystem: "purge",
		Name:      "finished_total",
		Help:      "Number of purge runs finished, by purge type.",
	}, []string{"type"})
	purgeInProgressTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keepd",
		Subsystem: "purge",
		Name:      "in_progress_total",
		Help:      "Number of purge runs skipped because another replica held the lock.",
	}, []string{"type"})
	purgeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "keepd",
		Subsystem: "purge",
		Name:      "duration_seconds",
		Help:      "Duration of completed purge runs, by purge type.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"type"})

	acmeOrderStartTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keepd",
		Subsystem: "acme",
		Name:      "order_start_total",
		Help:      "Number of ACME certificate orders started, by provider.",
	}, []string{"provider"})
	acmeOrderCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keepd",
		Subsystem: "acme",
		Name:      "order_completed_total",
		Help:      "Number of ACME certificate orders completed, by provider.",
	}, []string{"provider"})
)

// all returns keepd's own metrics collectors for registration.
func all() []prometheus.Collector {
	return []prometheus.Collector{
		userCountGauge,
		domainCountGauge,
		serverMemoryGauge,
		housekeeperStartedTotal,
		housekeeperStoppedTotal,
		housekeeperRunTotal,
		housekeeperScheduleTotal,
		purgeStartedTotal,
		purgeFinishedTotal,
		purgeInProgressTotal,
		purgeDuration,
		acmeOrderStartTotal,
		acmeOrderCompletedTotal,
	}
}

// NewMetricsRegistry creates a Prometheus registry with the Go/process
// collectors, the shared HTTP metrics, and every keepd-specific collector.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range all() {
		reg.MustRegister(c)
	}
	return reg
}

// Collector implements housekeeper.MetricsCollector on top of the package's
// Prometheus vectors, so the scheduler's metrics calls need no knowledge of
// Prometheus at all. Every method here is safe for concurrent callers, since
// the underlying Prometheus types are.
type Collector struct{}

var _ housekeeper.MetricsCollector = Collector{}

func (Collector) HousekeeperStarted() { housekeeperStartedTotal.Inc() }
func (Collector) HousekeeperStopped() { housekeeperStoppedTotal.Inc() }

func (Collector) HousekeeperRun(kind housekeeper.ActionTag) {
	housekeeperRunTotal.WithLabelValues(kind.String()).Inc()
}

func (Collector) HousekeeperScheduled(kind housekeeper.ActionTag) {
	housekeeperScheduleTotal.WithLabelValues(kind.String()).Inc()
}

func (Collector) PurgeStarted(label string) {
	purgeStartedTotal.WithLabelValues(label).Inc()
}

func (Collector) PurgeFinished(label string, elapsed time.Duration) {
	purgeFinishedTotal.WithLabelValues(label).Inc()
	purgeDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func (Collector) PurgeInProgress(label string) {
	purgeInProgressTotal.WithLabelValues(label).Inc()
}

func (Collector) AcmeOrderStart(providerID string) {
	acmeOrderStartTotal.WithLabelValues(providerID).Inc()
}

func (Collector) AcmeOrderCompleted(providerID string) {
	acmeOrderCompletedTotal.WithLabelValues(providerID).Inc()
}

// UpdateGauge sets the named gauge to value, both on the Prometheus side
// (scraped on its own pull cadence) and on the atomic mirror the OTEL
// pusher observes on its push cadence.
func (Collector) UpdateGauge(metric housekeeper.GaugeMetric, value uint64) {
	switch metric {
	case housekeeper.UserCount:
		userCountGauge.Set(float64(value))
		userCountValue.Store(value)
	case housekeeper.DomainCount:
		domainCountGauge.Set(float64(value))
		domainCountValue.Store(value)
	case housekeeper.ServerMemory:
		serverMemoryGauge.Set(float64(value))
		serverMemoryValue.Store(value)
	}
}
