package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fibersight"

// Metrics holds the Prometheus counters, histograms, and gauges for the alert service.
type Metrics struct {
	// Refresh cycle metrics.
	RefreshCycles    prometheus.Counter
	RefreshDuration  prometheus.Histogram
	CandidatesRaised *prometheus.CounterVec // labels: rule
	AlertsInserted   prometheus.Counter
	InsertErrors     prometheus.Counter
	StoreReadErrors  prometheus.Counter
	FeedSize         prometheus.Gauge

	// Forecast API metrics.
	ForecastRequests    *prometheus.CounterVec // labels: outcome={success,error}
	ForecastErrors      prometheus.Counter
	ForecastAPIDuration prometheus.Histogram
	ForecastCache       *prometheus.CounterVec // labels: result={hit,miss}

	// Delivery metrics.
	NotificationsSent *prometheus.CounterVec // labels: severity
	AlertsPublished   prometheus.Counter
	PublishErrors     prometheus.Counter
	BadgePolls        *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.RefreshCycles,
		m.RefreshDuration,
		m.CandidatesRaised,
		m.AlertsInserted,
		m.InsertErrors,
		m.StoreReadErrors,
		m.FeedSize,
		m.ForecastRequests,
		m.ForecastErrors,
		m.ForecastAPIDuration,
		m.ForecastCache,
		m.NotificationsSent,
		m.AlertsPublished,
		m.PublishErrors,
		m.BadgePolls,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

// NewUnregisteredMetrics creates Metrics with help text that are not
// registered anywhere. Short-lived CLI commands use it since nothing scrapes them.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics(true)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		RefreshCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      help("Completed alert refresh cycles."),
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      help("Duration of a complete evaluate-merge-persist cycle."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CandidatesRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      help("Candidate alerts produced by forecast rules."),
		}, []string{"rule"}),
		AlertsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_inserted_total",
			Help:      help("New alerts written to the alert store."),
		}),
		InsertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_insert_errors_total",
			Help:      help("Failed alert store writes."),
		}),
		StoreReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_store_read_errors_total",
			Help:      help("Failed alert store reads."),
		}),
		FeedSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_alerts",
			Help:      help("Alerts in the merged feed after the last refresh."),
		}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_requests_total",
			Help:      help("Forecast API requests by outcome."),
		}, []string{"outcome"}),
		ForecastErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_evaluation_errors_total",
			Help:      help("Evaluations that degraded to no candidates because the forecast was unavailable."),
		}),
		ForecastAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_api_duration_seconds",
			Help:      help("Forecast API request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_total",
			Help:      help("Forecast cache lookups by result."),
		}, []string{"result"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      help("Notifications raised by severity."),
		}, []string{"severity"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      help("New alerts published to the Kafka alert topic."),
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_publish_errors_total",
			Help:      help("Failed Kafka alert publishes."),
		}),
		BadgePolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badge_polls_total",
			Help:      help("Recent-alert badge polls by outcome."),
		}, []string{"outcome"}),
	}
}
