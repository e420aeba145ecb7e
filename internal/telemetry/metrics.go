package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	InstallSteps       *prometheus.CounterVec
	OptionFailures     *prometheus.CounterVec
	RateLookups        *prometheus.CounterVec
	RateLookupDuration *prometheus.HistogramVec
	RatesReturned      prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domicilio_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "domicilio_request_duration_seconds",
				Help:    "HTTP request duration in seconds by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		InstallSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domicilio_install_steps_total",
				Help: "Install workflow transitions by state and outcome",
			},
			[]string{"state", "outcome"},
		),
		OptionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domicilio_option_failures_total",
				Help: "Carrier options that failed to be created, by option code",
			},
			[]string{"code"},
		),
		RateLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domicilio_rate_lookups_total",
				Help: "Rate table lookups by table and outcome",
			},
			[]string{"table", "outcome"},
		),
		RateLookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "domicilio_rate_lookup_duration_seconds",
				Help:    "Rate table lookup duration in seconds by table",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"table"},
		),
		RatesReturned: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "domicilio_rates_returned",
				Help:    "Number of rates returned per quotation",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 8},
			},
		),
	}
}

// RecordRequest records an HTTP request metric.
func (m *Metrics) RecordRequest(route, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration)
}

// RecordInstallStep records an install workflow transition.
func (m *Metrics) RecordInstallStep(state, outcome string) {
	m.InstallSteps.WithLabelValues(state, outcome).Inc()
}

// RecordOptionFailure records a carrier option that could not be created.
func (m *Metrics) RecordOptionFailure(code string) {
	m.OptionFailures.WithLabelValues(code).Inc()
}

// RecordLookup records a rate table lookup.
func (m *Metrics) RecordLookup(table, outcome string, duration float64) {
	m.RateLookups.WithLabelValues(table, outcome).Inc()
	m.RateLookupDuration.WithLabelValues(table).Observe(duration)
}

// RecordQuote records how many rates a quotation produced.
func (m *Metrics) RecordQuote(rates int) {
	m.RatesReturned.Observe(float64(rates))
}
