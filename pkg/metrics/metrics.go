// Package metrics provides Prometheus metrics for the hospital services.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Bill outcomes
const (
	OutcomeSold       = "sold"
	OutcomeOutOfStock = "out_of_stock"
	OutcomeError      = "error"
)

// Metrics holds all application metrics on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SerialsAdded       prometheus.Counter
	SerialsRemoved     prometheus.Counter
	Bills              *prometheus.CounterVec
	ExpiredPurged      prometheus.Counter
	JournalFailures    prometheus.Counter
	PublishFailures    prometheus.Counter
	AppointmentsBooked prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SerialsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharmacy_serials_added_total",
			Help: "Total serial units stocked",
		}),
		SerialsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharmacy_serials_removed_total",
			Help: "Total serial units removed by hand",
		}),
		Bills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pharmacy_bills_total",
			Help: "Total billing attempts by outcome",
		}, []string{"outcome"}),
		ExpiredPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharmacy_expired_purged_total",
			Help: "Total expired serial units purged while dispensing",
		}),
		JournalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharmacy_journal_failures_total",
			Help: "Total purchase journal writes that failed",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "events_publish_failures_total",
			Help: "Total domain events that could not be published",
		}),
		AppointmentsBooked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointments_booked_total",
			Help: "Total appointment slots booked",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SerialsAdded,
		m.SerialsRemoved,
		m.Bills,
		m.ExpiredPurged,
		m.JournalFailures,
		m.PublishFailures,
		m.AppointmentsBooked,
		m.RequestDuration,
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

func (m *Metrics) SerialAdded() {
	if m == nil {
		return
	}
	m.SerialsAdded.Inc()
}

func (m *Metrics) SerialRemoved() {
	if m == nil {
		return
	}
	m.SerialsRemoved.Inc()
}

// Bill records a billing attempt
func (m *Metrics) Bill(outcome string) {
	if m == nil {
		return
	}
	m.Bills.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Purged(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ExpiredPurged.Add(float64(n))
}

func (m *Metrics) JournalFailed() {
	if m == nil {
		return
	}
	m.JournalFailures.Inc()
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

func (m *Metrics) AppointmentBooked() {
	if m == nil {
		return
	}
	m.AppointmentsBooked.Inc()
}
