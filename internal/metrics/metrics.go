package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	Checkouts            *prometheus.CounterVec
	Fulfillments         *prometheus.CounterVec
	LicensesAllocated    prometheus.Counter
	NotificationFailures prometheus.Counter
	FulfillmentLatencyMS prometheus.Histogram
}

// New registers every collector on a fresh registry, so tests can build as
// many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "digizone",
			Subsystem: "checkout",
			Name:      "requests_total",
			Help:      "Checkout initiations by result.",
		}, []string{"result"}),
		Fulfillments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "digizone",
			Subsystem: "fulfillment",
			Name:      "events_total",
			Help:      "Payment events by fulfillment outcome.",
		}, []string{"outcome"}),
		LicensesAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "digizone",
			Subsystem: "fulfillment",
			Name:      "licenses_allocated_total",
			Help:      "License keys sold.",
		}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "digizone",
			Subsystem: "notification",
			Name:      "failures_total",
			Help:      "Confirmation emails that could not be dispatched.",
		}),
		FulfillmentLatencyMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "digizone",
			Subsystem: "fulfillment",
			Name:      "duration_ms",
			Help:      "Webhook fulfillment latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
	reg.MustRegister(m.Checkouts, m.Fulfillments, m.LicensesAllocated, m.NotificationFailures, m.FulfillmentLatencyMS)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
