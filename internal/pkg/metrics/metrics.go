// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector the service exports.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requestCounter    *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
	checkouts         *prometheus.CounterVec
	stockMovements    *prometheus.CounterVec
	stockAlerts       *prometheus.CounterVec
	orderTransitions  *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	eventPublications *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_checkouts_total",
				Help: "Checkout attempts by result",
			},
			[]string{"result"},
		),
		stockMovements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_stock_movements_total",
				Help: "Stock ledger entries by movement type",
			},
			[]string{"type"},
		),
		stockAlerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_stock_alert_transitions_total",
				Help: "Stock alert state transitions",
			},
			[]string{"transition"},
		),
		orderTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_order_status_transitions_total",
				Help: "Order status transitions by target status",
			},
			[]string{"status"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_notifications_total",
				Help: "Notifications persisted and pushed",
			},
			[]string{"type", "delivery"},
		),
		eventPublications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_domain_events_total",
				Help: "Domain events published by type and outcome",
			},
			[]string{"type", "outcome"},
		),
	}

	reg.MustRegister(
		m.requestCounter,
		m.requestLatency,
		m.checkouts,
		m.stockMovements,
		m.stockAlerts,
		m.orderTransitions,
		m.notifications,
		m.eventPublications,
	)
	return m
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestCounter.WithLabelValues(method, route, status).Inc()
	m.requestLatency.WithLabelValues(method, route).Observe(seconds)
}

// Checkout records a checkout outcome: success, replayed or failed
func (m *Metrics) Checkout(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
}

// StockMovement records one ledger entry
func (m *Metrics) StockMovement(movementType string) {
	if m == nil {
		return
	}
	m.stockMovements.WithLabelValues(movementType).Inc()
}

// StockAlert records an alert transition
func (m *Metrics) StockAlert(transition string) {
	if m == nil {
		return
	}
	m.stockAlerts.WithLabelValues(transition).Inc()
}

// OrderTransition records an order entering status
func (m *Metrics) OrderTransition(status string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(status).Inc()
}

// Notification records a notification and whether the push reached the publisher
func (m *Metrics) Notification(notificationType, delivery string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(notificationType, delivery).Inc()
}

// EventPublished records a domain event publication outcome
func (m *Metrics) EventPublished(eventType, outcome string) {
	if m == nil {
		return
	}
	m.eventPublications.WithLabelValues(eventType, outcome).Inc()
}
