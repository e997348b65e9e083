package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// WebSocket metrics
	wsConnections        prometheus.Gauge
	wsEventsTotal        *prometheus.CounterVec
	wsDeliveryFailsTotal *prometheus.CounterVec

	// Call metrics
	callsTotal  *prometheus.CounterVec
	callsActive prometheus.Gauge

	// Message metrics
	messagesSentTotal prometheus.Counter
}

// New creates and registers all metrics for the given service
func New(service string) *Metrics {
	labels := prometheus.Labels{"service": service}

	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),
		httpRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpRequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being served",
			ConstLabels: labels,
		}),
		wsConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "websocket_connections",
			Help:        "Number of live WebSocket sessions",
			ConstLabels: labels,
		}),
		wsEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "websocket_events_total",
			Help:        "WebSocket events processed, by direction and event name",
			ConstLabels: labels,
		}, []string{"direction", "event"}),
		wsDeliveryFailsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "websocket_delivery_failures_total",
			Help:        "Events that could not be delivered, by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		callsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "calls_total",
			Help:        "Call state transitions, by resulting status",
			ConstLabels: labels,
		}, []string{"status"}),
		callsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "calls_active",
			Help:        "Number of calls currently answered",
			ConstLabels: labels,
		}),
		messagesSentTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "messages_sent_total",
			Help:        "Chat messages persisted",
			ConstLabels: labels,
		}),
	}
}

// All recording methods tolerate a nil receiver so code paths can run
// without a registered collector.

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight request gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m != nil {
		m.httpRequestsInFlight.Inc()
	}
}

// DecrementHTTPRequestsInFlight decrements the in-flight request gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m != nil {
		m.httpRequestsInFlight.Dec()
	}
}

// SessionOpened records a registered WebSocket session
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.wsConnections.Inc()
	}
}

// SessionClosed records a closed WebSocket session
func (m *Metrics) SessionClosed() {
	if m != nil {
		m.wsConnections.Dec()
	}
}

// RecordEvent records an inbound or outbound WebSocket event
func (m *Metrics) RecordEvent(direction, event string) {
	if m != nil {
		m.wsEventsTotal.WithLabelValues(direction, event).Inc()
	}
}

// RecordDeliveryFailure records a failed event delivery (offline target or
// saturated outbound queue)
func (m *Metrics) RecordDeliveryFailure(reason string) {
	if m != nil {
		m.wsDeliveryFailsTotal.WithLabelValues(reason).Inc()
	}
}

// RecordCallStatus records a call entering the given status
func (m *Metrics) RecordCallStatus(status string) {
	if m != nil {
		m.callsTotal.WithLabelValues(status).Inc()
	}
}

// CallAnswered increments the active call gauge
func (m *Metrics) CallAnswered() {
	if m != nil {
		m.callsActive.Inc()
	}
}

// CallFinished decrements the active call gauge
func (m *Metrics) CallFinished() {
	if m != nil {
		m.callsActive.Dec()
	}
}

// MessageSent increments the persisted message counter
func (m *Metrics) MessageSent() {
	if m != nil {
		m.messagesSentTotal.Inc()
	}
}
