package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all outbound-service metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Dispatch metrics
	DispatchBatchesTotal  *prometheus.CounterVec
	TasksDispatchedTotal  *prometheus.CounterVec
	DispatchBatchDuration prometheus.Histogram

	// Verification metrics
	VerificationsTotal   *prometheus.CounterVec
	VerificationDuration prometheus.Histogram

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec

	// Event publishing
	EventsPublished *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.DispatchBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "dispatch_batches_total",
			Help:      "Total number of dispatch batches by outcome",
		},
		[]string{"service", "outcome"},
	)

	m.TasksDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "tasks_dispatched_total",
			Help:      "Total number of per-task dispatch attempts by result",
		},
		[]string{"service", "result"},
	)

	m.DispatchBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "dispatch_batch_duration_seconds",
			Help:        "Duration of a dispatch batch including the post-batch refresh",
			Buckets:     []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "package_verifications_total",
			Help:      "Total number of package verifications by verdict and confidence band",
		},
		[]string{"service", "verdict", "band"},
	)

	m.VerificationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "package_verification_duration_seconds",
			Help:        "Duration of AI verification calls",
			Buckets:     []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
		[]string{"service", "name"},
	)

	m.EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "events_published_total",
			Help:      "Total number of business events published",
		},
		[]string{"service", "topic", "status"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DispatchBatchesTotal,
		m.TasksDispatchedTotal,
		m.DispatchBatchDuration,
		m.VerificationsTotal,
		m.VerificationDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
		m.EventsPublished,
	)

	return m
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordDispatchBatch records a finished dispatch batch
func (m *Metrics) RecordDispatchBatch(outcome string, duration time.Duration) {
	m.DispatchBatchesTotal.WithLabelValues(m.serviceName, outcome).Inc()
	m.DispatchBatchDuration.Observe(duration.Seconds())
}

// RecordTaskDispatch records a single per-task dispatch attempt
func (m *Metrics) RecordTaskDispatch(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.TasksDispatchedTotal.WithLabelValues(m.serviceName, result).Inc()
}

// RecordVerification records a package verification
func (m *Metrics) RecordVerification(matched bool, band string, duration time.Duration) {
	verdict := "matched"
	if !matched {
		verdict = "mismatch"
	}
	m.VerificationsTotal.WithLabelValues(m.serviceName, verdict, band).Inc()
	m.VerificationDuration.Observe(duration.Seconds())
}

// SetCircuitBreakerState records the state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

// RecordEventPublished records a business event publish attempt
func (m *Metrics) RecordEventPublished(topic string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.EventsPublished.WithLabelValues(m.serviceName, topic, status).Inc()
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
