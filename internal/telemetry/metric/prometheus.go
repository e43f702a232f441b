package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pointerd"

// Session close reasons.
const (
	ReasonClient     = "client"
	ReasonSuperseded = "superseded"
	ReasonIdle       = "idle"
	ReasonTransport  = "transport"
	ReasonShutdown   = "shutdown"
)

// Datagram results.
const (
	ResultAccepted    = "accepted"
	ResultMalformed   = "malformed"
	ResultCrypto      = "crypto"
	ResultProtocol    = "protocol"
	ResultRateLimited = "rate_limited"
)

// Registry holds all application metrics on a private prometheus.Registry.
type Registry struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsOpened prometheus.Counter
	SessionsClosed *prometheus.CounterVec

	// Datagram metrics
	DatagramsReceived *prometheus.CounterVec
	FramesSent        *prometheus.CounterVec
	SendErrors        *prometheus.CounterVec

	// Control API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Sessions created by an accepted open request.",
		}),
		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Sessions stopped, by reason.",
		}, []string{"reason"}),
		DatagramsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_received_total",
			Help:      "Inbound datagrams, by handling result.",
		}, []string{"result"}),
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Outbound frames written, by message kind.",
		}, []string{"kind"}),
		SendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Outbound frames dropped by a seal or write failure, by message kind.",
		}, []string{"kind"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Control API requests.",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Control API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		r.SessionsOpened,
		r.SessionsClosed,
		r.DatagramsReceived,
		r.FramesSent,
		r.SendErrors,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns a process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler exposing this registry.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Register adds an extra collector.
func (r *Registry) Register(c prometheus.Collector) error {
	if r == nil {
		return nil
	}
	return r.registry.Register(c)
}

// Gatherer exposes the underlying registry for tests and embedding.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// SessionOpened counts an accepted open request.
func (r *Registry) SessionOpened() {
	if r == nil {
		return
	}
	r.SessionsOpened.Inc()
}

// SessionClosed counts a stopped session.
func (r *Registry) SessionClosed(reason string) {
	if r == nil {
		return
	}
	r.SessionsClosed.WithLabelValues(reason).Inc()
}

// DatagramReceived counts an inbound datagram by result.
func (r *Registry) DatagramReceived(result string) {
	if r == nil {
		return
	}
	r.DatagramsReceived.WithLabelValues(result).Inc()
}

// FrameSent counts a written outbound frame.
func (r *Registry) FrameSent(kind string) {
	if r == nil {
		return
	}
	r.FramesSent.WithLabelValues(kind).Inc()
}

// SendError counts a dropped outbound frame.
func (r *Registry) SendError(kind string) {
	if r == nil {
		return
	}
	r.SendErrors.WithLabelValues(kind).Inc()
}

// RecordRequest records one control API request.
func (r *Registry) RecordRequest(method, path, status string, seconds float64) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, path, status).Inc()
	r.RequestDuration.WithLabelValues(method, path).Observe(seconds)
}
