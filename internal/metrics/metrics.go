// Package metrics exposes Prometheus instrumentation for the proxy.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qw31415/claude-vision-api/internal/domain"
)

const namespace = "claude_vision"

// Upstream call kinds.
const (
	KindChat   = "chat"
	KindImage  = "image"
	KindStream = "stream"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	tokens           *prometheus.CounterVec
	streamFrames     *prometheus.CounterVec
	streams          *prometheus.CounterVec
	sessionsCreated  prometheus.Counter
	authDenied       *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream Messages API calls by kind and status.",
		}, []string{"kind", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of upstream calls until the reply or stream opens.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"kind"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by the upstream API.",
		}, []string{"direction"}),
		streamFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_frames_total",
			Help:      "Relay frames sent to clients by type.",
		}, []string{"type"}),
		streams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_total",
			Help:      "Finished relays by outcome.",
		}, []string{"outcome"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created on first use.",
		}),
		authDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_denied_total",
			Help:      "Requests rejected by the access policy.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.upstreamRequests,
		m.upstreamDuration,
		m.tokens,
		m.streamFrames,
		m.streams,
		m.sessionsCreated,
		m.authDenied,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.upstreamRequests.WithLabelValues(kind, status).Inc()
	m.upstreamDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveUsage adds the reported token counts.
func (m *Metrics) ObserveUsage(usage *domain.Usage) {
	if m == nil || usage == nil {
		return
	}
	m.tokens.WithLabelValues("input").Add(float64(usage.InputTokens))
	m.tokens.WithLabelValues("output").Add(float64(usage.OutputTokens))
}

// ObserveFrame counts one relay frame.
func (m *Metrics) ObserveFrame(frameType domain.FrameType) {
	if m == nil {
		return
	}
	m.streamFrames.WithLabelValues(string(frameType)).Inc()
}

// ObserveStream counts one finished relay.
func (m *Metrics) ObserveStream(outcome string) {
	if m == nil {
		return
	}
	m.streams.WithLabelValues(outcome).Inc()
}

// SessionCreated counts a newly created session.
func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

// AuthDenied counts a request rejected by the access policy.
func (m *Metrics) AuthDenied(reason string) {
	if m == nil {
		return
	}
	m.authDenied.WithLabelValues(reason).Inc()
}
