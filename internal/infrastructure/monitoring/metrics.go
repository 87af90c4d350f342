package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Bridge metrics
	SignalsReceived  *prometheus.CounterVec
	SignalsSent      *prometheus.CounterVec
	EffectsRun       *prometheus.CounterVec
	EffectsUnknown   *prometheus.CounterVec
	EffectPanics     *prometheus.CounterVec
	EffectDuration   *prometheus.HistogramVec
	ListenersActive  *prometheus.GaugeVec
	ScriptExceptions *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSFrames      *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current counter values for the JSON API
type Snapshot struct {
	Received    int64 `json:"received"`
	Dispatched  int64 `json:"dispatched"`
	Dropped     int64 `json:"dropped"`
	Sent        int64 `json:"sent"`
	Undelivered int64 `json:"undelivered"`
}

// NewMetrics creates a metrics collector backed by its own registry, so
// several collectors can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framebridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SignalsReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_signals_received_total",
				Help: "Inbound messages seen by a peer, by gate verdict",
			},
			[]string{"peer", "verdict"},
		),
		SignalsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_signals_sent_total",
				Help: "Outbound signals, by delivery result",
			},
			[]string{"peer", "result"},
		),
		EffectsRun: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_effects_run_total",
				Help: "Effects dispatched to a registered handler",
			},
			[]string{"peer", "effect"},
		),
		EffectsUnknown: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_effects_unknown_total",
				Help: "Accepted signals naming an unregistered effect",
			},
			[]string{"peer"},
		),
		EffectPanics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_effect_panics_total",
				Help: "Effect handlers that panicked",
			},
			[]string{"peer", "effect"},
		),
		EffectDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framebridge_effect_duration_seconds",
				Help:    "Effect handler duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"peer"},
		),
		ListenersActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "framebridge_listeners_active",
				Help: "Peers currently listening on their window",
			},
			[]string{"role"},
		),
		ScriptExceptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_script_exceptions_total",
				Help: "Exceptions thrown by script effect handlers",
			},
			[]string{"effect"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "framebridge_websocket_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSFrames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_websocket_frames_total",
				Help: "WebSocket frames, by direction and result",
			},
			[]string{"direction", "result"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "framebridge_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	return m
}

// Registry exposes the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving this collector in exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// updateUptime refreshes the uptime gauge
func (m *Metrics) updateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.updateUptime()
}

// RecordReceived records a gate verdict for an inbound message
func (m *Metrics) RecordReceived(peer, verdict string) {
	if m == nil {
		return
	}
	m.SignalsReceived.WithLabelValues(peer, verdict).Inc()

	m.mu.Lock()
	m.snapshot.Received++
	if verdict != "accepted" {
		m.snapshot.Dropped++
	}
	m.mu.Unlock()
}

// RecordSent records the delivery result of an outbound signal
func (m *Metrics) RecordSent(peer, result string) {
	if m == nil {
		return
	}
	m.SignalsSent.WithLabelValues(peer, result).Inc()

	m.mu.Lock()
	if result == "delivered" {
		m.snapshot.Sent++
	} else {
		m.snapshot.Undelivered++
	}
	m.mu.Unlock()
}

// RecordEffect records a completed effect handler
func (m *Metrics) RecordEffect(peer, effect string, duration time.Duration) {
	if m == nil {
		return
	}
	m.EffectsRun.WithLabelValues(peer, effect).Inc()
	m.EffectDuration.WithLabelValues(peer).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Dispatched++
	m.mu.Unlock()
}

// RecordUnknownEffect records a signal naming an unregistered effect
func (m *Metrics) RecordUnknownEffect(peer string) {
	if m == nil {
		return
	}
	m.EffectsUnknown.WithLabelValues(peer).Inc()
}

// RecordEffectPanic records a recovered handler panic
func (m *Metrics) RecordEffectPanic(peer, effect string) {
	if m == nil {
		return
	}
	m.EffectPanics.WithLabelValues(peer, effect).Inc()
}

// RecordScriptException records an exception thrown by a script handler
func (m *Metrics) RecordScriptException(effect string) {
	if m == nil {
		return
	}
	m.ScriptExceptions.WithLabelValues(effect).Inc()
}

// IncListeners increments the active listener gauge for a role
func (m *Metrics) IncListeners(role string) {
	if m == nil {
		return
	}
	m.ListenersActive.WithLabelValues(role).Inc()
}

// DecListeners decrements the active listener gauge for a role
func (m *Metrics) DecListeners(role string) {
	if m == nil {
		return
	}
	m.ListenersActive.WithLabelValues(role).Dec()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// RecordWSFrame records a WebSocket frame
func (m *Metrics) RecordWSFrame(direction, result string) {
	if m == nil {
		return
	}
	m.WSFrames.WithLabelValues(direction, result).Inc()
}

// GetSnapshot returns current counter values
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
