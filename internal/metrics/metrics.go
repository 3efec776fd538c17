// Package metrics holds the Prometheus collectors for IPC calls,
// initialization phases and background tasks.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally and metrics can be switched off in config.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lingua"

// Metrics holds the prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ipcRequests   *prometheus.CounterVec
	ipcDuration   *prometheus.HistogramVec
	phaseDuration *prometheus.HistogramVec
	tasksEnqueued *prometheus.CounterVec
	wsConnections prometheus.Gauge
	cacheLookups  *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: reg,
		ipcRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ipc_requests_total",
				Help:      "Total number of IPC invocations by channel and result code",
			},
			[]string{"channel", "code"},
		),
		ipcDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ipc_request_duration_seconds",
				Help:      "Duration of IPC invocations in seconds",
				Buckets: []float64{
					0.001, // 1ms - cached lookups
					0.005,
					0.01,
					0.05, // 50ms - typical CRUD
					0.1,
					0.5,
					1,
					5, // 5s - remote dictionary lookups
					30,
				},
			},
			[]string{"channel"},
		),
		phaseDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "init_phase_duration_seconds",
				Help:      "Duration of initialization phases by phase and outcome",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"phase", "status"},
		),
		tasksEnqueued: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_enqueued_total",
				Help:      "Total number of background tasks enqueued by queue",
			},
			[]string{"queue"},
		),
		wsConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bridge_ws_connections",
				Help:      "Number of open renderer websocket connections",
			},
		),
		cacheLookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache object lookups by cache name and result (hit, miss)",
			},
			[]string{"cache", "result"},
		),
	}
}

// ObserveIPC records one dispatched call.
func (m *Metrics) ObserveIPC(channel, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.ipcRequests.WithLabelValues(channel, code).Inc()
	m.ipcDuration.WithLabelValues(channel).Observe(d.Seconds())
}

// ObservePhase records the outcome of an init phase.
func (m *Metrics) ObservePhase(phase, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase, status).Observe(d.Seconds())
}

func (m *Metrics) TaskEnqueued(queue string) {
	if m == nil {
		return
	}
	m.tasksEnqueued.WithLabelValues(queue).Inc()
}

func (m *Metrics) WSConnected() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

func (m *Metrics) WSDisconnected() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}

func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

// Registry returns nil for a nil receiver.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
