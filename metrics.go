package parbreak

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus counters and gauges that SPEC_FULL.md's
// domain-stack expansion adds on top of the core dispatch protocol. None of
// this is load-bearing for correctness; it only observes the dispatcher.
type Metrics struct {
	dispatched prometheus.Counter
	completed  prometheus.Counter
	failed     prometheus.Counter
	idle       prometheus.Gauge
	connected  prometheus.Counter
	disconnect prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics registers a fresh set of counters in their own registry, so
// multiple coordinators in one process don't collide on the default
// registry's global namespace.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		dispatched: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "jobs_dispatched_total",
			Help: "Number of jobs handed to a worker session.",
		}),
		completed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Number of jobs that finished with a zero exit code.",
		}),
		failed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Number of jobs that finished failed, including synthesized failures from lost connections.",
		}),
		idle: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "workers_idle",
			Help: "Number of worker sessions currently idle.",
		}),
		connected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "workers_connected_total",
			Help: "Number of worker sessions ever accepted.",
		}),
		disconnect: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "workers_disconnected_total",
			Help: "Number of worker sessions that went GONE.",
		}),
	}
	return m
}

func (m *Metrics) jobDispatched()     { m.dispatched.Inc() }
func (m *Metrics) jobCompleted()      { m.completed.Inc() }
func (m *Metrics) jobFailed()         { m.failed.Inc() }
func (m *Metrics) workerConnected()   { m.connected.Inc() }
func (m *Metrics) workerDisconnected() { m.disconnect.Inc() }

// SetIdle updates the workers_idle gauge. The dispatcher has no push
// notification for idleness changes, so callers (usually a periodic ticker
// in cmd/parbreak) pull IdleCount and push it here.
func (m *Metrics) SetIdle(n int) {
	m.idle.Set(float64(n))
}

// Handler returns an HTTP handler serving /metrics in Prometheus exposition
// format, routed with gorilla/mux the way psantana5-ffmpeg-rtmp wires its
// own HTTP surface.
func (m *Metrics) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return r
}
