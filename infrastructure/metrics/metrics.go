package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lattice/infrastructure/config"
)

type Metrics struct {
	registry     *prometheus.Registry
	httpReqCnt   *prometheus.CounterVec
	httpDur      *prometheus.HistogramVec
	httpInfl     prometheus.Gauge
	eventClients prometheus.Gauge
	eventsSent   *prometheus.CounterVec
	eventsDrop   *prometheus.CounterVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	eventClients := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "event_clients"})
	eventsSent := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "events_broadcast_total"}, []string{"type"})
	eventsDrop := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "events_dropped_total"}, []string{"type"})
	r.MustRegister(eventClients, eventsSent, eventsDrop)

	return &Metrics{
		registry:     r,
		httpReqCnt:   httpReqCnt,
		httpDur:      httpDur,
		httpInfl:     httpInfl,
		eventClients: eventClients,
		eventsSent:   eventsSent,
		eventsDrop:   eventsDrop,
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency by chi route pattern so ids
// in the path do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.httpInfl.Inc()
		defer m.httpInfl.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)
		m.httpReqCnt.WithLabelValues(r.Method, route, code).Inc()
		m.httpDur.WithLabelValues(r.Method, route, code).Observe(time.Since(start).Seconds())
	})
}

// ClientsChanged implements events.Observer.
func (m *Metrics) ClientsChanged(n int) { m.eventClients.Set(float64(n)) }

// Broadcasted implements events.Observer.
func (m *Metrics) Broadcasted(eventType string) { m.eventsSent.WithLabelValues(eventType).Inc() }

// Dropped implements events.Observer.
func (m *Metrics) Dropped(eventType string) { m.eventsDrop.WithLabelValues(eventType).Inc() }
