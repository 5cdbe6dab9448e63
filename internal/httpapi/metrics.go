package httpapi

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kinarow/egtb/internal/tablebase"
)

// metrics is registered per router so several routers can coexist in one
// process.
type metrics struct {
	registry *prometheus.Registry

	// requests counts handled requests by route and status code
	requests *prometheus.CounterVec

	// duration tracks handler latency by route
	duration *prometheus.HistogramVec

	// outcomes counts probe answers by perfect-play outcome
	outcomes *prometheus.CounterVec
}

func newMetrics(readers []*tablebase.Reader) *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	m := &metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ttb_http_requests_total",
			Help: "Total HTTP requests by route and status",
		}, []string{"route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ttb_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~400ms
		}, []string{"route"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ttb_probe_outcomes_total",
			Help: "Probe answers by perfect-play outcome",
		}, []string{"outcome"}),
	}

	entries := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ttb_tablebase_entries",
		Help: "Stored positions per table",
	}, []string{"pieces", "verified"})
	for _, r := range readers {
		entries.WithLabelValues(strconv.Itoa(r.Pieces()), r.Verified().String()).Set(float64(r.Len()))
	}
	return m
}

// instrument wraps one route with request counting and timing.
func (m *metrics) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(m.duration.WithLabelValues(route))
		defer timer.ObserveDuration()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
