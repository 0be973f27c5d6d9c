package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rentcal/internal/app/calsync"
)

// Metrics owns the process registry and the calendar sync collectors.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	loads           *prometheus.CounterVec
	commits         *prometheus.CounterVec
	commitRecords   prometheus.Histogram
	requestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rentcal_sync_loads_total",
		Help: "Calendar month loads by source and result",
	}, []string{"source", "result"})

	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rentcal_sync_commits_total",
		Help: "Calendar commits by target and result",
	}, []string{"target", "result"})

	commitRecords := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rentcal_sync_commit_records",
		Help:    "Price records written per commit",
		Buckets: []float64{0, 31, 62, 93, 186, 366, 732},
	})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	registry.MustRegister(
		loads, commits, commitRecords, requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		loads:           loads,
		commits:         commits,
		commitRecords:   commitRecords,
		requestDuration: requestDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Metrics) ObserveLoad(source, result string) {
	m.loads.WithLabelValues(source, result).Inc()
}

func (m *Metrics) ObserveCommit(target, result string, records int) {
	m.commits.WithLabelValues(target, result).Inc()
	if result == calsync.ResultOK {
		m.commitRecords.Observe(float64(records))
	}
}

func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	m.requestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

var _ calsync.Metrics = (*Metrics)(nil)
