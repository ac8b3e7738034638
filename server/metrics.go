package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/poiesic/docrag/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tmc/langchaingo/schema"
)

const metricsNamespace = "docrag"

// Metrics holds the Prometheus collectors exported on /metrics.
// Each Metrics owns its registry, so several servers can coexist in one process.
type Metrics struct {
	registry       *prometheus.Registry
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	ingestedChunks prometheus.Gauge
	retrievedDocs  prometheus.Histogram
	queriesTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers the server collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route, method and status code",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"route", "method", "status"},
		),
		ingestedChunks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "ingested_chunks",
				Help:      "Number of chunks held by the vector store",
			},
		),
		retrievedDocs: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "query_retrieved_documents",
				Help:      "Number of documents retrieved as context per query",
				Buckets:   prometheus.LinearBuckets(0, 1, 11),
			},
		),
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "queries_total",
				Help:      "Total answered queries by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestLatency,
		m.ingestedChunks,
		m.retrievedDocs,
		m.queriesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SetIngestedChunks records the current size of the vector store.
func (m *Metrics) SetIngestedChunks(n int) {
	m.ingestedChunks.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// queryMonitor returns a query.Monitor that records retrieval size and outcome.
func (m *Metrics) queryMonitor() query.Monitor {
	return &metricsMonitor{metrics: m}
}

type metricsMonitor struct {
	metrics *Metrics
}

var _ query.Monitor = (*metricsMonitor)(nil)

func (mm *metricsMonitor) Start(_ string) {}

func (mm *metricsMonitor) AfterRetrieval(docs []schema.Document) {
	mm.metrics.retrievedDocs.Observe(float64(len(docs)))
}

func (mm *metricsMonitor) AfterAugment(_ string) {}

func (mm *metricsMonitor) Finish(_ string, err error) {
	outcome := "answered"
	if err != nil {
		outcome = "failed"
	}
	mm.metrics.queriesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observe(route, method string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(route, method, code).Inc()
	m.requestLatency.WithLabelValues(route, method, code).Observe(elapsed.Seconds())
}

// middleware records request count and latency. It must run inside a
// middleware that has already resolved handler errors to a status.
func (m *Metrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.observe(route, c.Request().Method, statusOf(c, err), time.Since(start))
			return err
		}
	}
}
