package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

// Metrics holds the HTTP collectors. Each instance owns a registry, so
// servers and tests never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
}

// NewMetrics creates the HTTP collectors on a new registry together with the
// Go runtime and process collectors.
func NewMetrics(namespace, subsystem string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path", "status"}),
		activeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_active",
			Help:      "Current number of active requests.",
		}),
	}
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest records one finished request.
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(method, path, code).Inc()
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// Handler returns the Prometheus exposition handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:          m.registry,
	})
}

// MetricsWithOptions 返回请求指标中间件。
//
// path 标签使用路由模板（c.FullPath），未匹配的路由统一记为 "unmatched"，
// 避免任意路径造成标签基数膨胀。
func MetricsWithOptions(opts mwopts.MetricsOptions, m *Metrics) gin.HandlerFunc {
	if m == nil {
		m = NewMetrics(opts.Namespace, opts.Subsystem)
	}

	return func(c *gin.Context) {
		if c.Request.URL.Path == opts.Path {
			c.Next()
			return
		}

		m.activeRequests.Inc()
		start := time.Now()

		defer func() {
			m.activeRequests.Dec()

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			m.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		}()

		c.Next()
	}
}

// RegisterMetricsRoutesWithOptions 注册 Metrics 路由端点。
func RegisterMetricsRoutesWithOptions(engine *gin.Engine, opts mwopts.MetricsOptions, m *Metrics) {
	engine.GET(opts.Path, gin.WrapH(m.Handler()))
}
