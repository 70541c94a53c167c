package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

// Metrics methods are safe on a nil receiver so callers never branch on whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	generations       *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	exports           *prometheus.CounterVec
	uploads           *prometheus.CounterVec
	videoJobs         *prometheus.CounterVec

	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edutools_api_requests_total",
			Help: "Total API requests by method/route/tool/status.",
		}, []string{"method", "route", "tool", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edutools_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edutools_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edutools_generations_total",
			Help: "Generation calls by tool/kind/status.",
		}, []string{"tool", "kind", "status"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edutools_generation_duration_seconds",
			Help:    "Backend generation latency in seconds by backend/kind.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"backend", "kind"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edutools_exports_total",
			Help: "Export renders by format/status.",
		}, []string{"format", "status"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edutools_uploads_total",
			Help: "Upload extractions by mime type/status.",
		}, []string{"mime_type", "status"}),
		videoJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edutools_video_jobs_total",
			Help: "Video job transitions by status.",
		}, []string{"status"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edutools_redis_up",
			Help: "Whether the last redis ping succeeded.",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edutools_redis_ping_seconds",
			Help: "Latency of the last successful redis ping.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.generations, m.generationLatency, m.exports, m.uploads, m.videoJobs,
		m.redisUp, m.redisPing,
	)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAPI records one request. tool is the catalog tool id for /api/tools/:id routes, empty otherwise.
func (m *Metrics) ObserveAPI(method, route, tool, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, tool, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveGeneration(backend, tool, kind, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(tool, kind, status).Inc()
	if dur > 0 {
		m.generationLatency.WithLabelValues(backend, kind).Observe(dur.Seconds())
	}
}

func (m *Metrics) IncExport(format, status string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, status).Inc()
}

func (m *Metrics) IncUpload(mimeType, status string) {
	if m == nil {
		return
	}
	if mimeType == "" {
		mimeType = "unknown"
	}
	m.uploads.WithLabelValues(mimeType, status).Inc()
}

func (m *Metrics) IncVideoJob(status string) {
	if m == nil {
		return
	}
	m.videoJobs.WithLabelValues(status).Inc()
}

// StartRedisCollector pings rdb every interval until ctx is done.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil && ctx.Err() == nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

// StatusLabel maps a call result to the status label of the generation counters.
func StatusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") {
		return "quota"
	}
	return "error"
}
