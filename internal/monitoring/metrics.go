// Package monitoring exposes Prometheus metrics and health checks for the
// HTTP service and the pipeline.
package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector owns a private registry so several collectors can live
// in one process (tests, CLI subcommands) without clashing.
type MetricsCollector struct {
	serviceName string
	registry    *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	activeConnections   prometheus.Gauge
	serviceInfo         *prometheus.GaugeVec

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	predictionsTotal  *prometheus.CounterVec
	lossProbability   prometheus.Histogram
	ingestionFailures *prometheus.CounterVec
}

func NewMetricsCollector(serviceName, version string) *MetricsCollector {
	mc := &MetricsCollector{
		serviceName: strings.ReplaceAll(serviceName, "-", "_"),
		registry:    prometheus.NewRegistry(),
	}

	mc.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.serviceName + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	mc.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    mc.serviceName + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
	mc.activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: mc.serviceName + "_active_connections",
			Help: "Number of in-flight HTTP requests",
		},
	)
	mc.serviceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: mc.serviceName + "_service_info",
			Help: "Service information",
		},
		[]string{"version"},
	)

	mc.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.serviceName + "_pipeline_operations_total",
			Help: "Pipeline operations by outcome",
		},
		[]string{"operation", "status"},
	)
	mc.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    mc.serviceName + "_pipeline_operation_duration_seconds",
			Help:    "Pipeline operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	mc.predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.serviceName + "_predictions_total",
			Help: "Sales loss predictions by risk level",
		},
		[]string{"risk_level"},
	)
	mc.lossProbability = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    mc.serviceName + "_loss_probability",
			Help:    "Distribution of predicted loss probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
	mc.ingestionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.serviceName + "_ingestion_failures_total",
			Help: "Upstream ingestion failures by source",
		},
		[]string{"source"},
	)

	mc.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		mc.httpRequestsTotal,
		mc.httpRequestDuration,
		mc.activeConnections,
		mc.serviceInfo,
		mc.operationsTotal,
		mc.operationDuration,
		mc.predictionsTotal,
		mc.lossProbability,
		mc.ingestionFailures,
	)
	mc.serviceInfo.WithLabelValues(version).Set(1)

	return mc
}

func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

func (mc *MetricsCollector) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		mc.activeConnections.Inc()
		defer mc.activeConnections.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := c.Request.Method
		mc.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		mc.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (mc *MetricsCollector) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// ObserveOperation records one pipeline call.
func (mc *MetricsCollector) ObserveOperation(operation string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	mc.operationsTotal.WithLabelValues(operation, status).Inc()
	mc.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (mc *MetricsCollector) ObservePrediction(riskLevel string, lossProbability float64) {
	mc.predictionsTotal.WithLabelValues(riskLevel).Inc()
	mc.lossProbability.Observe(lossProbability)
}

func (mc *MetricsCollector) ObserveIngestionFailure(source string) {
	mc.ingestionFailures.WithLabelValues(source).Inc()
}
