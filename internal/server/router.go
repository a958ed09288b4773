package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sentiment-sales-risk/internal/interfaces"
	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/monitoring"
)

type RouterConfig struct {
	Pipeline    interfaces.Pipeline
	Metrics     *monitoring.MetricsCollector
	Health      *monitoring.HealthChecker
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.MetricsMiddleware())
	}
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	h := NewHandler(cfg.Pipeline)

	if cfg.Health != nil {
		router.GET("/healthcheck", cfg.Health.Handler())
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", cfg.Metrics.Handler())
	}

	router.POST("/analyze-sentiment", h.AnalyzeSentiment)
	router.POST("/predict-sales-loss", h.PredictSalesLoss)
	router.GET("/get-dashboard-data", h.GetDashboardData)
	router.GET("/comments", h.GetComments)
	router.NoRoute(h.NotFound)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		if c.Writer.Status() >= 500 {
			logger.Error(c.Request.Context(), "HTTP request failed", fields...)
			return
		}
		logger.Info(c.Request.Context(), "HTTP request", fields...)
	}
}
