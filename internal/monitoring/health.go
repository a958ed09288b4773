package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthStatus struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp int64                  `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type HealthCheck func(ctx context.Context) CheckResult

type HealthChecker struct {
	service string
	version string

	mu     sync.RWMutex
	checks map[string]HealthCheck
}

func NewHealthChecker(service, version string) *HealthChecker {
	return &HealthChecker{
		service: service,
		version: version,
		checks:  make(map[string]HealthCheck),
	}
}

func (hc *HealthChecker) AddCheck(name string, check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// CheckHealth runs every check. Any unhealthy (or unknown) result makes the
// whole service unhealthy; otherwise any degraded result degrades it.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheck, len(hc.checks))
	for k, v := range hc.checks {
		checks[k] = v
	}
	hc.mu.RUnlock()
	sort.Strings(names)

	status := HealthStatus{
		Service:   hc.service,
		Version:   hc.version,
		Timestamp: time.Now().Unix(),
		Checks:    make(map[string]CheckResult, len(names)),
	}

	anyUnhealthy, anyDegraded := false, false
	for _, name := range names {
		result := checks[name](ctx)
		status.Checks[name] = result
		switch result.Status {
		case StatusHealthy:
		case StatusDegraded:
			anyDegraded = true
		default:
			anyUnhealthy = true
		}
	}

	switch {
	case anyUnhealthy:
		status.Status = StatusUnhealthy
	case anyDegraded:
		status.Status = StatusDegraded
	default:
		status.Status = StatusHealthy
	}
	return status
}

func (hc *HealthChecker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		health := hc.CheckHealth(c.Request.Context())
		code := http.StatusOK
		if health.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, health)
	}
}

// Pinger is anything with a context-aware liveness probe, e.g. the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseHealthCheck pings the database with a 5s budget.
func DatabaseHealthCheck(db Pinger) HealthCheck {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		if db == nil {
			return CheckResult{Status: StatusUnhealthy, Message: "Database connection is nil"}
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := db.Ping(ctx)
		latency := time.Since(start).String()
		if err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("Database ping failed: %v", err),
				Latency: latency,
			}
		}
		return CheckResult{Status: StatusHealthy, Message: "Database connection successful", Latency: latency}
	}
}

// IngestionHealthCheck reports degraded when live ingestion is enabled but
// the YouTube key is missing; analysis still works on stored posts.
func IngestionHealthCheck(enabled bool, apiKey string) HealthCheck {
	return func(context.Context) CheckResult {
		switch {
		case !enabled:
			return CheckResult{Status: StatusHealthy, Message: "Ingestion disabled"}
		case apiKey == "":
			return CheckResult{Status: StatusDegraded, Message: "YouTube API key not configured"}
		default:
			return CheckResult{Status: StatusHealthy, Message: "Ingestion configured"}
		}
	}
}
