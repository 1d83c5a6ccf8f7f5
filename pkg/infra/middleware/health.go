package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
	"k8s.io/utils/clock"
)

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Uptime      float64 `json:"uptime"`
	Message     string  `json:"message"`
	Timestamp   int64   `json:"timestamp"`
	Environment string  `json:"environment"`
	Version     string  `json:"version"`
}

// ReadyResponse is the body of the readiness endpoint.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker is a function that performs a readiness check.
type HealthChecker func() error

// HealthManager tracks process uptime, readiness and readiness checkers.
type HealthManager struct {
	mu          sync.RWMutex
	clock       clock.PassiveClock
	startedAt   time.Time
	checkers    map[string]HealthChecker
	ready       bool
	environment string
	version     string
	// redact hides checker errors from the readiness body.
	redact bool
}

// NewHealthManager creates a ready health manager.
func NewHealthManager(environment, version string) *HealthManager {
	return NewHealthManagerWithClock(environment, version, clock.RealClock{})
}

// NewHealthManagerWithClock creates a health manager reading time from clk.
func NewHealthManagerWithClock(environment, version string, clk clock.PassiveClock) *HealthManager {
	return &HealthManager{
		clock:       clk,
		startedAt:   clk.Now(),
		checkers:    make(map[string]HealthChecker),
		ready:       true,
		environment: environment,
		version:     version,
	}
}

// RegisterChecker registers a readiness checker.
func (h *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// SetReady sets the readiness status.
func (h *HealthManager) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// SetRedactErrors controls whether failing checkers report "unavailable"
// instead of their error text.
func (h *HealthManager) SetRedactErrors(redact bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redact = redact
}

// IsReady returns the readiness status.
func (h *HealthManager) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Health returns the liveness body.
func (h *HealthManager) Health() HealthResponse {
	now := h.clock.Now()
	return HealthResponse{
		Uptime:      now.Sub(h.startedAt).Seconds(),
		Message:     "OK",
		Timestamp:   now.UnixMilli(),
		Environment: h.environment,
		Version:     h.version,
	}
}

// Ready runs the readiness checkers. It reports not ready once SetReady(false)
// was called or any checker fails.
func (h *HealthManager) Ready() (ReadyResponse, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := ReadyResponse{
		Status:    "ready",
		Timestamp: h.clock.Now().UnixMilli(),
	}
	ok := h.ready

	for name, checker := range h.checkers {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(h.checkers))
		}
		if err := checker(); err != nil {
			ok = false
			if h.redact {
				logger.Warnw("readiness check failed", "check", name, "error", err.Error())
				resp.Checks[name] = "unavailable"
				continue
			}
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	if !ok {
		resp.Status = "not ready"
	}
	return resp, ok
}

// RegisterHealthRoutesWithOptions registers the health and readiness endpoints.
func RegisterHealthRoutesWithOptions(engine *gin.Engine, opts mwopts.HealthOptions, manager *HealthManager) {
	if opts.Path != "" {
		engine.GET(opts.Path, func(c *gin.Context) {
			c.JSON(http.StatusOK, manager.Health())
		})
	}

	if opts.ReadinessPath != "" {
		engine.GET(opts.ReadinessPath, func(c *gin.Context) {
			resp, ok := manager.Ready()
			if !ok {
				c.JSON(http.StatusServiceUnavailable, resp)
				return
			}
			c.JSON(http.StatusOK, resp)
		})
	}
}
