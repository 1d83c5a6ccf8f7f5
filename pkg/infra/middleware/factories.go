// Package middleware assembles the HTTP middleware chain from the middleware
// options registry. Each built-in middleware registers a factory in init().
package middleware

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/kart-io/axiomcore/pkg/infra/middleware/observability"
	"github.com/kart-io/axiomcore/pkg/infra/middleware/performance"
	"github.com/kart-io/axiomcore/pkg/infra/middleware/resilience"
	"github.com/kart-io/axiomcore/pkg/infra/middleware/security"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

// Runtime carries the dependencies middleware needs beyond their options.
// Zero values select in-process defaults.
type Runtime struct {
	// Production redacts 5xx messages in the error boundary.
	Production bool

	// TracingEnabled turns the tracing middleware on.
	TracingEnabled bool

	// Redis backs the rate limiter when rate-limit.use-redis is set.
	Redis redis.UniversalClient

	// RateLimiter overrides the limiter selected from options.
	RateLimiter resilience.RateLimiter

	// Metrics holds the collectors shared by the middleware and /metrics.
	Metrics *observability.Metrics

	// Health backs /health and /ready.
	Health *HealthManager

	// OnPanic is called after a panic is recovered.
	OnPanic resilience.PanicHandler
}

// Factory creates one middleware from its options.
type Factory interface {
	Name() string
	Create(cfg mwopts.MiddlewareConfig, rt *Runtime) (gin.HandlerFunc, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc struct {
	name   string
	create func(cfg mwopts.MiddlewareConfig, rt *Runtime) (gin.HandlerFunc, error)
}

// Name implements Factory.
func (f FactoryFunc) Name() string { return f.name }

// Create implements Factory.
func (f FactoryFunc) Create(cfg mwopts.MiddlewareConfig, rt *Runtime) (gin.HandlerFunc, error) {
	return f.create(cfg, rt)
}

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a middleware factory. It panics on duplicates.
func RegisterFactory(f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if _, exists := factories[f.Name()]; exists {
		panic(fmt.Sprintf("middleware factory %q already registered", f.Name()))
	}
	factories[f.Name()] = f
}

// RegisteredFactories returns the sorted names of registered factories.
func RegisteredFactories() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// typed is a helper for factories expecting *T options.
func typed[T any](name string, create func(opts *T, rt *Runtime) (gin.HandlerFunc, error)) Factory {
	return FactoryFunc{
		name: name,
		create: func(cfg mwopts.MiddlewareConfig, rt *Runtime) (gin.HandlerFunc, error) {
			opts, ok := any(cfg).(*T)
			if !ok {
				return nil, fmt.Errorf("invalid config type for %s: %T", name, cfg)
			}
			return create(opts, rt)
		},
	}
}

func init() {
	RegisterFactory(typed(mwopts.MiddlewareRecovery, func(opts *mwopts.RecoveryOptions, rt *Runtime) (gin.HandlerFunc, error) {
		o := *opts
		o.Production = o.Production || rt.Production
		return resilience.RecoveryWithOptions(o, rt.OnPanic), nil
	}))
	RegisterFactory(typed(mwopts.MiddlewareRequestID, func(opts *mwopts.RequestIDOptions, _ *Runtime) (gin.HandlerFunc, error) {
		return RequestIDWithOptions(*opts, nil), nil
	}))
	RegisterFactory(typed(mwopts.MiddlewareSecurityHeaders, func(opts *mwopts.SecurityHeadersOptions, _ *Runtime) (gin.HandlerFunc, error) {
		return security.SecurityHeadersWithOptions(*opts), nil
	}))
	RegisterFactory(typed(mwopts.MiddlewareCORS, func(opts *mwopts.CORSOptions, _ *Runtime) (gin.HandlerFunc, error) {
		return security.CORSWithOptions(*opts), nil
	}))
	RegisterFactory(typed(mwopts.MiddlewareTracing, func(opts *mwopts.TracingOptions, rt *Runtime) (gin.HandlerFunc, error) {
		if !rt.TracingEnabled {
			return nil, nil
		}
		return observability.TracingWithOptions(*opts), nil
	}))
	RegisterFactory(typed(mwopts.MiddlewareMetrics, func(opts *mwopts.MetricsOptions, rt *Runtime) (gin.HandlerFunc, error) {
		if rt.Metrics == nil {
			rt.Metrics = observability.NewMetrics(opts.Namespace, opts.Subsystem)
		}
		return observability.MetricsWithOptions(*opts, rt.Metrics), nil
	}))
	RegisterFactory(typed(mwopts.MiddlewareBodyLimit, func(opts *mwopts.BodyLimitOptions, _ *Runtime) (gin.HandlerFunc, error) {
		return resilience.BodyLimitWithOptions(*opts), nil
	}))
	RegisterFactory(typed(mwopts.MiddlewareLogger, func(opts *mwopts.LoggerOptions, _ *Runtime) (gin.HandlerFunc, error) {
		return observability.LoggerWithOptions(*opts), nil
	}))
	RegisterFactory(typed(mwopts.MiddlewareRateLimit, func(opts *mwopts.RateLimitOptions, rt *Runtime) (gin.HandlerFunc, error) {
		limiter := rt.RateLimiter
		if limiter == nil {
			if opts.UseRedis {
				if rt.Redis == nil {
					return nil, fmt.Errorf("rate-limit: use-redis is set but no redis client is configured")
				}
				limiter = resilience.NewRedisRateLimiter(rt.Redis, opts.Limit, opts.Window,
					resilience.WithKeyPrefix(opts.KeyPrefix))
			} else {
				limiter = resilience.NewMemoryRateLimiter(opts.Limit, opts.Window)
			}
			rt.RateLimiter = limiter
		}
		return resilience.RateLimitWithOptions(*opts, limiter), nil
	}))
	RegisterFactory(typed(mwopts.MiddlewareCompression, func(opts *mwopts.CompressionOptions, _ *Runtime) (gin.HandlerFunc, error) {
		return performance.CompressionWithOptions(*opts), nil
	}))
}

// Build creates the enabled middleware in order. Middleware without a
// factory (health) and factories returning nil are skipped.
func Build(opts *mwopts.Options, rt *Runtime) ([]gin.HandlerFunc, error) {
	if rt == nil {
		rt = &Runtime{}
	}

	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	var chain []gin.HandlerFunc
	for _, name := range opts.GetMiddlewareOrder() {
		cfg := opts.GetConfig(name)
		if cfg == nil {
			continue
		}
		f, ok := factories[name]
		if !ok {
			continue
		}
		h, err := f.Create(cfg, rt)
		if err != nil {
			return nil, fmt.Errorf("middleware %s: %w", name, err)
		}
		if h != nil {
			chain = append(chain, h)
		}
	}
	return chain, nil
}

// RegisterRoutes registers the endpoints owned by middleware: /health and
// /ready when health is enabled, /metrics when metrics is enabled.
func RegisterRoutes(engine *gin.Engine, opts *mwopts.Options, rt *Runtime) {
	if rt == nil {
		rt = &Runtime{}
	}

	if cfg, ok := mwopts.GetConfigTyped[*mwopts.HealthOptions](opts, mwopts.MiddlewareHealth); ok {
		if rt.Health == nil {
			rt.Health = NewHealthManager("", "")
		}
		rt.Health.SetRedactErrors(rt.Production)
		RegisterHealthRoutesWithOptions(engine, *cfg, rt.Health)
	}

	if cfg, ok := mwopts.GetConfigTyped[*mwopts.MetricsOptions](opts, mwopts.MiddlewareMetrics); ok {
		if rt.Metrics == nil {
			rt.Metrics = observability.NewMetrics(cfg.Namespace, cfg.Subsystem)
		}
		observability.RegisterMetricsRoutesWithOptions(engine, *cfg, rt.Metrics)
	}
}
