package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/axiomcore/pkg/infra/middleware/resilience"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

func buildEngine(t *testing.T, opts *mwopts.Options, rt *Runtime) *gin.Engine {
	t.Helper()

	chain, err := Build(opts, rt)
	require.NoError(t, err)

	r := gin.New()
	r.Use(chain...)
	RegisterRoutes(r, opts, rt)
	r.GET("/api/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/api/boom", func(_ *gin.Context) {
		panic("kaboom")
	})
	return r
}

func TestRegisteredFactories(t *testing.T) {
	names := RegisteredFactories()
	for _, name := range mwopts.DefaultMiddlewareOrder() {
		assert.Contains(t, names, name)
	}
}

func TestFactory_ConfigType(t *testing.T) {
	f := typed(mwopts.MiddlewareBodyLimit, func(opts *mwopts.BodyLimitOptions, _ *Runtime) (gin.HandlerFunc, error) {
		return resilience.BodyLimitWithOptions(*opts), nil
	})

	h, err := f.Create(mwopts.NewBodyLimitOptions(), &Runtime{})
	require.NoError(t, err)
	assert.NotNil(t, h)

	_, err = f.Create(mwopts.NewCORSOptions(), &Runtime{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config type for body-limit")
}

func TestBuild_DefaultChainLength(t *testing.T) {
	opts := mwopts.NewOptions()
	chain, err := Build(opts, &Runtime{})
	require.NoError(t, err)

	// tracing is skipped without a provider
	assert.Len(t, chain, len(opts.GetMiddlewareOrder())-1)
}

func TestBuild_DefaultChain(t *testing.T) {
	rt := &Runtime{}
	r := buildEngine(t, mwopts.NewOptions(), rt)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "https://example.com")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderXRequestID))
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "100", w.Header().Get(resilience.HeaderRateLimitLimit))
	assert.Equal(t, "99", w.Header().Get(resilience.HeaderRateLimitRemaining))

	assert.NotNil(t, rt.Metrics, "metrics collectors should be created")
	assert.NotNil(t, rt.RateLimiter, "memory limiter should be created")
	assert.NotNil(t, rt.Health, "health manager should be created")
}

func TestBuild_PanicIsRedactedInProduction(t *testing.T) {
	r := buildEngine(t, mwopts.NewOptions(), &Runtime{Production: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(HeaderXRequestID))
}

func TestBuild_WithoutMiddleware(t *testing.T) {
	opts := mwopts.NewOptions(mwopts.WithoutRateLimit(), mwopts.WithoutMetrics())
	rt := &Runtime{}
	r := buildEngine(t, opts, rt)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Empty(t, w.Header().Get(resilience.HeaderRateLimitLimit))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Nil(t, rt.Metrics)
}

func TestBuild_RoutesHealthAndMetrics(t *testing.T) {
	rt := &Runtime{Health: NewHealthManager("test", "1.0.0")}
	rt.Health.SetReady(true)
	r := buildEngine(t, mwopts.NewOptions(), rt)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "axiomcore_http_requests_total"))
}

func TestBuild_RedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts := mwopts.NewOptions(
		mwopts.WithRateLimit(1),
		mwopts.Configure(mwopts.MiddlewareRateLimit, func(cfg *mwopts.RateLimitOptions) {
			cfg.UseRedis = true
		}),
	)
	rt := &Runtime{Redis: client}
	r := buildEngine(t, opts, rt)

	_, ok := rt.RateLimiter.(*resilience.RedisRateLimiter)
	require.True(t, ok, "expected redis limiter, got %T", rt.RateLimiter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get(resilience.HeaderRetryAfter))
}

func TestBuild_RedisRequiredWhenConfigured(t *testing.T) {
	opts := mwopts.NewOptions(mwopts.Configure(mwopts.MiddlewareRateLimit, func(cfg *mwopts.RateLimitOptions) {
		cfg.UseRedis = true
	}))

	_, err := Build(opts, &Runtime{})
	assert.Error(t, err)
}

func TestBuild_TracingOnlyWhenEnabled(t *testing.T) {
	opts := mwopts.NewOptions()

	without, err := Build(opts, &Runtime{})
	require.NoError(t, err)
	with, err := Build(opts, &Runtime{TracingEnabled: true})
	require.NoError(t, err)

	assert.Equal(t, len(without)+1, len(with))
}
