package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kart-io/axiomcore/pkg/infra/server/transport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouter_RegisterRoutes(t *testing.T) {
	engine := gin.New()
	var r transport.RouteRegistrar = New(Options{Version: "1.2.3"})
	r.RegisterRoutes(engine)

	for _, path := range []string{"/api/status", "/api/hello", "/api/ping"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	// SPA serving is off without a static dir
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_StaticDir(t *testing.T) {
	engine := gin.New()
	New(Options{Version: "1.2.3", StaticDir: t.TempDir()}).RegisterRoutes(engine)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Frontend build not found")
}
