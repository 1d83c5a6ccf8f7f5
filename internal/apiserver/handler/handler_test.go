package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/axiomcore/pkg/utils/json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStatusHandler(t *testing.T) {
	h := NewStatusHandler("2.3.4")
	engine := gin.New()
	engine.GET("/api/status", h.Status)
	engine.GET("/api/hello", h.Hello)
	engine.GET("/api/ping", h.Ping)

	tests := []struct {
		path string
		want map[string]interface{}
	}{
		{
			path: "/api/status",
			want: map[string]interface{}{"status": "operational", "service": "AxiomCore API", "version": "2.3.4"},
		},
		{
			path: "/api/hello",
			want: map[string]interface{}{"message": "Hello from AxiomCore backend!"},
		},
		{
			path: "/api/ping",
			want: map[string]interface{}{"message": "pong"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(engine, http.MethodGet, tt.path)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, decode(t, w))
		})
	}
}

func newSPA(t *testing.T, withIndex bool) *gin.Engine {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "favicon.txt"), []byte("icon"), 0o644))
	if withIndex {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>spa</html>"), 0o644))
	}

	engine := gin.New()
	engine.GET("/api/status", NewStatusHandler("1.0.0").Status)
	NewSPAHandler(dir).RegisterRoutes(engine)
	return engine
}

func TestSPAHandler_WithBuild(t *testing.T) {
	engine := newSPA(t, true)

	t.Run("index", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "spa")
	})

	t.Run("asset", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/assets/app.js")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "console.log(1)", w.Body.String())
	})

	t.Run("static file", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/favicon.txt")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "icon", w.Body.String())
	})

	t.Run("client route falls back to index", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/dashboard/settings")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "spa")
	})

	t.Run("api path is not rewritten", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/api/nope")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, map[string]interface{}{"error": "Not Found", "path": "/api/nope"}, decode(t, w))
	})

	t.Run("non GET", func(t *testing.T) {
		w := serve(engine, http.MethodPost, "/dashboard")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("traversal", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = "/../../etc/passwd"
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSPAHandler_WithoutBuild(t *testing.T) {
	engine := newSPA(t, false)

	w := serve(engine, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{
		"status":  "ok",
		"message": "Frontend build not found. Run `npm run build` in /frontend.",
	}, decode(t, w))

	w = serve(engine, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]interface{}{"error": "Not Found", "path": "/nope"}, decode(t, w))
}
