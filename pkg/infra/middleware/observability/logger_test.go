package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

func TestLogger_PassesThrough(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"success", "/api/ok", http.StatusOK},
		{"client error", "/api/bad", http.StatusBadRequest},
		{"server error", "/api/boom", http.StatusInternalServerError},
		{"skipped path", "/metrics", http.StatusOK},
	}

	r := gin.New()
	r.Use(LoggerWithOptions(*mwopts.NewLoggerOptions()))
	for _, tt := range tests {
		status := tt.status
		r.GET(tt.path, func(c *gin.Context) {
			c.Status(status)
		})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestFieldsPool(t *testing.T) {
	fields := acquireFields()
	*fields = append(*fields, "k", "v")
	releaseFields(fields)

	again := acquireFields()
	if len(*again) != 0 {
		t.Errorf("pooled fields length = %d, want 0", len(*again))
	}
	releaseFields(again)
}
