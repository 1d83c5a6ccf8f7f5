package resilience

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
	"github.com/kart-io/axiomcore/pkg/utils/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRecoveryEngine(production bool, onPanic PanicHandler) *gin.Engine {
	opts := *mwopts.NewRecoveryOptions()
	opts.Production = production
	opts.EnableStackTrace = false

	r := gin.New()
	r.Use(RecoveryWithOptions(opts, onPanic))
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRecovery_NoPanic(t *testing.T) {
	r := newRecoveryEngine(false, nil)
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, http.MethodGet, "/test")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("Expected body ok, got %q", w.Body.String())
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		wantBody   string
	}{
		{"development exposes message", false, `{"error":"boom"}`},
		{"production redacts message", true, `{"error":"Internal Server Error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRecoveryEngine(tt.production, nil)
			r.GET("/panic", func(_ *gin.Context) {
				panic("boom")
			})

			w := serve(r, http.MethodGet, "/panic")

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("Expected status 500, got %d", w.Code)
			}
			if got := w.Body.String(); got != tt.wantBody {
				t.Errorf("body = %s, want %s", got, tt.wantBody)
			}
		})
	}
}

func TestRecovery_PanicHandler(t *testing.T) {
	var (
		called   bool
		gotValue interface{}
		gotStack []byte
	)
	r := newRecoveryEngine(false, func(_ *gin.Context, err interface{}, stack []byte) {
		called = true
		gotValue = err
		gotStack = stack
	})
	r.GET("/panic", func(_ *gin.Context) {
		panic(fmt.Errorf("wrapped"))
	})

	serve(r, http.MethodGet, "/panic")

	if !called {
		t.Fatal("Expected panic handler to be called")
	}
	if err, ok := gotValue.(error); !ok || err.Error() != "wrapped" {
		t.Errorf("panic value = %v", gotValue)
	}
	if len(gotStack) == 0 {
		t.Error("Expected stack to be captured")
	}
}

func TestRecovery_HandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		production bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "plain error in development",
			err:        fmt.Errorf("db exploded"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"db exploded"}`,
		},
		{
			name:       "plain error in production",
			err:        fmt.Errorf("db exploded"),
			production: true,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Internal Server Error"}`,
		},
		{
			name:       "registered client error keeps message in production",
			err:        errors.ErrTooManyRequests,
			production: true,
			wantStatus: http.StatusTooManyRequests,
			wantBody:   `{"error":"Too many requests from this IP, please try again later."}`,
		},
		{
			name:       "wrapped client error",
			err:        fmt.Errorf("handler: %w", errors.ErrNotFound),
			production: true,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Not Found"}`,
		},
		{
			name:       "server errno with custom message in development",
			err:        errors.ErrServiceUnavailable.WithMessage("warming up"),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"error":"warming up"}`,
		},
		{
			name:       "server errno with custom message in production",
			err:        errors.ErrServiceUnavailable.WithMessage("warming up"),
			production: true,
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"error":"Internal Server Error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRecoveryEngine(tt.production, nil)
			r.GET("/fail", func(c *gin.Context) {
				_ = c.Error(tt.err)
			})

			w := serve(r, http.MethodGet, "/fail")

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Body.String(); got != tt.wantBody {
				t.Errorf("body = %s, want %s", got, tt.wantBody)
			}
		})
	}
}

func TestRecovery_ErrorAfterWriteIsIgnored(t *testing.T) {
	r := newRecoveryEngine(false, nil)
	r.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusAccepted, "accepted")
		_ = c.Error(fmt.Errorf("late failure"))
	})

	w := serve(r, http.MethodGet, "/partial")

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
	if strings.Contains(w.Body.String(), "late failure") {
		t.Errorf("unexpected error body: %s", w.Body.String())
	}
}

func TestPublicMessage(t *testing.T) {
	unregistered := &errors.Errno{Code: 9999999, HTTP: http.StatusBadRequest, MessageEN: "secret detail"}

	tests := []struct {
		name       string
		err        error
		production bool
		want       string
	}{
		{"unregistered errno production", unregistered, true, "Internal Server Error"},
		{"unregistered errno development", unregistered, false, "secret detail"},
		{"registered 4xx copy", errors.ErrBadRequest.WithMessage("port must be numeric"), true, "port must be numeric"},
		{"panic production", errors.ErrPanic.WithMessage("nil map"), true, "Internal Server Error"},
		{"plain development", fmt.Errorf("x"), false, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicMessage(tt.err, tt.production); got != tt.want {
				t.Errorf("PublicMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
