package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	testingclock "k8s.io/utils/clock/testing"

	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
	"github.com/kart-io/axiomcore/pkg/utils/json"
)

func newHealthEngine(m *HealthManager) *gin.Engine {
	r := gin.New()
	RegisterHealthRoutesWithOptions(r, *mwopts.NewHealthOptions(), m)
	return r
}

func TestHealthEndpoint(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	fc := testingclock.NewFakePassiveClock(start)
	m := NewHealthManagerWithClock("production", "1.2.3", fc)
	fc.SetTime(start.Add(1500 * time.Millisecond))

	w := httptest.NewRecorder()
	newHealthEngine(m).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["message"] != "OK" {
		t.Errorf("message = %v", body["message"])
	}
	if uptime, ok := body["uptime"].(float64); !ok || uptime != 1.5 {
		t.Errorf("uptime = %v", body["uptime"])
	}
	if ts, ok := body["timestamp"].(float64); !ok || int64(ts) != start.Add(1500*time.Millisecond).UnixMilli() {
		t.Errorf("timestamp = %v", body["timestamp"])
	}
	if body["environment"] != "production" || body["version"] != "1.2.3" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestReadyEndpoint(t *testing.T) {
	m := NewHealthManager("development", "1.0.0")
	r := newHealthEngine(m)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	m.SetReady(false)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var body ReadyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "not ready" {
		t.Errorf("status = %q", body.Status)
	}

	// Liveness is unaffected by draining.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d while not ready", w.Code)
	}
}

func TestReadyEndpoint_FailingChecker(t *testing.T) {
	m := NewHealthManager("development", "1.0.0")
	m.RegisterChecker("redis", func() error { return errors.New("connection refused") })

	resp, ok := m.Ready()
	if ok {
		t.Fatal("expected not ready")
	}
	if resp.Checks["redis"] != "connection refused" {
		t.Errorf("checks = %v", resp.Checks)
	}
}

func TestReadyEndpoint_RedactsCheckerErrorsInProduction(t *testing.T) {
	for _, production := range []bool{false, true} {
		m := NewHealthManager("production", "1.0.0")
		m.RegisterChecker("redis", func() error { return errors.New("dial tcp 10.0.0.7:6379: connection refused") })

		r := gin.New()
		RegisterRoutes(r, mwopts.NewOptions(), &Runtime{Production: production, Health: m})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("production=%v: status = %d, want 503", production, w.Code)
		}

		var body ReadyResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := "dial tcp 10.0.0.7:6379: connection refused"
		if production {
			want = "unavailable"
		}
		if body.Checks["redis"] != want {
			t.Errorf("production=%v: checks = %v, want redis=%q", production, body.Checks, want)
		}
		if body.Status != "not ready" {
			t.Errorf("production=%v: status = %q", production, body.Status)
		}
	}
}
