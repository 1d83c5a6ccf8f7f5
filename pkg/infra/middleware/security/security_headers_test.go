package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

func serveSecurityHeaders(opts mwopts.SecurityHeadersOptions, req *http.Request) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(SecurityHeadersWithOptions(opts))
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_Defaults(t *testing.T) {
	opts := *mwopts.NewSecurityHeadersOptions()
	w := serveSecurityHeaders(opts, httptest.NewRequest(http.MethodGet, "/test", nil))

	expected := map[string]string{
		HeaderContentSecurityPolicy:         opts.ContentSecurityPolicy,
		HeaderCrossOriginOpenerPolicy:       "same-origin",
		HeaderCrossOriginResourcePolicy:     "same-origin",
		HeaderOriginAgentCluster:            "?1",
		HeaderReferrerPolicy:                "no-referrer",
		HeaderXContentTypeOptions:           "nosniff",
		HeaderXDNSPrefetchControl:           "off",
		HeaderXDownloadOptions:              "noopen",
		HeaderXFrameOptions:                 "SAMEORIGIN",
		HeaderXPermittedCrossDomainPolicies: "none",
		HeaderXXSSProtection:                "0",
	}
	for header, want := range expected {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}

	if got := w.Header().Get(HeaderStrictTransportSecurity); got != "" {
		t.Errorf("HSTS must not be sent over plain HTTP, got %q", got)
	}
}

func TestSecurityHeaders_HSTSOverHTTPS(t *testing.T) {
	tests := []struct {
		name    string
		preload bool
		want    string
	}{
		{"default", false, "max-age=15552000; includeSubDomains"},
		{"preload", true, "max-age=15552000; includeSubDomains; preload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := *mwopts.NewSecurityHeadersOptions()
			opts.HSTSPreload = tt.preload

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("X-Forwarded-Proto", "https")
			w := serveSecurityHeaders(opts, req)

			if got := w.Header().Get(HeaderStrictTransportSecurity); got != tt.want {
				t.Errorf("HSTS = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSecurityHeaders_EmptyValuesSkipped(t *testing.T) {
	opts := *mwopts.NewSecurityHeadersOptions()
	opts.ContentSecurityPolicy = ""
	opts.FrameOptionsValue = ""
	opts.EnableContentTypeOptions = false

	w := serveSecurityHeaders(opts, httptest.NewRequest(http.MethodGet, "/test", nil))

	for _, header := range []string{HeaderContentSecurityPolicy, HeaderXFrameOptions, HeaderXContentTypeOptions} {
		if got := w.Header().Get(header); got != "" {
			t.Errorf("%s should not be set, got %q", header, got)
		}
	}
}

func TestSecurityHeaders_HidePoweredByBeforeHandler(t *testing.T) {
	opts := *mwopts.NewSecurityHeadersOptions()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header(HeaderXPoweredBy, "upstream")
		c.Next()
	})
	r.Use(SecurityHeadersWithOptions(opts))
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if got := w.Header().Get(HeaderXPoweredBy); got != "" {
		t.Errorf("X-Powered-By = %q, want removed", got)
	}
}
