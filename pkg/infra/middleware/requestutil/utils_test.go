package requestutil

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		xff     string
		xri     string
		trusted []string
		want    string
	}{
		{"no proxy headers", "203.0.113.7:5000", "", "", nil, "203.0.113.7"},
		{"untrusted forwarded header ignored", "203.0.113.7:5000", "1.2.3.4", "", nil, "203.0.113.7"},
		{"trusted single IP", "10.0.0.1:5000", "1.2.3.4, 10.0.0.1", "", []string{"10.0.0.1"}, "1.2.3.4"},
		{"trusted CIDR", "10.1.2.3:5000", "1.2.3.4", "", []string{"10.0.0.0/8"}, "1.2.3.4"},
		{"real ip fallback", "10.1.2.3:5000", "", "5.6.7.8", []string{"10.0.0.0/8"}, "5.6.7.8"},
		{"invalid forwarded value", "10.1.2.3:5000", "garbage", "", []string{"10.0.0.0/8"}, "10.1.2.3"},
		{"invalid CIDR skipped", "10.1.2.3:5000", "1.2.3.4", "", []string{"not-a-cidr/99"}, "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(req, tt.trusted); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsHTTPS(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if IsHTTPS(req) {
		t.Error("plain request should not be HTTPS")
	}

	req.Header.Set("X-Forwarded-Proto", "https")
	if !IsHTTPS(req) {
		t.Error("X-Forwarded-Proto https should count as HTTPS")
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.TLS = &tls.ConnectionState{}
	if !IsHTTPS(req) {
		t.Error("TLS request should be HTTPS")
	}
}
