// Package requestutil extracts request metadata shared by middleware.
package requestutil

import (
	"net"
	"net/http"
	"strings"

	"github.com/kart-io/logger"
)

// RemoteIP returns the IP of the directly connected peer.
func RemoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ClientIP returns the client IP address. X-Forwarded-For and X-Real-IP are
// only honored when the peer is one of trustedProxies, so forged headers
// from untrusted clients are ignored.
func ClientIP(r *http.Request, trustedProxies []string) string {
	remote := RemoteIP(r)
	if !IsTrustedProxy(remote, trustedProxies) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return remote
}

// IsTrustedProxy reports whether ip matches one of the trusted IPs or CIDR ranges.
func IsTrustedProxy(ip string, trusted []string) bool {
	if len(trusted) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, entry := range trusted {
		if !strings.Contains(entry, "/") {
			if entry == ip {
				return true
			}
			continue
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warnw("invalid CIDR in trusted proxies", "cidr", entry, "error", err.Error())
			continue
		}
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

// IsHTTPS reports whether the request arrived over TLS, directly or via a
// proxy setting X-Forwarded-Proto.
func IsHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
