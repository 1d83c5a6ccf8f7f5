package security

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/axiomcore/pkg/infra/middleware/requestutil"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

// Security header constants.
const (
	HeaderContentSecurityPolicy         = "Content-Security-Policy"
	HeaderCrossOriginOpenerPolicy       = "Cross-Origin-Opener-Policy"
	HeaderCrossOriginResourcePolicy     = "Cross-Origin-Resource-Policy"
	HeaderOriginAgentCluster            = "Origin-Agent-Cluster"
	HeaderReferrerPolicy                = "Referrer-Policy"
	HeaderStrictTransportSecurity       = "Strict-Transport-Security"
	HeaderXContentTypeOptions           = "X-Content-Type-Options"
	HeaderXDNSPrefetchControl           = "X-DNS-Prefetch-Control"
	HeaderXDownloadOptions              = "X-Download-Options"
	HeaderXFrameOptions                 = "X-Frame-Options"
	HeaderXPermittedCrossDomainPolicies = "X-Permitted-Cross-Domain-Policies"
	HeaderXXSSProtection                = "X-XSS-Protection"
	HeaderXPoweredBy                    = "X-Powered-By"
)

// SecurityHeaders returns a middleware that adds security headers with default options.
func SecurityHeaders() gin.HandlerFunc {
	return SecurityHeadersWithOptions(*mwopts.NewSecurityHeadersOptions())
}

// SecurityHeadersWithOptions returns a middleware that adds security headers with custom options.
// 空字符串的头值表示不设置该头。
//
// 示例：
//
//	opts := mwopts.NewSecurityHeadersOptions()
//	opts.FrameOptionsValue = "DENY"
//	security.SecurityHeadersWithOptions(*opts)
func SecurityHeadersWithOptions(opts mwopts.SecurityHeadersOptions) gin.HandlerFunc {
	static := make([][2]string, 0, 12)
	set := func(name, value string) {
		if value != "" {
			static = append(static, [2]string{name, value})
		}
	}

	set(HeaderContentSecurityPolicy, opts.ContentSecurityPolicy)
	set(HeaderCrossOriginOpenerPolicy, opts.CrossOriginOpenerPolicy)
	set(HeaderCrossOriginResourcePolicy, opts.CrossOriginResourcePolicy)
	if opts.OriginAgentCluster {
		set(HeaderOriginAgentCluster, "?1")
	}
	set(HeaderReferrerPolicy, opts.ReferrerPolicy)
	if opts.EnableContentTypeOptions {
		set(HeaderXContentTypeOptions, "nosniff")
	}
	set(HeaderXDNSPrefetchControl, opts.DNSPrefetchControl)
	set(HeaderXDownloadOptions, opts.DownloadOptions)
	set(HeaderXFrameOptions, opts.FrameOptionsValue)
	set(HeaderXPermittedCrossDomainPolicies, opts.PermittedCrossDomainPolicies)
	set(HeaderXXSSProtection, opts.XSSProtectionValue)

	hsts := fmt.Sprintf("max-age=%d", opts.HSTSMaxAge)
	if opts.HSTSIncludeSubdomains {
		hsts += "; includeSubDomains"
	}
	if opts.HSTSPreload {
		hsts += "; preload"
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range static {
			h.Set(kv[0], kv[1])
		}

		if opts.EnableHSTS && requestutil.IsHTTPS(c.Request) {
			h.Set(HeaderStrictTransportSecurity, hsts)
		}

		if opts.HidePoweredBy {
			h.Del(HeaderXPoweredBy)
		}

		c.Next()
	}
}
