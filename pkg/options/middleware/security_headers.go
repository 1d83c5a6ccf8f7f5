package middleware

import (
	"errors"

	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareSecurityHeaders, func() MiddlewareConfig {
		return NewSecurityHeadersOptions()
	})
}

var _ MiddlewareConfig = (*SecurityHeadersOptions)(nil)

// SecurityHeadersOptions 定义安全头中间件的配置选项。
// 默认值与常见的 helmet 默认集合一致。
type SecurityHeadersOptions struct {
	// ContentSecurityPolicy 是 Content-Security-Policy 头的值，为空时不设置。
	ContentSecurityPolicy string `json:"content-security-policy" mapstructure:"content-security-policy"`

	CrossOriginOpenerPolicy   string `json:"cross-origin-opener-policy" mapstructure:"cross-origin-opener-policy"`
	CrossOriginResourcePolicy string `json:"cross-origin-resource-policy" mapstructure:"cross-origin-resource-policy"`
	OriginAgentCluster        bool   `json:"origin-agent-cluster" mapstructure:"origin-agent-cluster"`
	ReferrerPolicy            string `json:"referrer-policy" mapstructure:"referrer-policy"`

	// HSTS 仅在 HTTPS 请求（或 X-Forwarded-Proto: https）上发送。
	EnableHSTS            bool `json:"enable-hsts" mapstructure:"enable-hsts"`
	HSTSMaxAge            int  `json:"hsts-max-age" mapstructure:"hsts-max-age"`
	HSTSIncludeSubdomains bool `json:"hsts-include-subdomains" mapstructure:"hsts-include-subdomains"`
	HSTSPreload           bool `json:"hsts-preload" mapstructure:"hsts-preload"`

	EnableContentTypeOptions bool   `json:"enable-content-type-options" mapstructure:"enable-content-type-options"`
	DNSPrefetchControl       string `json:"dns-prefetch-control" mapstructure:"dns-prefetch-control"`
	DownloadOptions          string `json:"download-options" mapstructure:"download-options"`

	// FrameOptionsValue 是 X-Frame-Options 的值（DENY, SAMEORIGIN），为空时不设置。
	FrameOptionsValue string `json:"frame-options-value" mapstructure:"frame-options-value"`

	PermittedCrossDomainPolicies string `json:"permitted-cross-domain-policies" mapstructure:"permitted-cross-domain-policies"`

	// XSSProtectionValue 为 "0" 表示关闭浏览器内置的 XSS 过滤器。
	XSSProtectionValue string `json:"xss-protection-value" mapstructure:"xss-protection-value"`

	// HidePoweredBy 删除 X-Powered-By 响应头。
	HidePoweredBy bool `json:"hide-powered-by" mapstructure:"hide-powered-by"`
}

// NewSecurityHeadersOptions 创建默认的安全头选项。
func NewSecurityHeadersOptions() *SecurityHeadersOptions {
	return &SecurityHeadersOptions{
		ContentSecurityPolicy: "default-src 'self';base-uri 'self';font-src 'self' https: data:;" +
			"form-action 'self';frame-ancestors 'self';img-src 'self' data:;object-src 'none';" +
			"script-src 'self';script-src-attr 'none';style-src 'self' https: 'unsafe-inline';" +
			"upgrade-insecure-requests",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		OriginAgentCluster:        true,
		ReferrerPolicy:            "no-referrer",

		EnableHSTS:            true,
		HSTSMaxAge:            15552000,
		HSTSIncludeSubdomains: true,

		EnableContentTypeOptions:     true,
		DNSPrefetchControl:           "off",
		DownloadOptions:              "noopen",
		FrameOptionsValue:            "SAMEORIGIN",
		PermittedCrossDomainPolicies: "none",
		XSSProtectionValue:           "0",
		HidePoweredBy:                true,
	}
}

// AddFlags 为安全头选项添加标志到指定的 FlagSet。
func (o *SecurityHeadersOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.security-headers."

	fs.StringVar(&o.ContentSecurityPolicy, prefix+"content-security-policy", o.ContentSecurityPolicy, "Content-Security-Policy header value.")
	fs.StringVar(&o.ReferrerPolicy, prefix+"referrer-policy", o.ReferrerPolicy, "Referrer-Policy header value.")
	fs.BoolVar(&o.EnableHSTS, prefix+"enable-hsts", o.EnableHSTS, "Send Strict-Transport-Security on HTTPS requests.")
	fs.IntVar(&o.HSTSMaxAge, prefix+"hsts-max-age", o.HSTSMaxAge, "HSTS max-age in seconds.")
	fs.BoolVar(&o.HSTSIncludeSubdomains, prefix+"hsts-include-subdomains", o.HSTSIncludeSubdomains, "Include subdomains in HSTS.")
	fs.BoolVar(&o.HSTSPreload, prefix+"hsts-preload", o.HSTSPreload, "Enable HSTS preload.")
	fs.StringVar(&o.FrameOptionsValue, prefix+"frame-options-value", o.FrameOptionsValue, "X-Frame-Options header value (DENY, SAMEORIGIN).")
}

// Validate 验证安全头选项。
func (o *SecurityHeadersOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.EnableHSTS && o.HSTSMaxAge < 0 {
		errs = append(errs, errors.New("security-headers: HSTSMaxAge must be non-negative"))
	}
	switch o.FrameOptionsValue {
	case "", "DENY", "SAMEORIGIN":
	default:
		errs = append(errs, errors.New("security-headers: FrameOptionsValue must be DENY or SAMEORIGIN"))
	}
	return errs
}

// Complete 完成安全头选项的默认值设置。
func (o *SecurityHeadersOptions) Complete() error {
	return nil
}
