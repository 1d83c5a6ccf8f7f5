package middleware

import (
	"errors"
	"time"

	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareRateLimit, func() MiddlewareConfig {
		return NewRateLimitOptions()
	})
}

var _ MiddlewareConfig = (*RateLimitOptions)(nil)

// RateLimitOptions 定义限流中间件的配置选项。
type RateLimitOptions struct {
	// Limit 是时间窗口内每个客户端 IP 允许的最大请求数。
	Limit int `json:"limit" mapstructure:"limit"`

	// Window 是限流时间窗口。
	Window time.Duration `json:"window" mapstructure:"window"`

	// Paths 是精确匹配的限流路径。
	Paths []string `json:"paths" mapstructure:"paths"`

	// PathPrefixes 是需要限流的路径前缀，其余路径不受限。
	PathPrefixes []string `json:"path-prefixes" mapstructure:"path-prefixes"`

	// TrustedProxies 是受信任的代理 IP 地址或 CIDR 范围列表。
	// 为空时，不信任代理头（X-Forwarded-For, X-Real-IP）。
	TrustedProxies []string `json:"trusted-proxies" mapstructure:"trusted-proxies"`

	// UseRedis 是否使用 Redis 作为限流器后端，连接参数取自 redis 配置段。
	UseRedis bool `json:"use-redis" mapstructure:"use-redis"`

	// KeyPrefix 是 Redis 中限流键的前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`
}

// NewRateLimitOptions 创建默认的限流选项：每分钟 100 次，仅作用于 /api。
func NewRateLimitOptions() *RateLimitOptions {
	return &RateLimitOptions{
		Limit:          100,
		Window:         time.Minute,
		Paths:          []string{"/api"},
		PathPrefixes:   []string{"/api/"},
		TrustedProxies: []string{},
		KeyPrefix:      "ratelimit:",
	}
}

// AddFlags 为限流选项添加标志到指定的 FlagSet。
func (o *RateLimitOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.rate-limit."

	fs.IntVar(&o.Limit, prefix+"limit", o.Limit, "Maximum number of requests per client IP within the window.")
	fs.DurationVar(&o.Window, prefix+"window", o.Window, "Rate limit window.")
	fs.StringSliceVar(&o.Paths, prefix+"paths", o.Paths, "Exact paths that are rate limited.")
	fs.StringSliceVar(&o.PathPrefixes, prefix+"path-prefixes", o.PathPrefixes, "Path prefixes that are rate limited.")
	fs.StringSliceVar(&o.TrustedProxies, prefix+"trusted-proxies", o.TrustedProxies, "Trusted proxy IP addresses or CIDR ranges.")
	fs.BoolVar(&o.UseRedis, prefix+"use-redis", o.UseRedis, "Use Redis as the rate limiter backend.")
	fs.StringVar(&o.KeyPrefix, prefix+"key-prefix", o.KeyPrefix, "Key prefix for Redis rate limit entries.")
}

// Validate 验证限流选项。
func (o *RateLimitOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Limit <= 0 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}
	if o.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}
	return errs
}

// Complete 完成限流选项的默认值设置。
func (o *RateLimitOptions) Complete() error {
	if o.KeyPrefix == "" {
		o.KeyPrefix = "ratelimit:"
	}
	return nil
}
