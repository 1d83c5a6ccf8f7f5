package middleware

import (
	"fmt"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigError 表示配置错误。
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %q: %s", e.Field, e.Message)
	}
	return e.Message
}

// 中间件名称常量。
const (
	MiddlewareRecovery        = "recovery"
	MiddlewareRequestID       = "request-id"
	MiddlewareSecurityHeaders = "security-headers"
	MiddlewareCORS            = "cors"
	MiddlewareTracing         = "tracing"
	MiddlewareMetrics         = "metrics"
	MiddlewareBodyLimit       = "body-limit"
	MiddlewareLogger          = "logger"
	MiddlewareRateLimit       = "rate-limit"
	MiddlewareCompression     = "compression"
	MiddlewareHealth          = "health"
)

// Options 中间件配置集合。
// configs 中存在的中间件即为启用，Middleware 控制应用顺序。
type Options struct {
	// Middleware 指定中间件的应用顺序，为空时使用默认顺序。
	Middleware []string `json:"middleware" mapstructure:"middleware"`

	mu      sync.RWMutex
	configs map[string]MiddlewareConfig
}

// Option is a function that configures Options.
type Option func(*Options)

// NewOptions 创建默认中间件选项，默认顺序中的中间件全部启用。
func NewOptions(opts ...Option) *Options {
	o := &Options{
		configs: make(map[string]MiddlewareConfig),
	}

	for _, name := range append(DefaultMiddlewareOrder(), MiddlewareHealth) {
		if cfg, err := Create(name); err == nil {
			o.configs[name] = cfg
		}
	}

	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DefaultMiddlewareOrder 返回默认的中间件应用顺序。
func DefaultMiddlewareOrder() []string {
	return []string{
		MiddlewareRecovery,  // 最外层，捕获 panic 和处理器错误
		MiddlewareRequestID, // 为后续中间件提供 RequestID
		MiddlewareSecurityHeaders,
		MiddlewareCORS,
		MiddlewareTracing, // 仅在 tracing.enabled 时生效
		MiddlewareMetrics,
		MiddlewareBodyLimit,
		MiddlewareLogger,
		MiddlewareRateLimit,
		MiddlewareCompression,
	}
}

// LoadFromViper 从 viper 的 middleware 段加载配置。
// 只覆盖配置文件中出现的中间件，其余保持默认。
func (o *Options) LoadFromViper(v *viper.Viper) error {
	if v == nil {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.configs == nil {
		o.configs = make(map[string]MiddlewareConfig)
	}

	if v.IsSet("middleware.middleware") {
		if err := v.UnmarshalKey("middleware.middleware", &o.Middleware); err != nil {
			return fmt.Errorf("unmarshal middleware order: %w", err)
		}
	}

	for _, name := range ListRegistered() {
		key := "middleware." + name
		if !v.IsSet(key) {
			continue
		}

		cfg, ok := o.configs[name]
		if !ok || cfg == nil {
			created, err := Create(name)
			if err != nil {
				return fmt.Errorf("create config for %s: %w", name, err)
			}
			cfg = created
		}

		if err := v.UnmarshalKey(key, cfg); err != nil {
			return fmt.Errorf("unmarshal config for %s: %w", name, err)
		}
		o.configs[name] = cfg
	}

	return nil
}

// GetConfig 获取指定中间件的配置。
func (o *Options) GetConfig(name string) MiddlewareConfig {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.configs == nil {
		return nil
	}
	return o.configs[name]
}

// GetOrCreate 获取或创建配置实例。
func (o *Options) GetOrCreate(name string) MiddlewareConfig {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.configs == nil {
		o.configs = make(map[string]MiddlewareConfig)
	}
	if cfg, ok := o.configs[name]; ok {
		return cfg
	}

	cfg, err := Create(name)
	if err != nil {
		return nil
	}
	o.configs[name] = cfg
	return cfg
}

// DeleteConfig 删除指定中间件的配置（禁用该中间件）。
func (o *Options) DeleteConfig(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.configs, name)
}

// GetConfigTyped 获取指定中间件的配置并进行类型断言。
func GetConfigTyped[T MiddlewareConfig](o *Options, name string) (T, bool) {
	cfg := o.GetConfig(name)
	if cfg == nil {
		var zero T
		return zero, false
	}
	typed, ok := cfg.(T)
	return typed, ok
}

// IsEnabled 检查指定中间件是否启用。
func (o *Options) IsEnabled(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	cfg, ok := o.configs[name]
	return ok && cfg != nil
}

// GetMiddlewareOrder 返回中间件应用顺序。
func (o *Options) GetMiddlewareOrder() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if len(o.Middleware) > 0 {
		return o.Middleware
	}
	return DefaultMiddlewareOrder()
}

// Validate 验证所有中间件配置。
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	var errs []error
	seen := make(map[string]bool)
	for _, name := range o.Middleware {
		if !IsRegistered(name) {
			errs = append(errs, &ConfigError{Field: "middleware", Message: "unknown middleware: " + name})
		}
		if seen[name] {
			errs = append(errs, &ConfigError{Field: "middleware", Message: "duplicate middleware in list: " + name})
		}
		seen[name] = true
	}

	for name, cfg := range o.configs {
		if cfg == nil {
			continue
		}
		for _, err := range cfg.Validate() {
			errs = append(errs, &ConfigError{Field: name, Message: err.Error()})
		}
	}

	return errs
}

// Complete 完成所有中间件配置的默认值填充。
func (o *Options) Complete() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for name, cfg := range o.configs {
		if cfg == nil {
			continue
		}
		if err := cfg.Complete(); err != nil {
			return &ConfigError{Field: name, Message: err.Error()}
		}
	}
	return nil
}

// AddFlags 添加所有已启用中间件配置的命令行标志。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, name := range ListRegistered() {
		if cfg := o.configs[name]; cfg != nil {
			cfg.AddFlags(fs, prefixes...)
		}
	}
}

// Configure 通用配置修改器。
// T 必须是实现 MiddlewareConfig 的指针类型。
func Configure[T MiddlewareConfig](name string, modifier func(T)) Option {
	return func(o *Options) {
		cfg := o.GetOrCreate(name)
		if typed, ok := cfg.(T); ok {
			modifier(typed)
		}
	}
}

// Without 通用禁用函数。
func Without(name string) Option {
	return func(o *Options) {
		o.DeleteConfig(name)
	}
}

// Apply applies opts to o.
func (o *Options) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}

// WithCORS 配置 CORS 允许的源。
func WithCORS(origins ...string) Option {
	return Configure(MiddlewareCORS, func(cfg *CORSOptions) {
		if len(origins) > 0 {
			cfg.AllowOrigins = origins
		}
	})
}

// WithRateLimit 配置限流上限。
func WithRateLimit(limit int) Option {
	return Configure(MiddlewareRateLimit, func(cfg *RateLimitOptions) {
		if limit > 0 {
			cfg.Limit = limit
		}
	})
}

// WithProduction 标记生产环境，错误信息对外脱敏。
func WithProduction(production bool) Option {
	return Configure(MiddlewareRecovery, func(cfg *RecoveryOptions) {
		cfg.Production = production
	})
}

// WithoutRateLimit 禁用 rate-limit 中间件。
func WithoutRateLimit() Option { return Without(MiddlewareRateLimit) }

// WithoutCompression 禁用 compression 中间件。
func WithoutCompression() Option { return Without(MiddlewareCompression) }

// WithoutLogger 禁用 logger 中间件。
func WithoutLogger() Option { return Without(MiddlewareLogger) }

// WithoutMetrics 禁用 metrics 中间件。
func WithoutMetrics() Option { return Without(MiddlewareMetrics) }
