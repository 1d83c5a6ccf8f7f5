package middleware

import (
	"errors"

	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareBodyLimit, func() MiddlewareConfig {
		return NewBodyLimitOptions()
	})
}

var _ MiddlewareConfig = (*BodyLimitOptions)(nil)

// DefaultBodyLimit is the default request body cap (10 MiB).
const DefaultBodyLimit int64 = 10 << 20

// BodyLimitOptions 定义请求体大小限制中间件的配置选项。
type BodyLimitOptions struct {
	// MaxSize 最大请求体大小（字节）。
	MaxSize int64 `json:"max-size" mapstructure:"max-size"`

	// SkipPaths 跳过检查的精确路径列表。
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`

	// SkipPathPrefixes 跳过检查的路径前缀列表。
	SkipPathPrefixes []string `json:"skip-path-prefixes" mapstructure:"skip-path-prefixes"`
}

// NewBodyLimitOptions 创建默认的 BodyLimit 中间件配置。
func NewBodyLimitOptions() *BodyLimitOptions {
	return &BodyLimitOptions{
		MaxSize:          DefaultBodyLimit,
		SkipPaths:        []string{},
		SkipPathPrefixes: []string{},
	}
}

// AddFlags 添加 BodyLimit 配置的命令行标志。
func (o *BodyLimitOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.body-limit."

	fs.Int64Var(&o.MaxSize, prefix+"max-size", o.MaxSize, "Maximum request body size in bytes.")
	fs.StringSliceVar(&o.SkipPaths, prefix+"skip-paths", o.SkipPaths, "Skip paths for body limit middleware.")
	fs.StringSliceVar(&o.SkipPathPrefixes, prefix+"skip-path-prefixes", o.SkipPathPrefixes, "Skip path prefixes for body limit middleware.")
}

// Validate 验证 BodyLimit 配置的有效性。
func (o *BodyLimitOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.MaxSize <= 0 {
		errs = append(errs, errors.New("body-limit: MaxSize must be greater than 0"))
	}
	return errs
}

// Complete 完成 BodyLimit 配置的默认值填充。
func (o *BodyLimitOptions) Complete() error {
	return nil
}
