package middleware

import (
	"errors"

	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareRequestID, func() MiddlewareConfig {
		return NewRequestIDOptions()
	})
}

var _ MiddlewareConfig = (*RequestIDOptions)(nil)

// RequestIDOptions defines request ID middleware options.
type RequestIDOptions struct {
	Header string `json:"header" mapstructure:"header"`
	// GeneratorType 指定 ID 生成器类型:
	//   - "ulid": 时间可排序，26 字符（默认）
	//   - "random" 或 "hex": 加密随机十六进制，32 字符
	GeneratorType string `json:"generator" mapstructure:"generator"`
}

// NewRequestIDOptions creates default request ID middleware options.
func NewRequestIDOptions() *RequestIDOptions {
	return &RequestIDOptions{
		Header:        "X-Request-ID",
		GeneratorType: "ulid",
	}
}

// AddFlags adds flags for request ID options to the specified FlagSet.
func (o *RequestIDOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.request-id."

	fs.StringVar(&o.Header, prefix+"header", o.Header, "Request ID header name.")
	fs.StringVar(&o.GeneratorType, prefix+"generator", o.GeneratorType, "ID generator type: ulid, random or hex.")
}

// Validate validates the request ID options.
func (o *RequestIDOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Header == "" {
		errs = append(errs, errors.New("request ID header name is required"))
	}
	switch o.GeneratorType {
	case "", "ulid", "random", "hex":
	default:
		errs = append(errs, errors.New("invalid generator type: must be 'ulid', 'random' or 'hex'"))
	}
	return errs
}

// Complete completes the request ID options with defaults.
func (o *RequestIDOptions) Complete() error {
	if o.GeneratorType == "" {
		o.GeneratorType = "ulid"
	}
	return nil
}
