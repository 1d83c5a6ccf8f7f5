package middleware

import (
	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareRecovery, func() MiddlewareConfig {
		return NewRecoveryOptions()
	})
}

var _ MiddlewareConfig = (*RecoveryOptions)(nil)

// RecoveryOptions defines error boundary options.
type RecoveryOptions struct {
	// EnableStackTrace 在错误日志中附带调用栈。
	EnableStackTrace bool `json:"enable-stack-trace" mapstructure:"enable-stack-trace"`

	// Production 由应用根据运行环境设置，为 true 时 5xx 错误对外脱敏。
	Production bool `json:"-" mapstructure:"-"`
}

// NewRecoveryOptions creates default recovery options.
func NewRecoveryOptions() *RecoveryOptions {
	return &RecoveryOptions{
		EnableStackTrace: true,
	}
}

// AddFlags adds flags for recovery options to the specified FlagSet.
func (o *RecoveryOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.EnableStackTrace, options.Join(prefixes...)+"middleware.recovery.enable-stack-trace", o.EnableStackTrace, "Log stack traces for recovered panics.")
}

// Validate validates the recovery options.
func (o *RecoveryOptions) Validate() []error {
	return nil
}

// Complete completes the recovery options with defaults.
func (o *RecoveryOptions) Complete() error {
	return nil
}
