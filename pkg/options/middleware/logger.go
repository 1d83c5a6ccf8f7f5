package middleware

import (
	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareLogger, func() MiddlewareConfig {
		return NewLoggerOptions()
	})
}

var _ MiddlewareConfig = (*LoggerOptions)(nil)

// LoggerOptions defines request logger options.
type LoggerOptions struct {
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewLoggerOptions creates default logger middleware options.
func NewLoggerOptions() *LoggerOptions {
	return &LoggerOptions{
		SkipPaths: []string{"/metrics"},
	}
}

// AddFlags adds flags for logger options to the specified FlagSet.
func (o *LoggerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.SkipPaths, options.Join(prefixes...)+"middleware.logger.skip-paths", o.SkipPaths, "Paths to skip logging.")
}

// Validate validates the logger options.
func (o *LoggerOptions) Validate() []error {
	return nil
}

// Complete completes the logger options with defaults.
func (o *LoggerOptions) Complete() error {
	return nil
}
