package middleware

import (
	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareTracing, func() MiddlewareConfig {
		return NewTracingOptions()
	})
}

var _ MiddlewareConfig = (*TracingOptions)(nil)

// TracingOptions defines the HTTP tracing middleware options.
// Exporter and sampler settings live in the tracing provider options.
type TracingOptions struct {
	// TracerName is the instrumentation scope name.
	TracerName string `json:"tracer-name" mapstructure:"tracer-name"`

	SkipPaths        []string `json:"skip-paths" mapstructure:"skip-paths"`
	SkipPathPrefixes []string `json:"skip-path-prefixes" mapstructure:"skip-path-prefixes"`
}

// NewTracingOptions creates default tracing middleware options.
func NewTracingOptions() *TracingOptions {
	return &TracingOptions{
		TracerName:       "github.com/kart-io/axiomcore/pkg/infra/middleware",
		SkipPaths:        []string{"/health", "/ready", "/metrics"},
		SkipPathPrefixes: []string{},
	}
}

// AddFlags adds flags for tracing middleware options to the specified FlagSet.
func (o *TracingOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.tracing."

	fs.StringSliceVar(&o.SkipPaths, prefix+"skip-paths", o.SkipPaths, "Paths excluded from tracing.")
	fs.StringSliceVar(&o.SkipPathPrefixes, prefix+"skip-path-prefixes", o.SkipPathPrefixes, "Path prefixes excluded from tracing.")
}

// Validate validates the tracing middleware options.
func (o *TracingOptions) Validate() []error {
	return nil
}

// Complete completes the tracing middleware options with defaults.
func (o *TracingOptions) Complete() error {
	if o.TracerName == "" {
		o.TracerName = NewTracingOptions().TracerName
	}
	return nil
}
