package middleware

import (
	"errors"

	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareMetrics, func() MiddlewareConfig {
		return NewMetricsOptions()
	})
}

var _ MiddlewareConfig = (*MetricsOptions)(nil)

// MetricsOptions defines Prometheus metrics options.
type MetricsOptions struct {
	Path      string `json:"path" mapstructure:"path"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
	Subsystem string `json:"subsystem" mapstructure:"subsystem"`
}

// NewMetricsOptions creates default metrics options.
func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{
		Path:      "/metrics",
		Namespace: "axiomcore",
		Subsystem: "http",
	}
}

// AddFlags adds flags for metrics options to the specified FlagSet.
func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.metrics."

	fs.StringVar(&o.Path, prefix+"path", o.Path, "Metrics endpoint path.")
	fs.StringVar(&o.Namespace, prefix+"namespace", o.Namespace, "Metrics namespace.")
	fs.StringVar(&o.Subsystem, prefix+"subsystem", o.Subsystem, "Metrics subsystem.")
}

// Validate validates the metrics options.
func (o *MetricsOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Path == "" {
		errs = append(errs, errors.New("metrics path is required"))
	}
	if o.Namespace == "" {
		errs = append(errs, errors.New("metrics namespace is required"))
	}
	return errs
}

// Complete completes the metrics options with defaults.
func (o *MetricsOptions) Complete() error {
	return nil
}
