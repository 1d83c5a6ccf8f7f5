package middleware

import (
	"errors"

	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareHealth, func() MiddlewareConfig {
		return NewHealthOptions()
	})
}

var _ MiddlewareConfig = (*HealthOptions)(nil)

// HealthOptions defines health endpoint paths.
type HealthOptions struct {
	Path          string `json:"path" mapstructure:"path"`
	ReadinessPath string `json:"readiness-path" mapstructure:"readiness-path"`
}

// NewHealthOptions creates default health options.
func NewHealthOptions() *HealthOptions {
	return &HealthOptions{
		Path:          "/health",
		ReadinessPath: "/ready",
	}
}

// AddFlags adds flags for health options to the specified FlagSet.
func (o *HealthOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.health."

	fs.StringVar(&o.Path, prefix+"path", o.Path, "Health check endpoint path.")
	fs.StringVar(&o.ReadinessPath, prefix+"readiness-path", o.ReadinessPath, "Readiness probe path.")
}

// Validate validates the health options.
func (o *HealthOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if o.Path == "" {
		return []error{errors.New("health check path is required")}
	}
	return nil
}

// Complete completes the health options with defaults.
func (o *HealthOptions) Complete() error {
	return nil
}
