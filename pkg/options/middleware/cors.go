package middleware

import (
	"errors"
	"slices"

	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareCORS, func() MiddlewareConfig {
		return NewCORSOptions()
	})
}

var _ MiddlewareConfig = (*CORSOptions)(nil)

// CORSOptions defines CORS middleware options.
type CORSOptions struct {
	AllowOrigins     []string `json:"allow-origins" mapstructure:"allow-origins"`
	AllowMethods     []string `json:"allow-methods" mapstructure:"allow-methods"`
	AllowHeaders     []string `json:"allow-headers" mapstructure:"allow-headers"`
	ExposeHeaders    []string `json:"expose-headers" mapstructure:"expose-headers"`
	AllowCredentials bool     `json:"allow-credentials" mapstructure:"allow-credentials"`
	MaxAge           int      `json:"max-age" mapstructure:"max-age"`
}

// NewCORSOptions creates default CORS options.
func NewCORSOptions() *CORSOptions {
	return &CORSOptions{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// AddFlags adds flags for CORS options to the specified FlagSet.
func (o *CORSOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.cors."

	fs.StringSliceVar(&o.AllowOrigins, prefix+"allow-origins", o.AllowOrigins, "CORS allowed origins.")
	fs.StringSliceVar(&o.AllowMethods, prefix+"allow-methods", o.AllowMethods, "CORS allowed methods.")
	fs.StringSliceVar(&o.AllowHeaders, prefix+"allow-headers", o.AllowHeaders, "CORS allowed headers.")
	fs.StringSliceVar(&o.ExposeHeaders, prefix+"expose-headers", o.ExposeHeaders, "CORS exposed headers.")
	fs.BoolVar(&o.AllowCredentials, prefix+"allow-credentials", o.AllowCredentials, "CORS allow credentials. Ignored for the wildcard origin.")
	fs.IntVar(&o.MaxAge, prefix+"max-age", o.MaxAge, "CORS preflight max age in seconds.")
}

// Validate validates the CORS options.
func (o *CORSOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if len(o.AllowOrigins) == 0 {
		errs = append(errs, errors.New("CORS: AllowOrigins must be explicitly configured, empty list not allowed"))
	}
	if o.MaxAge < 0 {
		errs = append(errs, errors.New("CORS: MaxAge must be non-negative"))
	}
	return errs
}

// Complete completes the CORS options with defaults.
func (o *CORSOptions) Complete() error {
	if len(o.AllowOrigins) == 1 && o.AllowOrigins[0] == "" {
		o.AllowOrigins = []string{"*"}
	}
	return nil
}

// IsWildcard reports whether any origin is allowed.
func (o *CORSOptions) IsWildcard() bool {
	return slices.Contains(o.AllowOrigins, "*")
}
