package apiserver

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/kart-io/axiomcore/pkg/infra/server"
	"github.com/kart-io/axiomcore/pkg/infra/tracing"
	logopts "github.com/kart-io/axiomcore/pkg/options/logger"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
	redisopts "github.com/kart-io/axiomcore/pkg/options/redis"
	httpopts "github.com/kart-io/axiomcore/pkg/options/server/http"
)

// Environment defaults.
const (
	DefaultEnvironment = "development"
	DefaultVersion     = "1.0.0"
	DefaultStaticDir   = "./static"

	productionEnvironment = "production"
)

// ServerRunOptions contains the process level server settings.
type ServerRunOptions struct {
	server.Options `mapstructure:",squash"`

	// Environment is the deployment environment. "production" redacts
	// internal error messages.
	Environment string `json:"environment" mapstructure:"environment"`

	// Version is reported by /health and /api/status.
	Version string `json:"version" mapstructure:"version"`

	// StaticDir is the built frontend directory. Empty disables SPA serving.
	StaticDir string `json:"static-dir" mapstructure:"static-dir"`
}

// Options contains all API server options.
type Options struct {
	// Server contains the lifecycle and environment settings.
	Server ServerRunOptions `json:"server" mapstructure:"server"`

	// HTTP contains HTTP listener configuration.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"-"`

	// Redis backs the rate limiter when middleware.rate-limit.use-redis is set.
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`

	// Tracing contains OpenTelemetry configuration.
	Tracing *tracing.Options `json:"tracing" mapstructure:"tracing"`

	// Middleware contains the middleware chain configuration.
	Middleware *mwopts.Options `json:"middleware" mapstructure:"-"`

	envErrs []error
}

// NewOptions creates Options with defaults seeded from the process
// environment (PORT, LOG_LEVEL, CORS_ORIGIN, RATE_LIMIT_MAX, NODE_ENV,
// APP_ENV, APP_VERSION, SHUTDOWN_TIMEOUT).
func NewOptions() *Options {
	return newOptions(os.LookupEnv)
}

func newOptions(lookup func(string) (string, bool)) *Options {
	o := &Options{
		Server: ServerRunOptions{
			Options:     *server.NewOptions(),
			Environment: DefaultEnvironment,
			Version:     DefaultVersion,
			StaticDir:   DefaultStaticDir,
		},
		HTTP:       httpopts.NewOptions(),
		Log:        logopts.NewOptions(),
		Redis:      redisopts.NewOptions(),
		Tracing:    tracing.NewOptions(),
		Middleware: mwopts.NewOptions(),
	}
	o.seedFromEnv(lookup)
	return o
}

// seedFromEnv applies the plain environment variables. Invalid values are
// reported by Validate.
func (o *Options) seedFromEnv(lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if port, ok := get("PORT"); ok {
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			o.envErrs = append(o.envErrs, fmt.Errorf("PORT %q is not a valid port", port))
		} else {
			o.HTTP.ApplyOptions(httpopts.WithPort(port))
		}
	}

	if level, ok := get("LOG_LEVEL"); ok {
		o.Log.Level = level
	}

	if origin, ok := get("CORS_ORIGIN"); ok {
		var origins []string
		for _, s := range strings.Split(origin, ",") {
			if s = strings.TrimSpace(s); s != "" {
				origins = append(origins, s)
			}
		}
		o.Middleware.Apply(mwopts.WithCORS(origins...))
	}

	if raw, ok := get("RATE_LIMIT_MAX"); ok {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			o.envErrs = append(o.envErrs, fmt.Errorf("RATE_LIMIT_MAX %q must be a positive integer", raw))
		} else {
			o.Middleware.Apply(mwopts.WithRateLimit(limit))
		}
	}

	if env, ok := get("NODE_ENV"); ok {
		o.Server.Environment = env
	} else if env, ok := get("APP_ENV"); ok {
		o.Server.Environment = env
	}

	if version, ok := get("APP_VERSION"); ok {
		o.Server.Version = version
	}

	if raw, ok := get("SHUTDOWN_TIMEOUT"); ok {
		timeout, err := parseTimeout(raw)
		if err != nil {
			o.envErrs = append(o.envErrs, fmt.Errorf("SHUTDOWN_TIMEOUT %q: %w", raw, err))
		} else {
			o.Server.ShutdownTimeout = timeout
		}
	}
}

// parseTimeout accepts a Go duration ("45s") or whole seconds ("45").
func parseTimeout(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

// Flags returns flags for the API server grouped by section.
func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("server")
	o.Server.AddFlags(fs)
	fs.StringVar(&o.Server.Environment, "server.environment", o.Server.Environment,
		"Deployment environment. \"production\" redacts internal error messages.")
	fs.StringVar(&o.Server.Version, "server.version", o.Server.Version, "Version reported by /health and /api/status.")
	fs.StringVar(&o.Server.StaticDir, "server.static-dir", o.Server.StaticDir,
		"Directory of the built frontend. Empty disables SPA serving.")

	o.HTTP.AddFlags(fss.FlagSet("http"))
	o.Log.AddFlags(fss.FlagSet("log"))
	o.Redis.AddFlags(fss.FlagSet("redis"))
	o.Tracing.AddFlags(fss.FlagSet("tracing"))
	o.Middleware.AddFlags(fss.FlagSet("middleware"))

	return fss
}

// LoadFromViper loads the sections viper.Unmarshal cannot decode.
func (o *Options) LoadFromViper(v *viper.Viper) error {
	if err := o.Log.LoadFromViper(v, "log"); err != nil {
		return err
	}
	return o.Middleware.LoadFromViper(v)
}

// IsProduction reports whether the environment is production.
func (o *Options) IsProduction() bool {
	return strings.EqualFold(o.Server.Environment, productionEnvironment)
}

// Complete completes all the required options.
func (o *Options) Complete() error {
	if err := o.Server.Complete(); err != nil {
		return err
	}
	if err := o.HTTP.Complete(); err != nil {
		return err
	}
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.Redis.Complete(); err != nil {
		return err
	}

	o.Middleware.Apply(mwopts.WithProduction(o.IsProduction()))
	if err := o.Middleware.Complete(); err != nil {
		return err
	}

	if o.Tracing.ServiceVersion == "" || o.Tracing.ServiceVersion == "dev" {
		o.Tracing.ServiceVersion = o.Server.Version
	}
	if o.Tracing.Environment == "" || o.Tracing.Environment == DefaultEnvironment {
		o.Tracing.Environment = o.Server.Environment
	}
	return o.Tracing.Complete()
}

// Validate checks whether the options are valid.
func (o *Options) Validate() error {
	errs := append([]error{}, o.envErrs...)

	errs = append(errs, o.Server.Validate()...)
	errs = append(errs, o.HTTP.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	errs = append(errs, o.Tracing.Validate()...)
	errs = append(errs, o.Middleware.Validate()...)
	if o.useRedis() {
		errs = append(errs, o.Redis.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

func (o *Options) useRedis() bool {
	cfg, ok := mwopts.GetConfigTyped[*mwopts.RateLimitOptions](o.Middleware, mwopts.MiddlewareRateLimit)
	return ok && cfg.UseRedis
}

// Config builds a Config based on Options.
func (o *Options) Config() (*Config, error) {
	cfg := &Config{
		HTTP:            o.HTTP,
		Middleware:      o.Middleware,
		Tracing:         o.Tracing,
		Environment:     o.Server.Environment,
		Version:         o.Server.Version,
		StaticDir:       o.Server.StaticDir,
		ShutdownTimeout: o.Server.ShutdownTimeout,
		Production:      o.IsProduction(),
	}
	if o.useRedis() {
		cfg.Redis = o.Redis
	}
	return cfg, nil
}
