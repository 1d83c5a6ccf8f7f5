// Package logger provides logger configuration options.
package logger

import (
	"fmt"
	"strings"

	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
	"github.com/kart-io/logger/option"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options wraps the logger option.LogOption.
type Options struct {
	*option.LogOption
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		LogOption: option.DefaultLogOption(),
	}
}

// AddFlags adds flags for logger options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "log."

	fs.StringVar(&o.Engine, prefix+"engine", o.Engine, "Logging engine (zap|slog)")
	fs.StringVar(&o.Level, prefix+"level", o.Level, "Log level (DEBUG|INFO|WARN|ERROR|FATAL)")
	fs.StringVar(&o.Format, prefix+"format", o.Format, "Log format (json|console)")
	fs.StringSliceVar(&o.OutputPaths, prefix+"output-paths", o.OutputPaths, "Output paths for logs")
	fs.BoolVar(&o.Development, prefix+"development", o.Development, "Enable development mode")
	fs.BoolVar(&o.DisableCaller, prefix+"disable-caller", o.DisableCaller, "Disable caller detection")
	fs.BoolVar(&o.DisableStacktrace, prefix+"disable-stacktrace", o.DisableStacktrace, "Disable stacktrace capture")
	fs.StringVar(&o.OTLPEndpoint, prefix+"otlp-endpoint", o.OTLPEndpoint, "OTLP endpoint URL")
}

// Validate validates the logger options.
func (o *Options) Validate() []error {
	if err := o.LogOption.Validate(); err != nil {
		return []error{err}
	}
	return nil
}

// Complete normalizes the level so that lower-case values such as "info" are accepted.
func (o *Options) Complete() error {
	o.Level = strings.ToUpper(strings.TrimSpace(o.Level))
	if o.Level == "" {
		o.Level = "INFO"
	}
	return nil
}

// CreateLogger creates a new logger instance based on the options.
func (o *Options) CreateLogger() (core.Logger, error) {
	return logger.New(o.LogOption)
}

// Init initializes the global logger with the options.
func (o *Options) Init() error {
	log, err := o.CreateLogger()
	if err != nil {
		return err
	}
	logger.SetGlobal(log)
	return nil
}

// LoadFromViper decodes the section under key into the embedded LogOption.
// Dashed flag names (output-paths) are accepted next to the underscored
// keys of the logger package.
func (o *Options) LoadFromViper(v *viper.Viper, key string) error {
	if v == nil {
		return nil
	}
	if v.IsSet(key) {
		if err := v.UnmarshalKey(key, o.LogOption); err != nil {
			return fmt.Errorf("unmarshal %s: %w", key, err)
		}
	}

	// 环境变量绑定的单个 key 不会出现在 UnmarshalKey 的结果中

	for name, dst := range map[string]*string{
		"engine": &o.Engine,
		"level":  &o.Level,
		"format": &o.Format,
	} {
		if k := key + "." + name; v.IsSet(k) {
			*dst = v.GetString(k)
		}
	}
	if k := key + ".development"; v.IsSet(k) {
		o.Development = v.GetBool(k)
	}
	if k := key + ".output-paths"; v.IsSet(k) {
		o.OutputPaths = v.GetStringSlice(k)
	}
	return nil
}
