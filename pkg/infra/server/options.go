package server

import (
	"fmt"
	"os"
	"time"

	"github.com/kart-io/axiomcore/pkg/options"
	"github.com/kart-io/logger"
	"github.com/spf13/pflag"
	"k8s.io/utils/clock"
)

// DefaultShutdownTimeout bounds the drain sequence.
const DefaultShutdownTimeout = 30 * time.Second

// Options contains the controller configuration exposed on the command line.
type Options struct {
	// ShutdownTimeout is the maximum drain duration before a forced exit.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// AddFlags adds flags for server options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.ShutdownTimeout, options.Join(prefixes...)+"server.shutdown-timeout", o.ShutdownTimeout,
		"Maximum time to wait for in-flight requests before forcing exit.")
}

// Validate validates the server options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	if o.ShutdownTimeout <= 0 {
		return []error{fmt.Errorf("server.shutdown-timeout must be positive")}
	}
	return nil
}

// Complete completes the server options with defaults.
func (o *Options) Complete() error {
	return nil
}

// ExitFunc terminates the process with code.
type ExitFunc func(code int)

// DefaultExit flushes the global logger and exits the process.
func DefaultExit(code int) {
	_ = logger.Flush()
	os.Exit(code)
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for the drain deadline.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

// WithExitFunc sets the function invoked once the controller terminates.
func WithExitFunc(fn ExitFunc) Option {
	return func(ctl *Controller) {
		if fn != nil {
			ctl.exit = fn
		}
	}
}

// WithShutdownTimeout sets the drain deadline. Non-positive values are ignored.
func WithShutdownTimeout(d time.Duration) Option {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.timeout = d
		}
	}
}

// WithDrainHook adds a hook that runs when draining starts, before the
// listener is closed.
func WithDrainHook(hook func()) Option {
	return func(ctl *Controller) {
		if hook != nil {
			ctl.drainHooks = append(ctl.drainHooks, hook)
		}
	}
}
