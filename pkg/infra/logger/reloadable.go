// Package logger applies logger configuration changes to the running
// process without a restart.
package logger

import (
	"fmt"
	"sync"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"

	"github.com/kart-io/axiomcore/pkg/infra/config"
	logopts "github.com/kart-io/axiomcore/pkg/options/logger"
)

// Reloader rebuilds the global logger when the log section of the
// configuration file changes. Level, format, output paths and development
// mode are reloadable; everything else keeps its startup value.
type Reloader struct {
	mu    sync.Mutex
	opts  *logopts.Options
	apply func(*logopts.Options) error
}

// NewReloader creates a Reloader for the options the logger was started with.
func NewReloader(opts *logopts.Options) *Reloader {
	return &Reloader{
		opts:  opts,
		apply: (*logopts.Options).Init,
	}
}

// OnConfigChange implements config.Reloadable. newConfig must be an
// *option.LogOption or *logopts.Options.
func (r *Reloader) OnConfigChange(newConfig interface{}) error {
	var next option.LogOption
	switch c := newConfig.(type) {
	case *option.LogOption:
		next = *c
	case *logopts.Options:
		next = *c.LogOption
	default:
		return fmt.Errorf("invalid config type: expected *option.LogOption, got %T", newConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.opts.LogOption
	candidate := &logopts.Options{LogOption: &current}
	candidate.Level = next.Level
	candidate.Format = next.Format
	candidate.Development = next.Development
	if len(next.OutputPaths) > 0 {
		candidate.OutputPaths = append([]string(nil), next.OutputPaths...)
	}

	if err := candidate.Complete(); err != nil {
		return err
	}
	if errs := candidate.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid logger configuration: %w", errs[0])
	}
	if sameReloadable(r.opts.LogOption, candidate.LogOption) {
		return nil
	}

	if err := r.apply(candidate); err != nil {
		return fmt.Errorf("apply logger config: %w", err)
	}
	r.opts = candidate

	logger.Infow("Logger configuration reloaded",
		"level", candidate.Level,
		"format", candidate.Format,
		"development", candidate.Development,
	)
	return nil
}

// Level returns the currently applied level.
func (r *Reloader) Level() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts.Level
}

// RegisterWithWatcher subscribes the reloader to configKey on watcher.
func (r *Reloader) RegisterWithWatcher(watcher *config.Watcher, handlerID, configKey string) {
	subscriber := config.NewReloadableSubscriber(r, configKey, func() interface{} {
		return option.DefaultLogOption()
	})
	watcher.Subscribe(handlerID, subscriber.Handler())
}

func sameReloadable(a, b *option.LogOption) bool {
	if a.Level != b.Level || a.Format != b.Format || a.Development != b.Development {
		return false
	}
	if len(a.OutputPaths) != len(b.OutputPaths) {
		return false
	}
	for i := range a.OutputPaths {
		if a.OutputPaths[i] != b.OutputPaths[i] {
			return false
		}
	}
	return true
}
