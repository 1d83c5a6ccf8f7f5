// Package config provides configuration hot reload on top of viper.
//
// A Watcher observes the loaded configuration file through viper's fsnotify
// integration and notifies subscribed handlers, in subscription id order,
// every time the file changes. Handlers run sequentially; a failing handler
// is logged and does not stop the others.
package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
	"github.com/spf13/viper"
)

// ChangeHandler is invoked with the updated viper instance on every change.
type ChangeHandler func(v *viper.Viper) error

// Watcher manages configuration file watching and change notifications.
type Watcher struct {
	viper    *viper.Viper
	handlers map[string]ChangeHandler
	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a new configuration watcher for v.
func NewWatcher(v *viper.Viper) *Watcher {
	return &Watcher{
		viper:    v,
		handlers: make(map[string]ChangeHandler),
	}
}

// Subscribe registers handler under id, replacing any previous handler
// with the same id.
func (w *Watcher) Subscribe(id string, handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[id] = handler
	logger.Debugw("Config watcher: subscribed handler", "id", id)
}

// Unsubscribe removes the handler registered under id.
func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.handlers[id]; ok {
		delete(w.handlers, id)
		logger.Debugw("Config watcher: unsubscribed handler", "id", id)
	}
}

// Start begins watching the configuration file. It is a no-op when no
// configuration file was loaded or the watcher is already running.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return
	}
	if w.viper.ConfigFileUsed() == "" {
		w.mu.Unlock()
		logger.Debug("Config watcher: no config file in use, hot reload disabled")
		return
	}
	w.watching = true
	w.mu.Unlock()

	w.viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Infow("Config file changed", "file", e.Name, "op", e.Op.String())
		w.Notify()
	})
	w.viper.WatchConfig()

	logger.Infow("Config watcher started", "file", w.viper.ConfigFileUsed())
}

// Notify runs every subscribed handler against the current configuration
// and returns the number of handlers that failed.
func (w *Watcher) Notify() int {
	w.mu.RLock()
	ids := make([]string, 0, len(w.handlers))
	handlers := make(map[string]ChangeHandler, len(w.handlers))
	for id, h := range w.handlers {
		ids = append(ids, id)
		handlers[id] = h
	}
	w.mu.RUnlock()

	sort.Strings(ids)

	failed := 0
	for _, id := range ids {
		if err := handlers[id](w.viper); err != nil {
			failed++
			logger.Errorw("Config watcher: handler failed", "id", id, "error", err)
			continue
		}
		logger.Debugw("Config watcher: handler applied change", "id", id)
	}
	return failed
}

// Stop marks the watcher inactive. viper offers no way to remove its
// fsnotify watch, so later file events are still delivered but ignored.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching {
		return
	}
	w.watching = false
	w.handlers = make(map[string]ChangeHandler)
	logger.Debug("Config watcher stopped")
}

// IsWatching returns whether the watcher is currently active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// HandlerCount returns the number of registered handlers.
func (w *Watcher) HandlerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.handlers)
}

// ReloadableSubscriber decodes one configuration section and hands it to a
// Reloadable component.
type ReloadableSubscriber struct {
	component Reloadable
	configKey string
	newTarget func() interface{}
}

// NewReloadableSubscriber creates a subscriber that decodes configKey into
// a value produced by newTarget on every change.
func NewReloadableSubscriber(component Reloadable, configKey string, newTarget func() interface{}) *ReloadableSubscriber {
	return &ReloadableSubscriber{
		component: component,
		configKey: configKey,
		newTarget: newTarget,
	}
}

// Handler returns a ChangeHandler that can be registered with the Watcher.
func (rs *ReloadableSubscriber) Handler() ChangeHandler {
	return func(v *viper.Viper) error {
		if !v.IsSet(rs.configKey) {
			return nil
		}

		target := rs.newTarget()
		if err := v.UnmarshalKey(rs.configKey, target); err != nil {
			return fmt.Errorf("unmarshal config key %q: %w", rs.configKey, err)
		}

		if err := rs.component.OnConfigChange(target); err != nil {
			return fmt.Errorf("component rejected config change: %w", err)
		}
		return nil
	}
}
