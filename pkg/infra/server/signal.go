package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Signal names understood by the default dispatch table.
const (
	SIGTERM = "SIGTERM"
	SIGINT  = "SIGINT"
)

// SignalSource delivers termination signals by name.
type SignalSource interface {
	// Notify returns a channel of signal names. The channel is closed once
	// ctx is done.
	Notify(ctx context.Context) <-chan string
}

// OSSignals is the SignalSource backed by os/signal.
type OSSignals struct{}

var osSignalNames = map[os.Signal]string{
	syscall.SIGTERM: SIGTERM,
	syscall.SIGINT:  SIGINT,
}

// Notify implements SignalSource.
func (OSSignals) Notify(ctx context.Context) <-chan string {
	raw := make(chan os.Signal, 2)
	signal.Notify(raw, syscall.SIGTERM, syscall.SIGINT)

	out := make(chan string, 2)
	go func() {
		defer close(out)
		defer signal.Stop(raw)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-raw:
				name, ok := osSignalNames[sig]
				if !ok {
					name = sig.String()
				}
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Dispatcher maps signal names to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]func(string)
}

// NewDispatcher creates an empty dispatch table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]func(string))}
}

// Handle registers h for name, replacing any previous handler.
func (d *Dispatcher) Handle(name string, h func(signal string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

// Dispatch invokes the handler for name and reports whether one was found.
func (d *Dispatcher) Dispatch(name string) bool {
	d.mu.RLock()
	h, ok := d.handlers[name]
	d.mu.RUnlock()

	if !ok {
		return false
	}
	h(name)
	return true
}
