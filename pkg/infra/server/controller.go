package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/axiomcore/pkg/utils/errors"
	"github.com/kart-io/logger"
	"k8s.io/utils/clock"
)

// Controller owns a Listener and its shutdown state.
//
// A termination request moves the controller from Running to Draining
// exactly once. The listener close and the drain deadline then race into
// a one-shot result: whichever finishes first decides the exit code, the
// other is ignored.
type Controller struct {
	listener   Listener
	clock      clock.Clock
	exit       ExitFunc
	timeout    time.Duration
	drainHooks []func()
	dispatcher *Dispatcher

	state atomic.Int32

	settleOnce sync.Once
	code       int
	done       chan struct{}
}

// NewController creates a Controller for listener.
func NewController(listener Listener, opts ...Option) *Controller {
	c := &Controller{
		listener: listener,
		clock:    clock.RealClock{},
		exit:     DefaultExit,
		timeout:  DefaultShutdownTimeout,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.dispatcher = NewDispatcher()
	c.dispatcher.Handle(SIGTERM, c.RequestShutdown)
	c.dispatcher.Handle(SIGINT, c.RequestShutdown)

	return c
}

// Start binds the listener. onReady is called with the bound address once
// the listener accepts connections. A bind failure is returned as is and
// never retried.
func (c *Controller) Start(ctx context.Context, onReady func(addr string)) error {
	if err := c.listener.Start(ctx); err != nil {
		return errors.ErrBindFailed.WithCause(err)
	}
	if onReady != nil {
		onReady(c.listener.Addr())
	}
	return nil
}

// RequestShutdown starts the drain sequence. Only the first call while
// Running has any effect.
func (c *Controller) RequestShutdown(signal string) {
	if !c.state.CompareAndSwap(int32(StateRunning), int32(StateDraining)) {
		logger.Debugw("Shutdown already in progress, ignoring signal",
			"signal", signal,
			"state", c.State().String(),
		)
		return
	}

	logger.Infof("%s received. Shutting down gracefully...", signal)

	for _, hook := range c.drainHooks {
		hook()
	}

	stopCtx, cancel := context.WithCancel(context.Background())
	timer := c.clock.NewTimer(c.timeout)

	go func() {
		err := c.listener.Stop(stopCtx)
		if err != nil {
			c.settle(ExitFailed, func() {
				logger.Errorw("Error while closing server", "error", err)
			})
			return
		}
		c.settle(ExitOK, func() {
			logger.Info("Server closed")
		})
	}()

	go func() {
		defer cancel()
		defer timer.Stop()

		select {
		case <-timer.C():
			c.settle(ExitFailed, func() {
				logger.Errorw("Forced shutdown after timeout",
					"timeout", c.timeout.String(),
					"error", errors.ErrShutdownTimeout,
				)
			})
		case <-c.done:
		}
	}()
}

// settle records the first outcome and terminates. Later calls are no-ops.
func (c *Controller) settle(code int, announce func()) {
	c.settleOnce.Do(func() {
		announce()
		c.code = code
		c.state.Store(int32(StateTerminated))
		close(c.done)
		c.exit(code)
	})
}

// State returns the current shutdown state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Done is closed once the controller reaches StateTerminated.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the controller terminates and returns its exit code.
// If ctx is done first, Wait returns ExitFailed.
func (c *Controller) Wait(ctx context.Context) int {
	select {
	case <-c.done:
		return c.code
	case <-ctx.Done():
		return ExitFailed
	}
}

// Dispatcher returns the signal dispatch table. Handlers registered on it
// are invoked by Install.
func (c *Controller) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// Install subscribes the controller to src until ctx is done.
func (c *Controller) Install(ctx context.Context, src SignalSource) {
	signals := src.Notify(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case name, ok := <-signals:
				if !ok {
					return
				}
				if !c.dispatcher.Dispatch(name) {
					logger.Debugw("No handler for signal", "signal", name)
				}
			}
		}
	}()
}
