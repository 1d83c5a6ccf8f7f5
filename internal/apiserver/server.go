// Package apiserver implements the AxiomCore API server: option handling,
// route registration and the lifecycle controller wiring.
package apiserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/axiomcore/internal/apiserver/router"
	"github.com/kart-io/axiomcore/pkg/infra/middleware"
	"github.com/kart-io/axiomcore/pkg/infra/server"
	httpserver "github.com/kart-io/axiomcore/pkg/infra/server/transport/http"
	"github.com/kart-io/axiomcore/pkg/infra/tracing"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
	redisopts "github.com/kart-io/axiomcore/pkg/options/redis"
	httpopts "github.com/kart-io/axiomcore/pkg/options/server/http"
)

// cleanupTimeout bounds releasing the tracer and redis after the drain.
const cleanupTimeout = 5 * time.Second

// Config is the completed API server configuration.
type Config struct {
	HTTP       *httpopts.Options
	Middleware *mwopts.Options
	// Redis is nil unless the rate limiter is backed by redis.
	Redis   *redisopts.Options
	Tracing *tracing.Options

	Environment     string
	Version         string
	StaticDir       string
	ShutdownTimeout time.Duration
	Production      bool
}

// Server is a running API server: the HTTP listener and the controller
// that owns its shutdown.
type Server struct {
	cfg        *Config
	http       *httpserver.Server
	controller *server.Controller
	health     *middleware.HealthManager
	tracer     *tracing.Provider
	redis      *goredis.Client
	runtime    *middleware.Runtime
	signals    server.SignalSource

	cleanupOnce sync.Once
}

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	signals     server.SignalSource
	exit        server.ExitFunc
	controllers []server.Option
}

// WithSignalSource replaces the OS signal source.
func WithSignalSource(src server.SignalSource) ServerOption {
	return func(o *serverOptions) {
		o.signals = src
	}
}

// WithExitFunc replaces the process exit. It runs after cleanup.
func WithExitFunc(fn server.ExitFunc) ServerOption {
	return func(o *serverOptions) {
		o.exit = fn
	}
}

// WithControllerOptions passes extra options to the lifecycle controller.
func WithControllerOptions(opts ...server.Option) ServerOption {
	return func(o *serverOptions) {
		o.controllers = append(o.controllers, opts...)
	}
}

// NewServer builds the API server from cfg. Nothing is bound until Run.
func (cfg *Config) NewServer(ctx context.Context, opts ...ServerOption) (*Server, error) {
	o := &serverOptions{
		signals: server.OSSignals{},
		exit:    server.DefaultExit,
	}
	for _, opt := range opts {
		opt(o)
	}

	s := &Server{
		cfg:     cfg,
		signals: o.signals,
		health:  middleware.NewHealthManager(cfg.Environment, cfg.Version),
	}

	tp, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	s.tracer = tp

	if cfg.Redis != nil {
		s.redis = cfg.Redis.NewClient()
		client := s.redis
		timeout := cfg.Redis.ReadTimeout
		s.health.RegisterChecker("redis", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return client.Ping(pingCtx).Err()
		})
	}

	s.runtime = &middleware.Runtime{
		Production:     cfg.Production,
		TracingEnabled: tp.Enabled(),
		Health:         s.health,
	}
	if s.redis != nil {
		s.runtime.Redis = s.redis
	}

	s.http, err = httpserver.NewServer(cfg.HTTP, cfg.Middleware, s.runtime)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to create http server: %w", err)
	}

	s.http.Register(router.New(router.Options{
		Version:   cfg.Version,
		StaticDir: cfg.StaticDir,
	}))

	exit := o.exit
	controllerOpts := append([]server.Option{
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
		server.WithDrainHook(func() { s.health.SetReady(false) }),
		server.WithExitFunc(func(code int) {
			s.cleanup()
			exit(code)
		}),
	}, o.controllers...)
	s.controller = server.NewController(s.http, controllerOpts...)

	return s, nil
}

// Run binds the listener, subscribes to termination signals and blocks
// until the controller terminates. A non-zero exit code is returned as an
// error. Cancelling ctx requests a shutdown.
func (s *Server) Run(ctx context.Context) error {
	err := s.controller.Start(ctx, func(string) {
		logger.Infof("AxiomCore API listening on port %d", s.http.Port())
		logger.Infof("Environment: %s", s.cfg.Environment)
	})
	if err != nil {
		s.cleanup()
		return err
	}

	sigCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.controller.Install(sigCtx, s.signals)

	go func() {
		select {
		case <-ctx.Done():
			s.controller.RequestShutdown("context canceled")
		case <-s.controller.Done():
		}
	}()

	if code := s.controller.Wait(context.Background()); code != server.ExitOK {
		return fmt.Errorf("server exited with code %d", code)
	}
	return nil
}

// Controller returns the lifecycle controller.
func (s *Server) Controller() *server.Controller {
	return s.controller
}

// HTTP returns the HTTP transport.
func (s *Server) HTTP() *httpserver.Server {
	return s.http
}

// Health returns the health manager backing /health and /ready.
func (s *Server) Health() *middleware.HealthManager {
	return s.health
}

// cleanup releases the resources created by NewServer.
func (s *Server) cleanup() {
	s.cleanupOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()

		if s.runtime != nil {
			if stopper, ok := s.runtime.RateLimiter.(interface{ Stop() }); ok {
				stopper.Stop()
			}
		}
		if err := s.tracer.Shutdown(ctx); err != nil {
			logger.Warnw("Failed to shutdown tracer provider", "error", err)
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				logger.Warnw("Failed to close redis client", "error", err)
			}
		}
	})
}
