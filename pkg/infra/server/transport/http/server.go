// Package http provides the gin based HTTP server driven by the lifecycle
// controller.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/axiomcore/pkg/infra/middleware"
	"github.com/kart-io/axiomcore/pkg/infra/server"
	"github.com/kart-io/axiomcore/pkg/infra/server/transport"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
	options "github.com/kart-io/axiomcore/pkg/options/server/http"
	"github.com/kart-io/axiomcore/pkg/utils/response"
)

// Server is the gin based HTTP server.
type Server struct {
	opts    *options.Options
	runtime *middleware.Runtime
	engine  *gin.Engine

	mu        sync.Mutex
	server    *http.Server
	listener  net.Listener
	accepting atomic.Bool
}

// NewServer creates a new HTTP server with the given options.
//
// The middleware chain is applied before any route is registered so that
// route groups created later inherit it. Unmatched routes answer with the
// JSON 404 body; callers may replace it through Engine().NoRoute.
func NewServer(serverOpts *options.Options, middlewareOpts *mwopts.Options, rt *middleware.Runtime) (*Server, error) {
	if serverOpts == nil {
		serverOpts = options.NewOptions()
	}
	if middlewareOpts == nil {
		middlewareOpts = mwopts.NewOptions()
	}
	if rt == nil {
		rt = &middleware.Runtime{}
	}

	if err := middlewareOpts.Complete(); err != nil {
		return nil, err
	}

	// 创建 Gin 引擎（不使用默认中间件）
	engine := gin.New()

	chain, err := middleware.Build(middlewareOpts, rt)
	if err != nil {
		return nil, err
	}
	engine.Use(chain...)

	middleware.RegisterRoutes(engine, middlewareOpts, rt)
	engine.NoRoute(response.NotFound)

	return &Server{
		opts:    serverOpts,
		runtime: rt,
		engine:  engine,
	}, nil
}

// Engine returns the underlying gin.Engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Runtime returns the middleware runtime the chain was built with.
func (s *Server) Runtime() *middleware.Runtime {
	return s.runtime
}

// Register registers routes from each registrar.
func (s *Server) Register(registrars ...transport.RouteRegistrar) {
	for _, r := range registrars {
		r.RegisterRoutes(s.engine)
	}
}

// Start binds the configured address and serves in the background.
// Bind failures are returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("http server already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		ReadTimeout:       s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
	}
	s.accepting.Store(true)

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.accepting.Store(false)
			logger.Errorw("HTTP server stopped unexpectedly", "addr", ln.Addr().String(), "error", err)
		}
	}()

	return nil
}

// Stop stops accepting new connections and waits for in-flight requests
// to finish or ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	s.accepting.Store(false)
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Addr returns the bound address, or the configured address before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Port returns the bound TCP port, or 0 before Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return 0
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// IsAccepting reports whether the server accepts new connections.
func (s *Server) IsAccepting() bool {
	return s.accepting.Load()
}

var _ server.Listener = (*Server)(nil)
