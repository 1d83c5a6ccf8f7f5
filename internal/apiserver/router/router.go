// Package router 提供 API 服务的路由注册。
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/axiomcore/internal/apiserver/handler"
	"github.com/kart-io/axiomcore/pkg/infra/server/transport"
)

// Options selects the optional route groups.
type Options struct {
	// Version is reported by /api/status.
	Version string
	// StaticDir enables SPA serving when non-empty.
	StaticDir string
}

// Router 注册 API 服务的路由。
type Router struct {
	opts Options
}

var _ transport.RouteRegistrar = (*Router)(nil)

// New creates the API server router.
func New(opts Options) *Router {
	return &Router{opts: opts}
}

// RegisterRoutes implements transport.RouteRegistrar.
func (r *Router) RegisterRoutes(engine *gin.Engine) {
	opts := r.opts
	statusHandler := handler.NewStatusHandler(opts.Version)

	api := engine.Group("/api")
	{
		api.GET("/status", statusHandler.Status)
		api.GET("/hello", statusHandler.Hello)
		api.GET("/ping", statusHandler.Ping)
	}
	logger.Debug("API routes registered")

	if opts.StaticDir != "" {
		handler.NewSPAHandler(opts.StaticDir).RegisterRoutes(engine)
		logger.Debugw("SPA routes registered", "dir", opts.StaticDir)
	}
}
