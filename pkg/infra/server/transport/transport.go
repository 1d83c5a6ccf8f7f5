// Package transport defines how application routes attach to a transport.
package transport

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar registers application routes on the engine.
type RouteRegistrar interface {
	RegisterRoutes(engine *gin.Engine)
}

// RouteRegistrarFunc adapts a function to RouteRegistrar.
type RouteRegistrarFunc func(engine *gin.Engine)

// RegisterRoutes calls f(engine).
func (f RouteRegistrarFunc) RegisterRoutes(engine *gin.Engine) {
	f(engine)
}
