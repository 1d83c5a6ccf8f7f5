// Package handler 提供 API 服务的 HTTP 处理器。
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/axiomcore/pkg/utils/response"
)

// ServiceName is reported by the status endpoint.
const ServiceName = "AxiomCore API"

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// MessageResponse carries a single message.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusHandler 处理服务状态类请求。
type StatusHandler struct {
	version string
}

// NewStatusHandler 创建新的 StatusHandler。
func NewStatusHandler(version string) *StatusHandler {
	return &StatusHandler{version: version}
}

// Status reports that the service is operational.
func (h *StatusHandler) Status(c *gin.Context) {
	response.OK(c, StatusResponse{
		Status:  "operational",
		Service: ServiceName,
		Version: h.version,
	})
}

// Hello 处理公开的 hello 请求。
func (h *StatusHandler) Hello(c *gin.Context) {
	response.OK(c, MessageResponse{Message: "Hello from AxiomCore backend!"})
}

// Ping answers with pong.
func (h *StatusHandler) Ping(c *gin.Context) {
	response.OK(c, MessageResponse{Message: "pong"})
}
