package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/axiomcore/pkg/utils/response"
)

// frontendMissingMessage is returned by GET / when no build is present.
const frontendMissingMessage = "Frontend build not found. Run `npm run build` in /frontend."

// SPAHandler serves a built single-page frontend from a directory.
//
// Unmatched GET requests fall back to index.html so that client side routes
// resolve. API paths and other methods always get the JSON 404.
type SPAHandler struct {
	dir       string
	apiPrefix string
}

// NewSPAHandler creates a SPAHandler serving dir.
func NewSPAHandler(dir string) *SPAHandler {
	return &SPAHandler{
		dir:       dir,
		apiPrefix: "/api",
	}
}

// RegisterRoutes registers /assets, GET / and the fallback handler.
func (h *SPAHandler) RegisterRoutes(engine *gin.Engine) {
	assets := filepath.Join(h.dir, "assets")
	if info, err := os.Stat(assets); err == nil && info.IsDir() {
		engine.Static("/assets", assets)
	}
	engine.GET("/", h.Index)
	engine.NoRoute(h.Fallback)
}

// Index serves index.html, or a JSON hint when the frontend is not built.
func (h *SPAHandler) Index(c *gin.Context) {
	if index, ok := h.index(); ok {
		c.File(index)
		return
	}
	response.OK(c, gin.H{
		"status":  "ok",
		"message": frontendMissingMessage,
	})
}

// Fallback handles every unmatched route.
func (h *SPAHandler) Fallback(c *gin.Context) {
	reqPath := c.Request.URL.Path
	if c.Request.Method != http.MethodGet || h.isAPI(reqPath) || strings.Contains(reqPath, "..") {
		response.NotFound(c)
		return
	}

	if file, ok := h.lookup(reqPath); ok {
		c.File(file)
		return
	}
	if index, ok := h.index(); ok {
		c.File(index)
		return
	}
	response.NotFound(c)
}

func (h *SPAHandler) isAPI(p string) bool {
	return p == h.apiPrefix || strings.HasPrefix(p, h.apiPrefix+"/")
}

// lookup resolves reqPath to a regular file under the static directory.
func (h *SPAHandler) lookup(reqPath string) (string, bool) {
	cleaned := path.Clean("/" + reqPath)
	if cleaned == "/" {
		return "", false
	}
	file := filepath.Join(h.dir, filepath.FromSlash(cleaned))
	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return file, true
}

func (h *SPAHandler) index() (string, bool) {
	file := filepath.Join(h.dir, "index.html")
	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return file, true
}
