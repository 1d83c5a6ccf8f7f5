// Package response provides the JSON bodies written by AxiomCore handlers.
//
// Success bodies are handler specific and written with JSON. Every error
// path writes an ErrorBody, so callers always receive {"error": "..."}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/axiomcore/pkg/utils/errors"
)

// ErrorBody is the JSON body written on error paths.
type ErrorBody struct {
	// Error is a human-readable message
	Error string `json:"error"`

	// Path is set for unmatched routes only
	Path string `json:"path,omitempty"`
}

// JSON writes v with the given status code.
func JSON(c *gin.Context, status int, v interface{}) {
	c.JSON(status, v)
}

// OK writes v with 200.
func OK(c *gin.Context, v interface{}) {
	c.JSON(http.StatusOK, v)
}

// Fail aborts the request with status and {"error": message}.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: message})
}

// FailErrno aborts the request with the status and English message of e.
func FailErrno(c *gin.Context, e *errors.Errno) {
	if e == nil {
		e = errors.ErrInternal
	}
	Fail(c, e.HTTPStatus(), e.MessageEN)
}

// NotFound aborts the request with 404 {"error": "Not Found", "path": <path>}.
func NotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorBody{
		Error: errors.ErrNotFound.MessageEN,
		Path:  c.Request.URL.Path,
	})
}
