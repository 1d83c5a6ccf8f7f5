// Package resilience provides the error boundary, body limit and rate
// limiting middleware.
package resilience

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
	"github.com/kart-io/axiomcore/pkg/utils/errors"
	"github.com/kart-io/axiomcore/pkg/utils/response"
)

// PanicHandler 定义 panic 处理器类型。
type PanicHandler func(ctx *gin.Context, err interface{}, stack []byte)

// Recovery returns the error boundary with default options.
func Recovery() gin.HandlerFunc {
	return RecoveryWithOptions(*mwopts.NewRecoveryOptions(), nil)
}

// RecoveryWithOptions returns the error boundary middleware.
//
// It recovers panics and renders the last error attached with c.Error when
// the handler did not write a response. Failures are logged with method,
// path and stack, and the client always receives {"error": "..."}.
//
// In production the message of 5xx, panic and unregistered errors is
// replaced with "Internal Server Error". Registered 4xx errors keep their
// public message.
func RecoveryWithOptions(opts mwopts.RecoveryOptions, onPanic PanicHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if r == http.ErrAbortHandler {
					panic(r)
				}
				stack := debug.Stack()

				logger.Errorw("panic recovered",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"panic", r,
					"stack", stackField(stack, opts.EnableStackTrace),
				)
				if onPanic != nil {
					onPanic(c, r, stack)
				}

				err := errors.ErrPanic.WithMessage(fmt.Sprint(r))
				writeError(c, err, opts.Production)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		logger.Errorw("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", fmt.Sprintf("%+v", err),
			"stack", stackField(debug.Stack(), opts.EnableStackTrace),
		)
		writeError(c, err, opts.Production)
	}
}

func stackField(stack []byte, enabled bool) string {
	if !enabled {
		return ""
	}
	return string(stack)
}

// writeError renders err as JSON.
func writeError(c *gin.Context, err error, production bool) {
	if IsBodyTooLarge(err) {
		err = errors.ErrRequestEntityTooLarge.WithCause(err)
	}
	e := errors.FromError(err)
	status := e.HTTPStatus()
	response.Fail(c, status, PublicMessage(err, production))
}

// PublicMessage returns the message a client may see for err.
func PublicMessage(err error, production bool) string {
	if IsBodyTooLarge(err) {
		return errors.ErrRequestEntityTooLarge.MessageEN
	}

	var e *errors.Errno
	isErrno := stderrors.As(err, &e)

	if isErrno && errors.IsRegistered(e) && e.HTTPStatus() < http.StatusInternalServerError {
		return e.MessageEN
	}
	if production {
		return errors.ErrInternal.MessageEN
	}
	if isErrno {
		return e.MessageEN
	}
	return err.Error()
}
