package resilience

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/axiomcore/pkg/infra/middleware/internal/pathutil"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
	"github.com/kart-io/axiomcore/pkg/utils/errors"
	"github.com/kart-io/axiomcore/pkg/utils/response"
	"github.com/kart-io/logger"
)

// BodyLimit 返回一个请求体大小限制中间件。
//
//	router.Use(BodyLimit(10 << 20)) // 限制 10MB
func BodyLimit(maxSize int64) gin.HandlerFunc {
	return BodyLimitWithOptions(mwopts.BodyLimitOptions{
		MaxSize: maxSize,
	})
}

// BodyLimitWithOptions 返回一个带配置选项的请求体大小限制中间件。
//
// 工作原理：
//  1. 检查 Content-Length 头，如果超过限制立即返回 413
//  2. 使用 http.MaxBytesReader 限制实际读取的字节数（chunked 请求）
//  3. 支持跳过特定路径
func BodyLimitWithOptions(opts mwopts.BodyLimitOptions) gin.HandlerFunc {
	if opts.MaxSize <= 0 {
		opts.MaxSize = mwopts.DefaultBodyLimit
	}

	skip := pathutil.NewPathMatcher(opts.SkipPaths, opts.SkipPathPrefixes)

	return func(c *gin.Context) {
		req := c.Request

		if skip(req.URL.Path) || req.Body == nil || req.Body == http.NoBody {
			c.Next()
			return
		}

		if req.ContentLength > opts.MaxSize {
			logger.Warnw("request body too large",
				"path", req.URL.Path,
				"content_length", req.ContentLength,
				"max_size", opts.MaxSize,
			)
			response.FailErrno(c, errors.ErrRequestEntityTooLarge)
			return
		}

		req.Body = http.MaxBytesReader(c.Writer, req.Body, opts.MaxSize)
		c.Next()
	}
}

// IsBodyTooLarge reports whether err was caused by reading past the body limit.
// Handlers can map it to errors.ErrRequestEntityTooLarge.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return stderrors.As(err, &maxErr)
}
