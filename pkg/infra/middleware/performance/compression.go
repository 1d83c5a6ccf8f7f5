// Package performance provides response compression middleware.
package performance

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/axiomcore/pkg/infra/middleware/internal/pathutil"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

const (
	headerAcceptEncoding  = "Accept-Encoding"
	headerContentEncoding = "Content-Encoding"
	headerContentLength   = "Content-Length"
	headerContentType     = "Content-Type"
	headerVary            = "Vary"
)

// Compression 返回一个响应压缩中间件。
//
//	router.Use(Compression(6))
func Compression(level int) gin.HandlerFunc {
	opts := mwopts.NewCompressionOptions()
	opts.Level = level
	return CompressionWithOptions(*opts)
}

// CompressionWithOptions 返回一个带配置选项的响应压缩中间件。
//
// 工作原理：
//  1. 检查客户端是否支持 gzip（Accept-Encoding 头）
//  2. 缓冲响应体直到达到 MinSize
//  3. 根据 Content-Type 决定是否压缩
//  4. 替换 c.Writer，请求结束后写出剩余数据
func CompressionWithOptions(opts mwopts.CompressionOptions) gin.HandlerFunc {
	if opts.Level == 0 {
		opts.Level = gzip.DefaultCompression
	}
	if opts.MinSize <= 0 {
		opts.MinSize = 1024
	}
	if len(opts.Types) == 0 {
		opts.Types = mwopts.NewCompressionOptions().Types
	}

	skip := pathutil.NewPathMatcher(opts.SkipPaths, opts.SkipPathPrefixes)

	compressTypes := make(map[string]struct{}, len(opts.Types))
	for _, ct := range opts.Types {
		compressTypes[ct] = struct{}{}
	}

	// gzip.Writer 池，复用对象减少内存分配
	pool := &sync.Pool{
		New: func() interface{} {
			gz, err := gzip.NewWriterLevel(io.Discard, opts.Level)
			if err != nil {
				gz = gzip.NewWriter(io.Discard)
			}
			return gz
		},
	}

	return func(c *gin.Context) {
		req := c.Request
		if req.Method == http.MethodHead || skip(req.URL.Path) || !acceptsGzip(req.Header.Get(headerAcceptEncoding)) {
			c.Next()
			return
		}

		original := c.Writer
		gw := &gzipResponseWriter{
			ResponseWriter: original,
			minSize:        opts.MinSize,
			compressTypes:  compressTypes,
			pool:           pool,
		}
		c.Writer = gw
		finished := false
		defer func() {
			// 处理链 panic 时丢弃缓冲，错误响应由外层 recovery 写出
			if !finished {
				gw.discard()
			}
			_ = gw.Close()
			c.Writer = original
		}()

		c.Next()
		finished = true
	}
}

// acceptsGzip reports whether an Accept-Encoding value allows gzip.
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		coding := strings.TrimSpace(fields[0])
		if coding != "gzip" && coding != "*" {
			continue
		}
		for _, param := range fields[1:] {
			if q := strings.TrimSpace(param); q == "q=0" || q == "q=0.0" || q == "q=0.00" || q == "q=0.000" {
				return false
			}
		}
		return true
	}
	return false
}

// gzipResponseWriter buffers the body until the compression decision can be
// made, then streams either gzip or plain bytes to the wrapped writer.
type gzipResponseWriter struct {
	gin.ResponseWriter

	pool          *sync.Pool
	gz            *gzip.Writer
	minSize       int
	compressTypes map[string]struct{}

	buf     []byte
	decided bool
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if w.decided {
		if w.gz != nil {
			return w.gz.Write(b)
		}
		return w.ResponseWriter.Write(b)
	}

	w.buf = append(w.buf, b...)
	if len(w.buf) < w.minSize {
		return len(b), nil
	}
	if err := w.decide(); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Written reports buffered bytes as written so handlers and the error
// boundary do not render a second body.
func (w *gzipResponseWriter) Written() bool {
	return len(w.buf) > 0 || w.ResponseWriter.Written()
}

func (w *gzipResponseWriter) Flush() {
	if !w.decided {
		_ = w.decide()
	}
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	w.ResponseWriter.Flush()
}

// decide picks plain or gzip output and writes the buffered bytes.
func (w *gzipResponseWriter) decide() error {
	w.decided = true
	buf := w.buf
	w.buf = nil

	if w.shouldCompress(buf) {
		h := w.Header()
		h.Del(headerContentLength)
		h.Set(headerContentEncoding, "gzip")
		h.Add(headerVary, headerAcceptEncoding)

		w.gz = w.pool.Get().(*gzip.Writer)
		w.gz.Reset(w.ResponseWriter)
		if len(buf) == 0 {
			return nil
		}
		_, err := w.gz.Write(buf)
		return err
	}

	if len(buf) == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(buf)
	return err
}

func (w *gzipResponseWriter) shouldCompress(buf []byte) bool {
	if len(buf) < w.minSize {
		return false
	}
	switch w.Status() {
	case http.StatusNoContent, http.StatusNotModified:
		return false
	}

	h := w.Header()
	if h.Get(headerContentEncoding) != "" {
		return false
	}

	contentType := h.Get(headerContentType)
	if contentType == "" {
		contentType = http.DetectContentType(buf)
		h.Set(headerContentType, contentType)
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	_, ok := w.compressTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return ok
}

// discard drops a body that has not reached the wrapped writer yet.
func (w *gzipResponseWriter) discard() {
	w.buf = nil
}

// Close writes any body still buffered and returns the gzip writer to the pool.
func (w *gzipResponseWriter) Close() error {
	if !w.decided && len(w.buf) > 0 {
		if err := w.decide(); err != nil {
			return err
		}
	}
	if w.gz == nil {
		return nil
	}

	err := w.gz.Close()
	w.pool.Put(w.gz)
	w.gz = nil
	return err
}
