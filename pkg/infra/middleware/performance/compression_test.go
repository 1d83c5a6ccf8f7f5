package performance

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/axiomcore/pkg/infra/middleware/resilience"
	"github.com/kart-io/axiomcore/pkg/utils/json"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCompressionEngine(opts mwopts.CompressionOptions) *gin.Engine {
	r := gin.New()
	r.Use(CompressionWithOptions(opts))
	r.GET("/big", func(c *gin.Context) {
		c.String(http.StatusOK, strings.Repeat("hello world ", 200))
	})
	r.GET("/small", func(c *gin.Context) {
		c.String(http.StatusOK, "tiny")
	})
	r.GET("/png", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", make([]byte, 4096))
	})
	r.GET("/json", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": strings.Repeat("x", 2048)})
	})
	return r
}

func request(r *gin.Engine, path, acceptEncoding string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if acceptEncoding != "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCompression_LargeTextIsGzipped(t *testing.T) {
	r := newCompressionEngine(*mwopts.NewCompressionOptions())

	w := request(r, "/big", "gzip, deflate")

	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
	if got := w.Header().Get("Vary"); got != "Accept-Encoding" {
		t.Errorf("Vary = %q, want Accept-Encoding", got)
	}

	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read gzip body: %v", err)
	}
	if want := strings.Repeat("hello world ", 200); string(body) != want {
		t.Errorf("decompressed body length = %d, want %d", len(body), len(want))
	}
}

func TestCompression_JSON(t *testing.T) {
	r := newCompressionEngine(*mwopts.NewCompressionOptions())

	w := request(r, "/json", "gzip")

	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", got)
	}
}

func TestCompression_Passthrough(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		acceptEncoding string
		wantBody       string
	}{
		{"below threshold", "/small", "gzip", "tiny"},
		{"client without gzip", "/small", "", "tiny"},
		{"gzip refused with q=0", "/small", "gzip;q=0", "tiny"},
		{"non compressible type", "/png", "gzip", ""},
	}

	r := newCompressionEngine(*mwopts.NewCompressionOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(r, tt.path, tt.acceptEncoding)

			if got := w.Header().Get("Content-Encoding"); got != "" {
				t.Errorf("Content-Encoding = %q, want none", got)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestCompression_SkipPaths(t *testing.T) {
	opts := *mwopts.NewCompressionOptions()
	opts.SkipPaths = []string{"/big"}
	r := newCompressionEngine(opts)

	w := request(r, "/big", "gzip")

	if got := w.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("Content-Encoding = %q, want none for skipped path", got)
	}
}

func TestCompression_PanicDropsBufferedBody(t *testing.T) {
	r := gin.New()
	r.Use(resilience.Recovery(), CompressionWithOptions(*mwopts.NewCompressionOptions()))
	r.GET("/partial", func(c *gin.Context) {
		_, _ = c.Writer.WriteString("partial")
		panic("boom")
	})

	w := request(r, "/partial", "gzip")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := w.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("Content-Encoding = %q, want none", got)
	}
	if strings.Contains(w.Body.String(), "partial") {
		t.Fatalf("body leaked buffered bytes: %q", w.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %q (%v)", w.Body.String(), err)
	}
	if _, ok := body["error"]; !ok {
		t.Errorf("body = %v, want error key", body)
	}
}

func TestAcceptsGzip(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"gzip", true},
		{"deflate, gzip;q=0.8", true},
		{"br", false},
		{"*", true},
		{"gzip;q=0", false},
	}
	for _, tt := range tests {
		if got := acceptsGzip(tt.header); got != tt.want {
			t.Errorf("acceptsGzip(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
