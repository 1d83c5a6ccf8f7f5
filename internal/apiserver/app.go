package apiserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/spf13/viper"

	"github.com/kart-io/axiomcore/pkg/infra/app"
	"github.com/kart-io/axiomcore/pkg/infra/config"
	infralog "github.com/kart-io/axiomcore/pkg/infra/logger"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

const (
	appName        = "axiom-api"
	appDescription = `AxiomCore API Server

The HTTP API server for the AxiomCore platform.

This server provides:
  - Health, readiness and status endpoints
  - Security headers, CORS, rate limiting and compression
  - Prometheus metrics and optional OpenTelemetry tracing
  - Single-page frontend serving
  - Graceful shutdown on SIGTERM/SIGINT with a bounded drain

Examples:
  # Start with default configuration
  axiom-api

  # Start on a custom port
  PORT=9000 axiom-api

  # Use config file
  axiom-api -c /etc/axiomcore/axiom-api.yaml

  # Production mode with a shorter drain deadline
  axiom-api --server.environment=production --server.shutdown-timeout=10s

Configuration:
  Configuration can be provided via:
  - Command-line flags (highest priority)
  - Environment variables (prefix: AXIOM_API_)
  - Configuration file (YAML)
  - PORT, LOG_LEVEL, CORS_ORIGIN, RATE_LIMIT_MAX, NODE_ENV, APP_VERSION,
    SHUTDOWN_TIMEOUT
  - Default values (lowest priority)`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	var a *app.App
	a = app.NewApp(
		app.WithName(appName),
		app.WithProject("axiomcore"),
		app.WithShortDescription("AxiomCore API server"),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(context.Background(), opts, a.Viper())
		}),
	)
	return a
}

// Run runs the API server with the given options. v is watched for log
// configuration changes when it was loaded from a file.
func Run(ctx context.Context, opts *Options, v *viper.Viper) error {
	printBanner(opts)

	// 1. 初始化日志
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", opts.Server.Version)
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting API service...")

	// 2. 日志配置热加载
	if v != nil {
		watcher := config.NewWatcher(v)
		infralog.NewReloader(opts.Log).RegisterWithWatcher(watcher, "logger", "log")
		watcher.Start()
		defer watcher.Stop()
	}

	if opts.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. 初始化服务器
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	srv, err := cfg.NewServer(ctx)
	if err != nil {
		return err
	}

	// 4. 启动并等待退出
	return srv.Run(ctx)
}

// printBanner prints the startup banner.
func printBanner(opts *Options) {
	fmt.Println("===========================================")
	fmt.Println("  AxiomCore API Server")
	fmt.Println("===========================================")
	fmt.Printf("Version: %s\n", opts.Server.Version)
	fmt.Printf("Build: %s\n", app.GetVersion())
	fmt.Printf("Environment: %s\n", opts.Server.Environment)
	fmt.Printf("HTTP: %s\n", opts.HTTP.Addr)

	fmt.Println("-------------------------------------------")
	fmt.Println("Configuration:")
	fmt.Printf("  Logger: level=%s, format=%s\n", opts.Log.Level, opts.Log.Format)
	fmt.Printf("  Shutdown timeout: %s\n", opts.Server.ShutdownTimeout)
	if opts.Server.StaticDir != "" {
		fmt.Printf("  Static dir: %s\n", opts.Server.StaticDir)
	}
	if opts.useRedis() {
		fmt.Printf("  Redis: %s (db=%d)\n", opts.Redis.Addr(), opts.Redis.Database)
	}
	if opts.Tracing.Enabled {
		fmt.Printf("  Tracing: %s (%s)\n", opts.Tracing.Endpoint, opts.Tracing.ExporterType)
	}

	fmt.Println("-------------------------------------------")
	fmt.Printf("Middleware: %s\n", strings.Join(enabledMiddleware(opts), ", "))
	fmt.Println("===========================================")
}

func enabledMiddleware(o *Options) []string {
	opts := o.Middleware

	var names []string
	for _, name := range opts.GetMiddlewareOrder() {
		if name == mwopts.MiddlewareTracing && !o.Tracing.Enabled {
			continue
		}
		if opts.IsEnabled(name) {
			names = append(names, name)
		}
	}
	if opts.IsEnabled(mwopts.MiddlewareHealth) {
		names = append(names, mwopts.MiddlewareHealth)
	}
	return names
}
