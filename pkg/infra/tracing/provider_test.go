package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func TestNewOptions(t *testing.T) {
	opts := NewOptions()

	if opts.Enabled {
		t.Error("Expected tracing to be disabled by default")
	}
	if opts.ServiceName != "axiom-api" {
		t.Errorf("Expected service name to be 'axiom-api', got %s", opts.ServiceName)
	}
	if opts.ExporterType != ExporterOTLPGRPC {
		t.Errorf("Expected exporter type to be OTLP gRPC, got %s", opts.ExporterType)
	}
	if opts.SamplerType != SamplerParentBased {
		t.Errorf("Expected sampler type to be parent-based, got %s", opts.SamplerType)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Options)
		wantErrs int
	}{
		{
			name:     "disabled tracing is valid",
			modify:   func(o *Options) { o.ExporterType = "bogus" },
			wantErrs: 0,
		},
		{
			name:     "enabled defaults are valid",
			modify:   func(o *Options) { o.Enabled = true },
			wantErrs: 0,
		},
		{
			name: "missing endpoint",
			modify: func(o *Options) {
				o.Enabled = true
				o.Endpoint = ""
			},
			wantErrs: 1,
		},
		{
			name: "stdout needs no endpoint",
			modify: func(o *Options) {
				o.Enabled = true
				o.ExporterType = ExporterStdout
				o.Endpoint = ""
			},
			wantErrs: 0,
		},
		{
			name: "several problems are collected",
			modify: func(o *Options) {
				o.Enabled = true
				o.ServiceName = ""
				o.ExporterType = "bogus"
				o.SamplerType = "bogus"
				o.SamplerRatio = 2
				o.BatchTimeout = 0
			},
			wantErrs: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			tt.modify(opts)

			if errs := opts.Validate(); len(errs) != tt.wantErrs {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.wantErrs)
			}
		})
	}
}

func TestOptionsComplete(t *testing.T) {
	opts := &Options{}
	if err := opts.Complete(); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if opts.Headers == nil {
		t.Error("Expected headers to be initialized")
	}
	if opts.SamplerType != SamplerParentBased {
		t.Errorf("SamplerType = %s, want parent_based", opts.SamplerType)
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), NewOptions())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if p.Enabled() {
		t.Error("Expected disabled provider")
	}
	if p.Tracer("test") == nil {
		t.Error("Expected a tracer even when disabled")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewProvider_InvalidOptions(t *testing.T) {
	opts := NewOptions()
	opts.Enabled = true
	opts.ExporterType = "bogus"

	if _, err := NewProvider(context.Background(), opts); err == nil {
		t.Error("Expected error for invalid exporter type")
	}
}

func TestNewProvider_NoopExporter(t *testing.T) {
	opts := NewOptions()
	opts.Enabled = true
	opts.ExporterType = ExporterNoop
	opts.SamplerType = SamplerAlwaysOn

	p, err := NewProvider(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer p.Shutdown(context.Background())

	ctx, span := p.Tracer("test").Start(context.Background(), "op")
	if !span.IsRecording() {
		t.Error("Expected recording span with always_on sampler")
	}
	if TraceIDFromContext(ctx) == "" || SpanIDFromContext(ctx) == "" {
		t.Error("Expected trace and span IDs in context")
	}
	span.End()
}

func TestNewProvider_StdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	old := stdoutWriter
	stdoutWriter = &buf
	defer func() { stdoutWriter = old }()

	opts := NewOptions()
	opts.Enabled = true
	opts.ExporterType = ExporterStdout
	opts.SamplerType = SamplerAlwaysOn

	p, err := NewProvider(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	_, span := StartSpanWithKind(context.Background(), "test", "stdout-op", trace.SpanKindServer)
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if !strings.Contains(buf.String(), "stdout-op") {
		t.Errorf("Expected exported span in output, got %q", buf.String())
	}
}

func TestTraceIDFromContext_NoSpan(t *testing.T) {
	if id := TraceIDFromContext(context.Background()); id != "" {
		t.Errorf("TraceIDFromContext() = %q, want empty", id)
	}
	RecordError(context.Background(), nil)
}
