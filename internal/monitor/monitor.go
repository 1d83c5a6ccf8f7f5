// Package monitor checks deployed AxiomCore instances and collects their
// operational metrics.
//
// Every project is checked concurrently on a bounded worker pool. Reports
// are written as indented JSON.
package monitor

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"

	"github.com/kart-io/logger"
	"k8s.io/utils/clock"

	"github.com/kart-io/axiomcore/pkg/infra/pool"
	"github.com/kart-io/axiomcore/pkg/utils/errors"
	"github.com/kart-io/axiomcore/pkg/utils/httpclient"
	"github.com/kart-io/axiomcore/pkg/utils/json"
)

const userAgent = "axiom-monitor"

// HealthResult is the outcome of the /health check.
type HealthResult struct {
	StatusCode int `json:"status_code,omitempty"`
	// Body is the decoded JSON body, or the raw text for other content types.
	Body  interface{} `json:"body,omitempty"`
	Error string      `json:"error,omitempty"`

	healthy bool
}

// SyntheticResult is the outcome of the synthetic probe of the base URL.
type SyntheticResult struct {
	LatencyMS  *float64 `json:"latency_ms"`
	StatusCode *int     `json:"status_code"`
	OK         bool     `json:"ok"`
	Error      string   `json:"error,omitempty"`
}

// ProjectReport is the monitor result of one project.
type ProjectReport struct {
	BaseURL   string          `json:"base_url"`
	Health    HealthResult    `json:"health"`
	Synthetic SyntheticResult `json:"synthetic"`
}

// Healthy reports whether both the health check and the probe succeeded.
func (r ProjectReport) Healthy() bool {
	return r.Health.healthy && r.Synthetic.OK
}

// Monitor runs health checks and metric scrapes against deployed projects.
type Monitor struct {
	opts   *Options
	client *httpclient.Client
	pool   *pool.Pool
	clock  clock.PassiveClock
	out    io.Writer
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *httpclient.Client) Option {
	return func(m *Monitor) {
		if c != nil {
			m.client = c
		}
	}
}

// WithClock sets the clock used for report timestamps.
func WithClock(c clock.PassiveClock) Option {
	return func(m *Monitor) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithOutput sets where progress messages are printed.
func WithOutput(w io.Writer) Option {
	return func(m *Monitor) {
		if w != nil {
			m.out = w
		}
	}
}

// NewMonitor creates a Monitor. Close releases its worker pool.
func NewMonitor(opts *Options, options ...Option) (*Monitor, error) {
	cfg := pool.HealthCheckPoolConfig()
	cfg.Capacity = opts.Concurrency

	p, err := pool.NewPool("monitor", pool.HealthCheckPool, cfg)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		opts:   opts,
		client: httpclient.NewClient(0, 0, httpclient.WithUserAgent(userAgent)),
		pool:   p,
		clock:  clock.RealClock{},
		out:    os.Stdout,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Close releases the worker pool and returns its final task counters.
func (m *Monitor) Close() pool.Stats {
	m.pool.Release()

	stats := m.pool.Stats()
	logger.Debugw("Monitor finished",
		"submitted", stats.SubmittedTasks,
		"completed", stats.CompletedTasks,
		"rejected", stats.RejectedTasks,
		"panics", stats.PanicRecovered,
	)
	return stats
}

// Check runs the health check and the synthetic probe of every project.
// It returns the report keyed by project and the unhealthy projects in
// configuration order.
func (m *Monitor) Check(ctx context.Context) (map[string]ProjectReport, []string, error) {
	reports := make([]ProjectReport, len(m.opts.Projects))

	tasks := make([]func(), 0, 2*len(reports))
	for i, project := range m.opts.Projects {
		reports[i].BaseURL = m.opts.BaseURLFor(project)
		base := reports[i].BaseURL
		tasks = append(tasks,
			func() { reports[i].Health = m.checkHealth(ctx, base) },
			func() { reports[i].Synthetic = m.probe(ctx, base) },
		)
	}
	if err := m.pool.RunAll(ctx, tasks...); err != nil {
		return nil, nil, err
	}

	summary := make(map[string]ProjectReport, len(reports))
	var unhealthy []string
	for i, project := range m.opts.Projects {
		summary[project] = reports[i]
		if !reports[i].Healthy() {
			unhealthy = append(unhealthy, project)
		}
	}
	return summary, unhealthy, nil
}

// RunMonitor checks every project and writes the report to Options.Output.
// It returns errors.ErrUnhealthy when any project is unhealthy.
func (m *Monitor) RunMonitor(ctx context.Context) error {
	if len(m.opts.Projects) == 0 {
		fmt.Fprintln(m.out, "No projects configured; set CLOUD_RUN_PROJECTS to enable monitoring.")
		return nil
	}

	summary, unhealthy, err := m.Check(ctx)
	if err != nil {
		return err
	}

	if err := writeReport(m.opts.Output, summary); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Wrote monitor results to %s\n", m.opts.Output)

	if len(unhealthy) > 0 {
		fmt.Fprintf(m.out, "Unhealthy services detected: %s\n", strings.Join(unhealthy, ", "))
		return errors.ErrUnhealthy.WithMessagef("unhealthy services detected: %s", strings.Join(unhealthy, ", "))
	}

	fmt.Fprintln(m.out, "All services reported healthy.")
	return nil
}

func (m *Monitor) checkHealth(ctx context.Context, baseURL string) HealthResult {
	res, err := m.client.Fetch(ctx, baseURL+"/health", m.opts.HealthTimeout)
	if err != nil {
		logger.Warnw("Health check failed", "url", baseURL, "error", errors.ErrProbeFailed.WithCause(err))
		return HealthResult{Error: err.Error()}
	}

	var body interface{} = string(res.Body)
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		var decoded interface{}
		if err := json.Unmarshal(res.Body, &decoded); err == nil {
			body = decoded
		}
	}

	return HealthResult{
		StatusCode: res.StatusCode,
		Body:       body,
		healthy:    res.StatusCode == http.StatusOK,
	}
}

func (m *Monitor) probe(ctx context.Context, baseURL string) SyntheticResult {
	res, err := m.client.Fetch(ctx, baseURL, m.opts.ProbeTimeout)
	if err != nil {
		logger.Warnw("Synthetic probe failed", "url", baseURL, "error", errors.ErrProbeFailed.WithCause(err))
		return SyntheticResult{Error: err.Error()}
	}

	latency := round(float64(res.Latency.Microseconds())/1000, 2)
	status := res.StatusCode
	return SyntheticResult{
		LatencyMS:  &latency,
		StatusCode: &status,
		OK:         status < http.StatusBadRequest,
	}
}

// writeReport writes v as indented JSON to path.
func writeReport(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
