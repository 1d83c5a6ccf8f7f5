package monitor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/logger"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/kart-io/axiomcore/pkg/utils/errors"
)

// Synthetic conversion factors.
const (
	kwhPerRequest = 0.0002
	carbonPerKWh  = 0.0004

	requestsSuffix = "_requests_total"
	durationSuffix = "_request_duration_seconds"

	noBillingNote = "No billing client configured"
)

// Usage is the traffic observed on one project.
type Usage struct {
	Requests     int64   `json:"requests"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	Region       string  `json:"region"`
}

// Quota is the resource allocation of one deployment.
type Quota struct {
	CPUAllocated string `json:"cpu_allocated"`
	MemoryMB     int    `json:"memory_mb"`
	Concurrency  int    `json:"concurrency"`
}

// Energy is the synthetic energy estimate derived from the request count.
type Energy struct {
	EnergyKWh float64 `json:"energy_kwh"`
	CarbonKg  float64 `json:"carbon_kg"`
}

// Revenue is the billing estimate. EstimatedUSD is nil without billing data.
type Revenue struct {
	EstimatedUSD *float64 `json:"estimated_revenue_usd"`
	Note         string   `json:"note,omitempty"`
}

// ProjectMetrics is the collected metrics of one project.
type ProjectMetrics struct {
	ProjectID string  `json:"project_id"`
	Usage     Usage   `json:"usage"`
	Quota     Quota   `json:"quota"`
	Energy    Energy  `json:"energy"`
	Revenue   Revenue `json:"revenue"`
}

// Totals aggregates every project.
type Totals struct {
	Requests            int64   `json:"requests"`
	EstimatedRevenueUSD float64 `json:"estimated_revenue_usd"`
	EnergyKWh           float64 `json:"energy_kwh"`
	CarbonKg            float64 `json:"carbon_kg"`
}

// MetricsReport is the document written by RunCollect.
type MetricsReport struct {
	GeneratedAt string           `json:"generated_at"`
	Projects    []ProjectMetrics `json:"projects"`
	Totals      *Totals          `json:"totals,omitempty"`
}

// EstimateEnergy converts a request count to energy and carbon figures.
func EstimateEnergy(requests int64) Energy {
	kwh := round(float64(requests)*kwhPerRequest, 4)
	return Energy{
		EnergyKWh: kwh,
		CarbonKg:  round(kwh*carbonPerKWh, 6),
	}
}

// Collect scrapes every project and aggregates the totals.
func (m *Monitor) Collect(ctx context.Context) (*MetricsReport, error) {
	report := &MetricsReport{
		GeneratedAt: m.clock.Now().UTC().Format(time.RFC3339),
		Projects:    make([]ProjectMetrics, len(m.opts.Projects)),
	}
	if len(m.opts.Projects) == 0 {
		return report, nil
	}

	tasks := make([]func(), 0, len(m.opts.Projects))
	for i, project := range m.opts.Projects {
		tasks = append(tasks, func() { report.Projects[i] = m.collectProject(ctx, project) })
	}
	if err := m.pool.RunAll(ctx, tasks...); err != nil {
		return nil, err
	}

	totals := &Totals{}
	for _, p := range report.Projects {
		totals.Requests += p.Usage.Requests
		if p.Revenue.EstimatedUSD != nil {
			totals.EstimatedRevenueUSD += *p.Revenue.EstimatedUSD
		}
		totals.EnergyKWh += p.Energy.EnergyKWh
		totals.CarbonKg += p.Energy.CarbonKg
	}
	totals.EnergyKWh = round(totals.EnergyKWh, 4)
	totals.CarbonKg = round(totals.CarbonKg, 6)
	report.Totals = totals

	return report, nil
}

// RunCollect collects metrics and writes them to Options.Output.
func (m *Monitor) RunCollect(ctx context.Context) error {
	report, err := m.Collect(ctx)
	if err != nil {
		return err
	}

	if len(report.Projects) == 0 {
		fmt.Fprintln(m.out, "No projects configured for metrics collection.")
	}
	if err := writeReport(m.opts.Output, report); err != nil {
		return err
	}
	if len(report.Projects) > 0 {
		fmt.Fprintf(m.out, "Wrote metrics to %s\n", m.opts.Output)
	}
	return nil
}

func (m *Monitor) collectProject(ctx context.Context, project string) ProjectMetrics {
	usage := Usage{Region: m.opts.Region}

	baseURL := m.opts.BaseURLFor(project)
	families, err := m.scrape(ctx, baseURL+"/metrics")
	if err != nil {
		logger.Warnw("Metrics scrape failed", "project", project, "url", baseURL,
			"error", errors.ErrScrapeFailed.WithCause(err))
	} else {
		usage.Requests, usage.AvgLatencyMS = summarize(families)
	}

	return ProjectMetrics{
		ProjectID: project,
		Usage:     usage,
		Quota: Quota{
			CPUAllocated: "shared",
			MemoryMB:     512,
			Concurrency:  80,
		},
		Energy:  EstimateEnergy(usage.Requests),
		Revenue: Revenue{Note: noBillingNote},
	}
}

func (m *Monitor) scrape(ctx context.Context, url string) ([]*dto.MetricFamily, error) {
	res, err := m.client.Fetch(ctx, url, m.opts.ScrapeTimeout)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	dec := expfmt.NewDecoder(bytes.NewReader(res.Body), expfmt.ResponseFormat(res.Header))
	var families []*dto.MetricFamily
	for {
		mf := &dto.MetricFamily{}
		if err := dec.Decode(mf); err != nil {
			if err == io.EOF {
				return families, nil
			}
			return nil, fmt.Errorf("failed to decode metrics: %w", err)
		}
		families = append(families, mf)
	}
}

// summarize returns the total request count and the mean request latency in
// milliseconds across all request counters and duration histograms.
func summarize(families []*dto.MetricFamily) (int64, float64) {
	var (
		requests float64
		sum      float64
		count    uint64
	)
	for _, mf := range families {
		name := mf.GetName()
		switch {
		case mf.GetType() == dto.MetricType_COUNTER && strings.HasSuffix(name, requestsSuffix):
			for _, metric := range mf.GetMetric() {
				requests += metric.GetCounter().GetValue()
			}
		case mf.GetType() == dto.MetricType_HISTOGRAM && strings.HasSuffix(name, durationSuffix):
			for _, metric := range mf.GetMetric() {
				sum += metric.GetHistogram().GetSampleSum()
				count += metric.GetHistogram().GetSampleCount()
			}
		}
	}

	var avg float64
	if count > 0 {
		avg = round(sum/float64(count)*1000, 2)
	}
	return int64(requests), avg
}
