package monitor

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Defaults for the deployment environment.
const (
	DefaultRegion      = "us-central1"
	DefaultService     = "axiomcore-api"
	DefaultURLTemplate = "https://{service}-{region}-{project}.run.app"

	DefaultMonitorOutput = "monitor_results.json"
	DefaultMetricsOutput = "metrics.json"

	DefaultHealthTimeout = 10 * time.Second
	DefaultProbeTimeout  = 15 * time.Second
	DefaultScrapeTimeout = 10 * time.Second
)

// Options configures the monitor and metrics collector.
type Options struct {
	// Projects are the deployment projects to check.
	Projects []string `json:"projects" mapstructure:"projects"`
	// Region is substituted for {region} in URLTemplate.
	Region string `json:"region" mapstructure:"region"`
	// Service is substituted for {service} in URLTemplate.
	Service string `json:"service" mapstructure:"service"`
	// URLTemplate builds each project's base URL.
	URLTemplate string `json:"url-template" mapstructure:"url-template"`
	// BaseURL overrides URLTemplate for every project when set.
	BaseURL string `json:"base-url" mapstructure:"base-url"`
	// Output is the report file path.
	Output string `json:"output" mapstructure:"output"`

	HealthTimeout time.Duration `json:"health-timeout" mapstructure:"health-timeout"`
	ProbeTimeout  time.Duration `json:"probe-timeout" mapstructure:"probe-timeout"`
	ScrapeTimeout time.Duration `json:"scrape-timeout" mapstructure:"scrape-timeout"`

	// Concurrency caps the checks running at once.
	Concurrency int `json:"concurrency" mapstructure:"concurrency"`
}

// NewOptions creates Options seeded from CLOUD_RUN_PROJECTS, DEPLOY_REGION,
// CLOUD_RUN_SERVICE, CLOUD_RUN_SERVICE_URL_TEMPLATE and CLOUD_RUN_BASE_URL.
func NewOptions(output string) *Options {
	return newOptions(output, os.LookupEnv)
}

func newOptions(output string, lookup func(string) (string, bool)) *Options {
	o := &Options{
		Region:        DefaultRegion,
		Service:       DefaultService,
		URLTemplate:   DefaultURLTemplate,
		Output:        output,
		HealthTimeout: DefaultHealthTimeout,
		ProbeTimeout:  DefaultProbeTimeout,
		ScrapeTimeout: DefaultScrapeTimeout,
		Concurrency:   16,
	}

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("CLOUD_RUN_PROJECTS"); ok {
		o.Projects = ParseProjects(v)
	}
	if v, ok := get("DEPLOY_REGION"); ok {
		o.Region = v
	}
	if v, ok := get("CLOUD_RUN_SERVICE"); ok {
		o.Service = v
	}
	if v, ok := get("CLOUD_RUN_SERVICE_URL_TEMPLATE"); ok {
		o.URLTemplate = v
	}
	if v, ok := get("CLOUD_RUN_BASE_URL"); ok {
		o.BaseURL = v
	}
	return o
}

// ParseProjects splits a comma separated project list, dropping blanks.
func ParseProjects(raw string) []string {
	var projects []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			projects = append(projects, p)
		}
	}
	return projects
}

// AddFlags adds flags for monitor options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&o.Projects, "projects", o.Projects, "Projects to check. Defaults to CLOUD_RUN_PROJECTS.")
	fs.StringVar(&o.Region, "region", o.Region, "Deployment region.")
	fs.StringVar(&o.Service, "service", o.Service, "Deployed service name.")
	fs.StringVar(&o.URLTemplate, "url-template", o.URLTemplate, "Base URL template with {service}, {region} and {project}.")
	fs.StringVar(&o.BaseURL, "base-url", o.BaseURL, "Base URL used for every project, overriding the template.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Report file path.")
	fs.DurationVar(&o.HealthTimeout, "health-timeout", o.HealthTimeout, "Timeout of the /health check.")
	fs.DurationVar(&o.ProbeTimeout, "probe-timeout", o.ProbeTimeout, "Timeout of the synthetic probe.")
	fs.DurationVar(&o.ScrapeTimeout, "scrape-timeout", o.ScrapeTimeout, "Timeout of the /metrics scrape.")
	fs.IntVar(&o.Concurrency, "concurrency", o.Concurrency, "Maximum number of checks running at once.")
}

// Complete normalizes the project list.
func (o *Options) Complete() error {
	o.Projects = ParseProjects(strings.Join(o.Projects, ","))
	return nil
}

// Validate validates the monitor options.
func (o *Options) Validate() error {
	var errs []error
	if o.Output == "" {
		errs = append(errs, fmt.Errorf("output cannot be empty"))
	}
	if o.BaseURL == "" && o.URLTemplate == "" {
		errs = append(errs, fmt.Errorf("either base-url or url-template is required"))
	}
	if o.HealthTimeout <= 0 || o.ProbeTimeout <= 0 || o.ScrapeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("timeouts must be positive"))
	}
	if o.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive"))
	}
	return utilerrors.NewAggregate(errs)
}

// BaseURLFor returns the base URL of project without a trailing slash.
func (o *Options) BaseURLFor(project string) string {
	if o.BaseURL != "" {
		return strings.TrimRight(o.BaseURL, "/")
	}
	r := strings.NewReplacer(
		"{service}", o.Service,
		"{region}", o.Region,
		"{project}", project,
	)
	return strings.TrimRight(r.Replace(o.URLTemplate), "/")
}
