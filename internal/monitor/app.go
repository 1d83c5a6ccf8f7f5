package monitor

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/axiomcore/pkg/infra/app"
	logopts "github.com/kart-io/axiomcore/pkg/options/logger"
)

const appName = "axiom-monitor"

// NewApp creates the operations tooling application.
func NewApp() *app.App {
	return app.NewApp(
		app.WithName(appName),
		app.WithProject("axiomcore"),
		app.WithShortDescription("AxiomCore deployment monitoring"),
		app.WithDescription(`AxiomCore operations tooling.

Checks deployed AxiomCore instances and collects their operational metrics.
Projects are read from CLOUD_RUN_PROJECTS or --projects.`),
		app.WithNoConfig(),
		app.WithCommands(
			newCommand("monitor", "Check the health of every deployed project",
				DefaultMonitorOutput, (*Monitor).RunMonitor),
			newCommand("collect-metrics", "Collect usage and energy metrics of every deployed project",
				DefaultMetricsOutput, (*Monitor).RunCollect),
		),
	)
}

type commandOptions struct {
	Monitor *Options
	Log     *logopts.Options
}

func (o *commandOptions) complete() error {
	if err := o.Log.Complete(); err != nil {
		return err
	}
	return o.Monitor.Complete()
}

func (o *commandOptions) validate() error {
	errs := o.Log.Validate()
	if err := o.Monitor.Validate(); err != nil {
		errs = append(errs, err)
	}
	return utilerrors.NewAggregate(errs)
}

func newCommand(use, short, output string, run func(*Monitor, context.Context) error) *cobra.Command {
	opts := &commandOptions{
		Monitor: NewOptions(output),
		Log:     logopts.NewOptions(),
	}
	opts.Log.OutputPaths = []string{"stderr"}

	cmd := &cobra.Command{
		Use:          use,
		Short:        short,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.complete(); err != nil {
				return err
			}
			if err := opts.validate(); err != nil {
				return err
			}
			if err := opts.Log.Init(); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			m, err := NewMonitor(opts.Monitor, WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer m.Close()

			return run(m, cmd.Context())
		},
	}

	opts.Monitor.AddFlags(cmd.Flags())
	opts.Log.AddFlags(cmd.Flags())
	return cmd
}
