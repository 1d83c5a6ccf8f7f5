// Package app provides application bootstrapping with Cobra, Viper, and Pflag.
//
// Configuration is resolved in this order, later sources winning:
//   - the option defaults
//   - a config file (--config, or <name>.yaml in ., ./configs, $HOME/.<project>)
//   - environment variables prefixed with the upper-cased app name
//   - command line flags
//
// Usage:
//
//	app := app.NewApp(
//	    app.WithName("axiom-api"),
//	    app.WithDescription("AxiomCore API server"),
//	    app.WithOptions(opts),
//	    app.WithRunFunc(run),
//	)
//	app.Run()
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kart-io/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
)

// App is the main application structure.
type App struct {
	name        string
	project     string
	shortDesc   string
	description string
	options     CliOptions
	runFunc     RunFunc
	commands    []*cobra.Command
	cmd         *cobra.Command
	viper       *viper.Viper
	args        cobra.PositionalArgs
	noVersion   bool
	noConfig    bool
}

// RunFunc is the application's run function.
type RunFunc func() error

// Option configures an App.
type Option func(*App)

// WithName sets the application name. It is also the config file name and
// the environment variable prefix.
func WithName(name string) Option {
	return func(a *App) {
		a.name = name
	}
}

// WithProject sets the project directory searched under $HOME, e.g.
// "axiomcore" for $HOME/.axiomcore.
func WithProject(project string) Option {
	return func(a *App) {
		a.project = project
	}
}

// WithShortDescription sets the short description.
func WithShortDescription(desc string) Option {
	return func(a *App) {
		a.shortDesc = desc
	}
}

// WithDescription sets the long description.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithOptions sets the CLI options.
func WithOptions(opts CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc sets the run function.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithCommands adds sub commands.
func WithCommands(cmds ...*cobra.Command) Option {
	return func(a *App) {
		a.commands = append(a.commands, cmds...)
	}
}

// WithArgs sets the positional args validation.
func WithArgs(args cobra.PositionalArgs) Option {
	return func(a *App) {
		a.args = args
	}
}

// WithNoVersion disables version flag.
func WithNoVersion() Option {
	return func(a *App) {
		a.noVersion = true
	}
}

// WithNoConfig disables config file loading.
func WithNoConfig() Option {
	return func(a *App) {
		a.noConfig = true
	}
}

// NewApp creates a new application instance.
func NewApp(opts ...Option) *App {
	a := &App{
		name:  filepath.Base(os.Args[0]),
		viper: viper.New(),
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.project == "" {
		a.project = a.name
	}

	a.buildCommand()
	return a
}

// buildCommand creates the cobra command.
func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:   a.name,
		Short: a.shortDesc,
		Long:  a.description,
		Args:  a.args,
		// Always silence usage on errors - users can use --help to see usage
		SilenceUsage: true,
		// Run prints the returned error once
		SilenceErrors: true,
	}
	if a.runFunc != nil || len(a.commands) == 0 {
		cmd.RunE = a.runCommand
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	a.addGlobalFlags(cmd)

	if a.options != nil {
		fss := a.options.Flags()
		for _, name := range fss.Order {
			cmd.Flags().AddFlagSet(fss.FlagSets[name])
		}
		setUsageFunc(cmd, fss)
	}

	cmd.AddCommand(a.commands...)

	a.cmd = cmd
}

// setUsageFunc prints flags grouped by section.
func setUsageFunc(cmd *cobra.Command, fss cliflag.NamedFlagSets) {
	cmd.SetUsageFunc(func(c *cobra.Command) error {
		out := c.OutOrStderr()
		fmt.Fprintf(out, "Usage:\n  %s\n", c.UseLine())
		if c.HasAvailableSubCommands() {
			fmt.Fprintf(out, "\nAvailable Commands:\n")
			for _, sub := range c.Commands() {
				if sub.IsAvailableCommand() {
					fmt.Fprintf(out, "  %-18s %s\n", sub.Name(), sub.Short)
				}
			}
		}
		cliflag.PrintSections(out, fss, 0)
		fmt.Fprintf(out, "\nGlobal Flags:\n%s", c.PersistentFlags().FlagUsages())
		return nil
	})
}

// addGlobalFlags adds global flags to the command.
func (a *App) addGlobalFlags(cmd *cobra.Command) {
	if !a.noConfig {
		cmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	}

	if !a.noVersion {
		version.AddFlags(cmd.PersistentFlags())
	}

	cmd.PersistentFlags().BoolP("help", "h", false, "Help for "+a.name)
}

// runCommand is the main run function for the command.
func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	if !a.noVersion {
		version.PrintAndExitIfRequested()
	}

	if !a.noConfig {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
	}

	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.runFunc != nil {
		return a.runFunc()
	}
	return nil
}

// loadConfig loads configuration from file, environment, and flags.
func (a *App) loadConfig(cmd *cobra.Command) error {
	v := a.viper

	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(a.name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+a.project))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	expandEnvVars(v)

	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(a.name, "-", "_")))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.options == nil {
		return nil
	}

	// 记录命令行显式设置的 flag，反序列化后重新应用以保证其优先级
	changedFlags := make(map[string]string)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changedFlags[f.Name] = f.Value.String()
		}
	})

	// 仅绑定出现在环境变量中的 flag，避免未设置的 key 覆盖默认值
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if _, ok := os.LookupEnv(envKey(a.name, f.Name)); ok {
			_ = v.BindEnv(f.Name)
		}
	})

	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if loader, ok := a.options.(ViperLoader); ok {
		if err := loader.LoadFromViper(v); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	for name, val := range changedFlags {
		if err := setFlag(cmd.Flags(), name, val); err != nil {
			return fmt.Errorf("failed to re-apply flag %s: %w", name, err)
		}
	}

	return nil
}

// setFlag re-applies a changed flag. Slice flags are replaced rather than
// appended to.
func setFlag(fs *pflag.FlagSet, name, val string) error {
	f := fs.Lookup(name)
	if f == nil {
		return nil
	}
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		trimmed := strings.TrimSuffix(strings.TrimPrefix(val, "["), "]")
		if trimmed == "" {
			return sv.Replace(nil)
		}
		return sv.Replace(strings.Split(trimmed, ","))
	}
	return fs.Set(name, val)
}

// envKey returns the environment variable name for a flag.
func envKey(appName, flagName string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return strings.ToUpper(r.Replace(appName) + "_" + r.Replace(flagName))
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands ${VAR} and $VAR style environment variables in config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		expanded := envPattern.ReplaceAllStringFunc(strVal, func(match string) string {
			var varName string
			if strings.HasPrefix(match, "${") {
				varName = match[2 : len(match)-1]
			} else {
				varName = match[1:]
			}
			if envVal, ok := os.LookupEnv(varName); ok {
				return envVal
			}
			return match // 环境变量不存在时保留原样
		})
		if expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

// Execute runs the command and returns its error.
func (a *App) Execute() error {
	return a.cmd.Execute()
}

// Run executes the application and exits with 1 on error.
func (a *App) Run() {
	if err := a.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command returns the cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Viper returns the viper instance holding the loaded configuration.
func (a *App) Viper() *viper.Viper {
	return a.viper
}

// Name returns the application name.
func (a *App) Name() string {
	return a.name
}
