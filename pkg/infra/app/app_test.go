package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"
)

type testOptions struct {
	Server struct {
		Addr    string        `mapstructure:"addr"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"server"`
	Origins []string `mapstructure:"origins"`

	completed bool
	loaded    string
}

func newTestOptions() *testOptions {
	o := &testOptions{Origins: []string{"*"}}
	o.Server.Addr = ":8080"
	o.Server.Timeout = 30 * time.Second
	return o
}

func (o *testOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("server")
	fs.StringVar(&o.Server.Addr, "server.addr", o.Server.Addr, "Listen address.")
	fs.DurationVar(&o.Server.Timeout, "server.timeout", o.Server.Timeout, "Timeout.")
	fs.StringSliceVar(&o.Origins, "origins", o.Origins, "Allowed origins.")
	return fss
}

func (o *testOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *testOptions) Validate() error {
	var errs []error
	if o.Server.Timeout <= 0 {
		errs = append(errs, errors.New("server.timeout must be positive"))
	}
	return utilerrors.NewAggregate(errs)
}

func (o *testOptions) LoadFromViper(v *viper.Viper) error {
	o.loaded = v.GetString("extra")
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "test-app.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func runApp(t *testing.T, opts *testOptions, args ...string) (*App, error) {
	t.Helper()

	ran := false
	a := NewApp(
		WithName("test-app"),
		WithNoVersion(),
		WithOptions(opts),
		WithRunFunc(func() error {
			ran = true
			return nil
		}),
	)
	a.Command().SetArgs(args)
	err := a.Execute()
	if err == nil {
		assert.True(t, ran, "run func should be called")
	}
	return a, err
}

func TestApp_Defaults(t *testing.T) {
	opts := newTestOptions()
	_, err := runApp(t, opts)
	require.NoError(t, err)

	assert.Equal(t, ":8080", opts.Server.Addr)
	assert.Equal(t, 30*time.Second, opts.Server.Timeout)
	assert.True(t, opts.completed)
}

func TestApp_ConfigFile(t *testing.T) {
	file := writeConfig(t, "server:\n  addr: \":9090\"\n  timeout: 5s\nextra: hello\n")

	opts := newTestOptions()
	a, err := runApp(t, opts, "--config", file)
	require.NoError(t, err)

	assert.Equal(t, ":9090", opts.Server.Addr)
	assert.Equal(t, 5*time.Second, opts.Server.Timeout)
	assert.Equal(t, "hello", opts.loaded)
	assert.Equal(t, file, a.Viper().ConfigFileUsed())
}

func TestApp_FlagOverridesConfig(t *testing.T) {
	file := writeConfig(t, "server:\n  addr: \":9090\"\norigins:\n  - https://a.example\n")

	opts := newTestOptions()
	_, err := runApp(t, opts, "--config", file, "--server.addr", ":7070", "--origins", "https://b.example,https://c.example")
	require.NoError(t, err)

	assert.Equal(t, ":7070", opts.Server.Addr)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, opts.Origins)
}

func TestApp_EnvOverridesConfig(t *testing.T) {
	file := writeConfig(t, "server:\n  addr: \":9090\"\n")
	t.Setenv("TEST_APP_SERVER_ADDR", ":6060")

	opts := newTestOptions()
	_, err := runApp(t, opts, "--config", file)
	require.NoError(t, err)

	assert.Equal(t, ":6060", opts.Server.Addr)
}

func TestApp_ExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_LISTEN", ":5050")
	file := writeConfig(t, "server:\n  addr: \"${TEST_LISTEN}\"\n")

	opts := newTestOptions()
	_, err := runApp(t, opts, "--config", file)
	require.NoError(t, err)

	assert.Equal(t, ":5050", opts.Server.Addr)
}

func TestApp_ValidationError(t *testing.T) {
	opts := newTestOptions()
	_, err := runApp(t, opts, "--server.timeout", "0s")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.timeout must be positive")
}

func TestApp_ErrorsAreNotPrintedByCobra(t *testing.T) {
	a := NewApp(
		WithName("test-app"),
		WithNoVersion(),
		WithOptions(newTestOptions()),
		WithRunFunc(func() error { return errors.New("listen failed") }),
	)
	stderr := &bytes.Buffer{}
	a.Command().SetErr(stderr)
	a.Command().SetOut(&bytes.Buffer{})
	a.Command().SetArgs([]string{})

	err := a.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen failed")
	assert.Empty(t, stderr.String())

	a.Command().SetArgs([]string{"--no-such-flag"})
	require.Error(t, a.Execute())
	assert.Empty(t, stderr.String())
}

func TestApp_MissingConfigFile(t *testing.T) {
	opts := newTestOptions()
	_, err := runApp(t, opts, "--config", filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "AXIOM_API_MIDDLEWARE_RATE_LIMIT_LIMIT", envKey("axiom-api", "middleware.rate-limit.limit"))
}
