package monitor

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_Commands(t *testing.T) {
	cmd := NewApp().Command()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"monitor", "collect-metrics"}, names)

	monitorCmd, _, err := cmd.Find([]string{"monitor"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMonitorOutput, monitorCmd.Flags().Lookup("output").DefValue)
	assert.NotNil(t, monitorCmd.Flags().Lookup("log.level"))

	collectCmd, _, err := cmd.Find([]string{"collect-metrics"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMetricsOutput, collectCmd.Flags().Lookup("output").DefValue)
}

func TestNewApp_CollectMetricsWithoutProjects(t *testing.T) {
	t.Setenv("CLOUD_RUN_PROJECTS", "")
	output := filepath.Join(t.TempDir(), "metrics.json")

	a := NewApp()
	out := &bytes.Buffer{}
	a.Command().SetOut(out)
	a.Command().SetArgs([]string{"collect-metrics", "--output", output})

	require.NoError(t, a.Execute())
	assert.Contains(t, out.String(), "No projects configured for metrics collection.")

	_, err := os.Stat(output)
	assert.NoError(t, err)
}

func TestNewApp_InvalidFlags(t *testing.T) {
	a := NewApp()
	a.Command().SetOut(&bytes.Buffer{})
	a.Command().SetErr(&bytes.Buffer{})
	a.Command().SetArgs([]string{"monitor", "--concurrency=0"})

	err := a.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency")
}
