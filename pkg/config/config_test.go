package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSnippet(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestReadDefaults(t *testing.T) {
	cfg, err := Read(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)

	assert.Equal(t, defaultInterval, cfg.Interval)
	assert.Equal(t, defaultGraphBase, cfg.GraphBaseURL.String())
	assert.Equal(t, defaultRemoteBase, cfg.Strategy.RemoteBaseURL.String())
	assert.Equal(t, "", cfg.Strategy.Name)
	assert.True(t, cfg.Strategy.NeverReportsSteady)
	assert.Nil(t, cfg.Identity.ThrottlePermille)
}

func TestReadMergePrecedence(t *testing.T) {
	dir := t.TempDir()
	writeSnippet(t, dir, "00-base.toml", `
[graph]
base_url = "http://graph.internal:8080"

[updates]
strategy = "immediate"

[identity]
group = "canary"
throttle_permille = "100"
`)
	writeSnippet(t, dir, "90-site.toml", `
[updates]
strategy = "remote_http"

[updates.remote_http]
base_url = "http://locks.internal:9000"

[identity]
group = "fleet-a"
`)
	// Non-TOML files are ignored.
	writeSnippet(t, dir, "README", "not toml")

	cfg, err := Read(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://graph.internal:8080", cfg.GraphBaseURL.String())
	assert.Equal(t, "remote_http", cfg.Strategy.Name)
	assert.Equal(t, "http://locks.internal:9000", cfg.Strategy.RemoteBaseURL.String())
	// Later snippet wins per field; untouched fields survive.
	assert.Equal(t, "fleet-a", cfg.Identity.Group)
	require.NotNil(t, cfg.Identity.ThrottlePermille)
	assert.Equal(t, uint16(100), *cfg.Identity.ThrottlePermille)
}

func TestReadAgentAndPeriodic(t *testing.T) {
	dir := t.TempDir()
	writeSnippet(t, dir, "05-agent.toml", `
[agent]
interval = "30s"

[updates]
strategy = "periodic"

[updates.periodic]
schedule = "0 2 * * 6"
length = "2h"
`)

	cfg, err := Read(dir)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, "periodic", cfg.Strategy.Name)
	assert.Equal(t, "0 2 * * 6", cfg.Strategy.PeriodicSchedule)
	assert.Equal(t, 2*time.Hour, cfg.Strategy.PeriodicLength)
}

func TestReadFatalInputs(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad-toml", "[graph\nbase_url="},
		{"bad-interval", "[agent]\ninterval = \"soon\"\n"},
		{"interval-too-small", "[agent]\ninterval = \"1s\"\n"},
		{"bad-graph-url", "[graph]\nbase_url = \"http://bad url/\"\n"},
		{"bad-throttle", "[identity]\nthrottle_permille = \"many\"\n"},
		{"throttle-out-of-range", "[identity]\nthrottle_permille = \"1500\"\n"},
		{"bad-window-length", "[updates]\nstrategy = \"periodic\"\n[updates.periodic]\nlength = \"-1h\"\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSnippet(t, dir, "00-broken.toml", tc.body)
			_, err := Read(dir)
			assert.Error(t, err)
		})
	}
}

func TestNeverReportSteadyOverride(t *testing.T) {
	dir := t.TempDir()
	writeSnippet(t, dir, "10-manual.toml", `
[updates]
strategy = "never"

[updates.never]
report_steady = false
`)

	cfg, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, "never", cfg.Strategy.Name)
	assert.False(t, cfg.Strategy.NeverReportsSteady)
}
