package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vacal.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	// The default template was written with 0600.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vacal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: rolling
rolling_weeks: 5
week_start: monday
data_path: /data/vacations.json
slack:
  channel_id: C123
feeds:
  - name: aiko
    url: https://example.com/aiko.ics
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "rolling", cfg.Mode)
	assert.Equal(t, 5, cfg.RollingWeeks)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "/data/vacations.json", cfg.DataPath)
	assert.Equal(t, "C123", cfg.Slack.ChannelID)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "aiko", cfg.Feeds[0].Name)

	// Untouched keys keep their defaults.
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, 1200, cfg.Width)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vacal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: month\n"), 0o600))

	t.Setenv("VACAL_MODE", "rolling")
	t.Setenv("VACAL_WEEK_START", "monday")
	t.Setenv("VACAL_SLACK__TOKEN", "xoxb-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rolling", cfg.Mode)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "xoxb-env", cfg.Slack.Token)
}

func TestNormalizeRepairsInvalidValues(t *testing.T) {
	cfg := &Config{
		Mode:         "fortnight",
		WeekStart:    "wednesday",
		RollingWeeks: -3,
		WeeksBefore:  99,
		Width:        0,
	}
	cfg.Normalize()

	assert.Equal(t, "month", cfg.Mode)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, 4, cfg.RollingWeeks)
	assert.Equal(t, 1, cfg.WeeksBefore)
	assert.Equal(t, 1200, cfg.Width)
	assert.Equal(t, 30, cfg.Slack.TimeoutSeconds)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "vacal.yaml")
	in := DefaultConfig()
	in.Mode = "rolling"
	in.Slack.ChannelID = "C9"

	require.NoError(t, Save(path, in))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rolling", out.Mode)
	assert.Equal(t, "C9", out.Slack.ChannelID)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}
