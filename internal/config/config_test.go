package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Market.StatsIntervalSec)
	assert.Equal(t, 30, cfg.Market.IndexIntervalSec)
	assert.Len(t, cfg.Universe.NasdaqTop50, 50)
	assert.Len(t, cfg.Universe.BSETop50, 50)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG", "RELIANCE.NS", "ADANIENT.NS", "TATAMOTORS.NS"}, cfg.Universe.Stats)
	assert.False(t, cfg.ChatAgent.Enabled)
}

func TestLoadOverridesUniverse(t *testing.T) {
	path := writeConfig(t, `
universe:
  stats: [AAPL, TSLA]
market:
  stats_interval_sec: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "TSLA"}, cfg.Universe.Stats)
	assert.Equal(t, 3, cfg.Market.StatsIntervalSec)
	// Untouched lists keep their defaults.
	assert.Len(t, cfg.Universe.NasdaqTop50, 50)
}

func TestEnvOverridesPort(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestEnvInvalidPort(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("PORT", "not-a-port")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesAPIKey(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.ChatAgent.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
