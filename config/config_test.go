package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
symbols: ["BTC-USD"]
analysis_interval: 1m
min_confidence: 0.5
indicators:
  rsi_period: 7
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC-USD"}, cfg.Symbols)
	assert.Equal(t, time.Minute, cfg.AnalysisInterval)
	assert.Equal(t, 0.5, cfg.MinConfidence)
	assert.Equal(t, 7, cfg.Indicators.RSIPeriod)

	// untouched fields keep their defaults
	assert.Equal(t, Default().Sources, cfg.Sources)
	assert.Equal(t, Default().RiskRewardMin, cfg.RiskRewardMin)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "min_confidence: 1.5\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().validate())
}
