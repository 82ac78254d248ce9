package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/larsw/pmedge/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalYAML = `
strategy:
  mode: lead_lag
markets:
  - token_id: tok-1
    side: YES
    ref_instrument: XBTUSD
    group: btc
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Engine.IntervalSeconds)
	assert.Equal(t, 1000.0, cfg.Engine.StartingBalanceUSDC)
	assert.Equal(t, "STOP", cfg.Engine.KillFile)
	assert.Equal(t, 6, cfg.Strategy.LookbackPoints)
	assert.InDelta(t, 0.25, cfg.Strategy.SpotMoveMinPct, 1e-9)
	assert.InDelta(t, 0.90, cfg.Risk.AvoidPriceAbove, 1e-9)
	assert.InDelta(t, 0.02, cfg.Sizing.SlippageCap, 1e-9)
	assert.Equal(t, "pmedge.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown_mode",
			yaml: "strategy:\n  mode: martingale\nmarkets:\n  - token_id: t\n    side: YES\n    ref_instrument: X\n",
		},
		{
			name: "no_markets",
			yaml: "strategy:\n  mode: pm_trend\n",
		},
		{
			name: "bad_side",
			yaml: "strategy:\n  mode: pm_trend\nmarkets:\n  - token_id: t\n    side: MAYBE\n",
		},
		{
			name: "lead_lag_without_ref",
			yaml: "strategy:\n  mode: lead_lag\nmarkets:\n  - token_id: t\n    side: YES\n",
		},
		{
			name: "pm_draw_without_baseline",
			yaml: "strategy:\n  mode: pm_draw\nmarkets:\n  - token_id: t\n    side: DRAW\n",
		},
		{
			name: "inverted_price_zone",
			yaml: "strategy:\n  mode: pm_trend\nrisk:\n  avoid_price_above: 0.10\n  avoid_price_below: 0.50\nmarkets:\n  - token_id: t\n    side: YES\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("KILLSWITCH_FILE", "/tmp/halt")

	cfg, err := config.Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/halt", cfg.Engine.KillFile)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
