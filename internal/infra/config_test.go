package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"altbot/internal/domain"
	"altbot/pkg/quant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, quant.ReturnE8(5_000_000), cfg.Threshold())
	assert.Equal(t, time.Minute, cfg.Window())
	assert.Equal(t, 6000, cfg.WindowCapacity())
	assert.Equal(t, 15*time.Millisecond, cfg.TargetP95())
	assert.Equal(t, 500*time.Millisecond, cfg.Cooldown())
	assert.Equal(t, 50*time.Microsecond, cfg.AckDelay())
	assert.Equal(t, 100*time.Microsecond, cfg.FillDelay())
	assert.Equal(t, 1000, cfg.Dispatch.QueueCapacity)
	assert.Equal(t, int64(10), cfg.Risk.MaxOpenIntents)
}

func TestParseConfig_OverlaysFileOnDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
hotpath:
  return_threshold_pct: 2.5
  max_symbols: 50
risk:
  cooldown_ms: 1000
engine:
  decode_error_policy: halt
`))
	require.NoError(t, err)

	assert.Equal(t, quant.ReturnE8(2_500_000), cfg.Threshold())
	assert.Equal(t, 50, cfg.HotPath.MaxSymbols)
	assert.Equal(t, time.Second, cfg.Cooldown())
	assert.Equal(t, "halt", cfg.Engine.DecodeErrorPolicy)
	assert.Equal(t, 60, cfg.HotPath.WindowSecs, "untouched keys keep defaults")
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"zero threshold", "hotpath: {return_threshold_pct: 0}", "hotpath.return_threshold_pct"},
		{"bad policy", "engine: {decode_error_policy: retry}", "Config.Engine.DecodeErrorPolicy"},
		{"no symbols", "hotpath: {max_symbols: 0}", "Config.HotPath.MaxSymbols"},
		{"tiny pool", "hotpath: {snapshot_pool: 1}", "Config.HotPath.SnapshotPool"},
		{"admin without addr", "admin: {enabled: true, addr: ''}", "Config.Admin.Addr"},
		{"bad level", "logging: {level: loud}", "Config.Logging.Level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			var cerr *domain.ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
			assert.False(t, cerr.IsRetriable())
		})
	}
}

func TestParseConfig_MalformedYAML(t *testing.T) {
	_, err := ParseConfig([]byte("hotpath: ["))
	assert.Error(t, err)
}

func TestOverrideWithEnv(t *testing.T) {
	t.Setenv("ALTBOT_BUY_ENABLED", "false")
	t.Setenv("ALTBOT_RETURN_THRESHOLD_PCT", "7.25")
	t.Setenv("ALTBOT_INITIAL_BUDGET", "42")
	t.Setenv("ALTBOT_LOG_LEVEL", "debug")

	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.False(t, cfg.Risk.BuyEnabled)
	assert.Equal(t, quant.ReturnE8(7_250_000), cfg.Threshold())
	assert.Equal(t, int64(42), cfg.Risk.InitialBudget)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestOverrideWithEnv_BadValue(t *testing.T) {
	t.Setenv("ALTBOT_BUY_ENABLED", "perhaps")
	_, err := ParseConfig(nil)
	var cerr *domain.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "ALTBOT_BUY_ENABLED", cerr.Field)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: {name: shadow}\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "shadow", cfg.App.Name)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, quant.ReturnE8(5_000_000), cfg.Threshold())
}
