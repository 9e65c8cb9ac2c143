// File: internal/config/config_test.go
package config

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/auroch/internal/humanoid"
	"github.com/xkilldash9x/auroch/internal/stability"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "auroch", cfg.Logger.ServiceName)
	assert.Equal(t, "center", cfg.Plan.TargetPolicy)
	assert.Equal(t, 30*time.Second, cfg.Actuator.Timeout)
	assert.Equal(t, "zmq", cfg.Actuator.Transport)
	assert.Equal(t, 800*time.Millisecond, cfg.Stability.StableMin)
	assert.Equal(t, 6*time.Second, cfg.Stability.QuarantineMax)
	assert.Equal(t, 120*time.Second, cfg.Control.DefaultMuteTTL)
	assert.Equal(t, "0.0.0.0:5001", cfg.Screens.ListenAddr)
	assert.Equal(t, uint32(64<<20), cfg.Screens.MaxFrameBytes)
	assert.Equal(t, []string{"-f", "{path}"}, cfg.Stability.CaptureArgs)
	require.NoError(t, cfg.Validate())
}

func TestDefaultMotionMatchesModel(t *testing.T) {
	hc, err := NewDefaultConfig().Motion.Humanoid()
	require.NoError(t, err)
	assert.Equal(t, humanoid.DefaultConfig(), hc)
}

func TestDefaultStabilityMatchesDetector(t *testing.T) {
	cfg := NewDefaultConfig()
	want := stability.DefaultDetectorConfig()
	assert.Equal(t, want.StableConsec, cfg.Stability.Detector().StableConsec)
	assert.Equal(t, want.StableMin, cfg.Stability.Detector().StableMin)
	assert.Equal(t, want.QuarantineMax, cfg.Stability.Detector().QuarantineMax)
	assert.True(t, cfg.Stability.Detector().StartMuted)
	assert.Equal(t, 5*time.Second, cfg.Stability.Monitor().RetryDelay)
	assert.Equal(t, int64(4096), cfg.Control.Server().MaxCommandBytes)
}

// -- Loading Tests --

func TestNewConfigFromViper_YAMLAndEnv(t *testing.T) {
	yaml := []byte(`
plan:
  target_policy: random
  compress_logs: true
motion:
  screen_width: 1920
  screen_height: 1080
  main_detour_weights:
    "1": 1.0
stability:
  stable_consec: 5
  quarantine_max: 10s
`)
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(yaml)))

	t.Setenv("AUROCH_ACTUATOR_ADDRESS", "10.1.2.3:7000")
	BindEnv(v)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "random", cfg.Plan.TargetPolicy)
	assert.True(t, cfg.Plan.CompressLogs)
	assert.Equal(t, 1920, cfg.Motion.ScreenWidth)
	assert.Equal(t, 5, cfg.Stability.StableConsec)
	assert.Equal(t, 10*time.Second, cfg.Stability.QuarantineMax)
	assert.Equal(t, "10.1.2.3:7000", cfg.Actuator.Address)

	hc, err := cfg.Motion.Humanoid()
	require.NoError(t, err)
	assert.Equal(t, 1.0, hc.MainDetourWeights[1])
}

func TestNewConfigFromViper_ExpandsHome(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skip("no home directory")
	}
	v := viper.New()
	SetDefaults(v)
	v.Set("plan.logs_dir", "~/auroch/logs")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "auroch", "logs"), cfg.Plan.LogsDir)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"unknown policy", func(c *Config) { c.Plan.TargetPolicy = "edge" }, "plan.target_policy"},
		{"no logs dir", func(c *Config) { c.Plan.LogsDir = "" }, "plan.logs_dir"},
		{"zero actuator timeout", func(c *Config) { c.Actuator.Timeout = 0 }, "actuator.timeout"},
		{"unknown actuator transport", func(c *Config) { c.Actuator.Transport = "serial" }, "actuator.transport"},
		{"bad screen", func(c *Config) { c.Motion.ScreenWidth = 0 }, "screen bounds"},
		{"bad weight key", func(c *Config) { c.Motion.SubDetourWeights = map[string]float64{"two": 1} }, "not an integer"},
		{"zero consec", func(c *Config) { c.Stability.StableConsec = 0 }, "stable_consec"},
		{"zero interval", func(c *Config) { c.Stability.Interval = 0 }, "monitor intervals"},
		{"bad control addr", func(c *Config) { c.Control.ListenAddr = "5002" }, "control.listen_addr"},
		{"tiny command limit", func(c *Config) { c.Control.MaxCommandBytes = 4 }, "max_command_bytes"},
		{"zero frame limit", func(c *Config) { c.Screens.MaxFrameBytes = 0 }, "max_frame_bytes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
