package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxelgrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Streaming.HorizontalRadius)
	assert.Equal(t, 1, cfg.Streaming.VerticalRadius)
	assert.Equal(t, MesherGreedy, cfg.Build.Mesher)
	assert.Equal(t, 3, cfg.Build.MaxAttempts)
	assert.GreaterOrEqual(t, cfg.Build.Workers, 1)
}

func TestLoadWithoutPathUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvMetricsAddr, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	t.Setenv(EnvMetricsAddr, "")
	path := writeConfig(t, `
streaming:
  horizontal_radius: 4
  evict_margin: -1
build:
  mesher: naive
  workers: 3
  backoff_initial: 10ms
  timeout: 2s
worldgen:
  generator: perlin
  seed: 99
loop:
  tick_interval: 20ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Streaming.HorizontalRadius)
	assert.Equal(t, 1, cfg.Streaming.VerticalRadius, "unset keys keep defaults")
	assert.Equal(t, -1, cfg.Streaming.EvictMargin)
	assert.Equal(t, MesherNaive, cfg.Build.Mesher)
	assert.Equal(t, 3, cfg.Build.Workers)
	assert.Equal(t, 10*time.Millisecond, cfg.Build.BackoffInitial)
	assert.Equal(t, 2*time.Second, cfg.Build.Timeout)
	assert.Equal(t, GeneratorPerlin, cfg.WorldGen.Generator)
	assert.Equal(t, int64(99), cfg.WorldGen.Seed)
	assert.Equal(t, 20*time.Millisecond, cfg.Loop.TickInterval)

	_, _, ok := cfg.StreamSettings().EvictRadii()
	assert.False(t, ok)
}

func TestLoadFromEnvironment(t *testing.T) {
	path := writeConfig(t, "metrics:\n  addr: \"\"\n")
	t.Setenv(EnvConfigPath, path)
	t.Setenv(EnvMetricsAddr, "127.0.0.1:9100")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv(EnvMetricsAddr, "")
	cases := map[string]string{
		"mesher":    "build:\n  mesher: marching\n",
		"radius":    "streaming:\n  horizontal_radius: 40\n",
		"attempts":  "build:\n  max_attempts: 0\n",
		"backoff":   "build:\n  backoff_initial: 5s\n  backoff_max: 1s\n",
		"generator": "worldgen:\n  generator: caves\n",
		"tick":      "loop:\n  tick_interval: 0s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadReportsIOAndSyntaxErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "streaming: [1, 2"))
	assert.Error(t, err)
}

func TestStreamSettings(t *testing.T) {
	s := NewStreamSettings(50, -3, 2)
	h, v := s.Radii()
	assert.Equal(t, MaxRadius, h)
	assert.Equal(t, 0, v)

	s.SetRadii(3, 1)
	eh, ev, ok := s.EvictRadii()
	require.True(t, ok)
	assert.Equal(t, 5, eh)
	assert.Equal(t, 3, ev)

	s.SetEvictMargin(-7)
	assert.Equal(t, -1, s.EvictMargin())
	_, _, ok = s.EvictRadii()
	assert.False(t, ok)
}
