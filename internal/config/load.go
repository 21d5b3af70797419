package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when no config path
// is given explicitly.
const EnvConfigPath = "VOXELGRID_CONFIG"

// EnvMetricsAddr overrides metrics.addr when the file leaves it empty.
const EnvMetricsAddr = "VOXELGRID_METRICS_ADDR"

var ErrInvalidConfig = errors.New("invalid config")

// Config is the root of the YAML configuration.
type Config struct {
	Streaming StreamingConfig `yaml:"streaming"`
	Build     BuildConfig     `yaml:"build"`
	WorldGen  WorldGenConfig  `yaml:"worldgen"`
	Loop      LoopConfig      `yaml:"loop"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type StreamingConfig struct {
	HorizontalRadius  int `yaml:"horizontal_radius"`
	VerticalRadius    int `yaml:"vertical_radius"`
	EvictMargin       int `yaml:"evict_margin"` // -1 disables eviction
	MaxInsertsPerTick int `yaml:"max_inserts_per_tick"`
}

// Mesher names accepted by BuildConfig.Mesher.
const (
	MesherGreedy = "greedy"
	MesherNaive  = "naive"
)

type BuildConfig struct {
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	Mesher         string        `yaml:"mesher"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
	Timeout        time.Duration `yaml:"timeout"`
}

type LoopConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	SlowTick     time.Duration `yaml:"slow_tick"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Streaming: StreamingConfig{
			HorizontalRadius:  2,
			VerticalRadius:    1,
			EvictMargin:       2,
			MaxInsertsPerTick: 0,
		},
		Build: BuildConfig{
			Workers:        max(runtime.NumCPU(), 1),
			QueueSize:      256,
			Mesher:         MesherGreedy,
			MaxAttempts:    3,
			BackoffInitial: 50 * time.Millisecond,
			BackoffMax:     2 * time.Second,
			Timeout:        10 * time.Second,
		},
		WorldGen: DefaultWorldGen(),
		Loop: LoopConfig{
			TickInterval: 50 * time.Millisecond,
			SlowTick:     16 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Addr: ":2112",
		},
	}
}

// Load reads a YAML file over the defaults. With an empty path it falls back
// to $VOXELGRID_CONFIG, and to the defaults alone if that is unset too.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if env := os.Getenv(EnvMetricsAddr); env != "" && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = env
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	s := c.Streaming
	if s.HorizontalRadius < 0 || s.HorizontalRadius > MaxRadius {
		return fmt.Errorf("%w: streaming.horizontal_radius %d out of [0,%d]", ErrInvalidConfig, s.HorizontalRadius, MaxRadius)
	}
	if s.VerticalRadius < 0 || s.VerticalRadius > MaxRadius {
		return fmt.Errorf("%w: streaming.vertical_radius %d out of [0,%d]", ErrInvalidConfig, s.VerticalRadius, MaxRadius)
	}
	if s.MaxInsertsPerTick < 0 {
		return fmt.Errorf("%w: streaming.max_inserts_per_tick must be >= 0", ErrInvalidConfig)
	}

	b := c.Build
	if b.Workers < 1 {
		return fmt.Errorf("%w: build.workers must be >= 1", ErrInvalidConfig)
	}
	if b.QueueSize < 1 {
		return fmt.Errorf("%w: build.queue_size must be >= 1", ErrInvalidConfig)
	}
	if b.Mesher != MesherGreedy && b.Mesher != MesherNaive {
		return fmt.Errorf("%w: build.mesher %q (want %q or %q)", ErrInvalidConfig, b.Mesher, MesherGreedy, MesherNaive)
	}
	if b.MaxAttempts < 1 {
		return fmt.Errorf("%w: build.max_attempts must be >= 1", ErrInvalidConfig)
	}
	if b.BackoffInitial <= 0 || b.BackoffMax < b.BackoffInitial {
		return fmt.Errorf("%w: build backoff must satisfy 0 < initial <= max", ErrInvalidConfig)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("%w: build.timeout must be > 0", ErrInvalidConfig)
	}

	if c.Loop.TickInterval <= 0 {
		return fmt.Errorf("%w: loop.tick_interval must be > 0", ErrInvalidConfig)
	}
	return c.WorldGen.Validate()
}

// StreamSettings builds the runtime settings for the streaming section.
func (c Config) StreamSettings() *StreamSettings {
	return NewStreamSettings(c.Streaming.HorizontalRadius, c.Streaming.VerticalRadius, c.Streaming.EvictMargin)
}
