package config

import "fmt"

// Generator names accepted by WorldGenConfig.Generator.
const (
	GeneratorChecker = "checker"
	GeneratorFlat    = "flat"
	GeneratorSimplex = "simplex"
	GeneratorPerlin  = "perlin"
)

// WorldGenConfig selects the content generator for new chunks.
type WorldGenConfig struct {
	Generator  string `yaml:"generator"`
	Seed       int64  `yaml:"seed"`
	SeaLevel   int    `yaml:"sea_level"`
	FlatHeight int    `yaml:"flat_height"`
}

// DefaultWorldGen returns the default generator settings.
func DefaultWorldGen() WorldGenConfig {
	return WorldGenConfig{
		Generator:  GeneratorSimplex,
		Seed:       1,
		SeaLevel:   8,
		FlatHeight: 16,
	}
}

// Validate checks the generator name.
func (w WorldGenConfig) Validate() error {
	switch w.Generator {
	case GeneratorChecker, GeneratorFlat, GeneratorSimplex, GeneratorPerlin:
		return nil
	}
	return fmt.Errorf("%w: worldgen.generator %q", ErrInvalidConfig, w.Generator)
}
