package world

import (
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// TerrainGenerator synthesizes the content of a freshly streamed chunk. It must
// fill every cell it cares about; the grid arrives all-air.
type TerrainGenerator interface {
	Populate(coord ChunkCoord, g *Grid)
}

// CheckerGenerator fills the low octant (0..15 on each axis) of every chunk
// with alternating stone and air, starting with stone.
type CheckerGenerator struct{}

func (CheckerGenerator) Populate(_ ChunkCoord, g *Grid) {
	toggle := true
	for x := range ChunkSize / 2 {
		for y := range ChunkSize / 2 {
			for z := range ChunkSize / 2 {
				if toggle {
					g[x][y][z] = BlockStone
				}
				toggle = !toggle
			}
		}
	}
}

// FlatGenerator produces ground everywhere below a fixed world height, with a
// stone floor at world y < 0.
type FlatGenerator struct {
	height int
}

// NewFlatGenerator creates a flat generator whose surface is the block row at
// world y = height-1.
func NewFlatGenerator(height int) *FlatGenerator {
	return &FlatGenerator{height: height}
}

// HeightAt returns the surface height; constant for a flat world.
func (g *FlatGenerator) HeightAt(_, _ int) int {
	return g.height
}

func (g *FlatGenerator) Populate(coord ChunkCoord, grid *Grid) {
	_, baseY, _ := coord.Origin()
	for y := range ChunkSize {
		wy := baseY + y
		if wy >= g.height {
			break
		}
		b := BlockGround
		if wy < 0 {
			b = BlockStone
		}
		for x := range ChunkSize {
			for z := range ChunkSize {
				grid[x][y][z] = b
			}
		}
	}
}

// Noise2D is a 2D coherent noise source returning values roughly in [-1, 1].
// *perlin.Perlin satisfies it directly.
type Noise2D interface {
	Noise2D(x, y float64) float64
}

type simplexNoise struct {
	n opensimplex.Noise
}

func (s simplexNoise) Noise2D(x, y float64) float64 {
	return s.n.Eval2(x, y)
}

// NewSimplexNoise returns an OpenSimplex noise source.
func NewSimplexNoise(seed int64) Noise2D {
	return simplexNoise{n: opensimplex.New(seed)}
}

// NewPerlinNoise returns a Perlin noise source.
func NewPerlinNoise(seed int64) Noise2D {
	return perlin.NewPerlin(2, 2, 3, seed)
}

// NoiseGenerator builds a heightmap terrain: stone below, a few layers of
// ground on top, and water filling anything under sea level.
type NoiseGenerator struct {
	noise       Noise2D
	scale       float64
	baseHeight  int
	amp         float64
	octaves     int
	persistence float64
	lacunarity  float64
	seaLevel    int
}

// NewNoiseGenerator creates a heightmap generator over the given noise.
func NewNoiseGenerator(noise Noise2D, seaLevel int) *NoiseGenerator {
	return &NoiseGenerator{
		noise:       noise,
		scale:       1.0 / 64.0,
		baseHeight:  16,
		amp:         24,
		octaves:     4,
		persistence: 0.5,
		lacunarity:  2.0,
		seaLevel:    seaLevel,
	}
}

// HeightAt computes world surface height (block Y) at world X,Z.
func (g *NoiseGenerator) HeightAt(worldX, worldZ int) int {
	x := float64(worldX) * g.scale
	z := float64(worldZ) * g.scale
	sum, norm := 0.0, 0.0
	amp, freq := 1.0, 1.0
	for range g.octaves {
		sum += g.noise.Noise2D(x*freq, z*freq) * amp
		norm += amp
		amp *= g.persistence
		freq *= g.lacunarity
	}
	if norm > 0 {
		sum /= norm
	}
	return int(math.Floor(float64(g.baseHeight) + sum*g.amp))
}

func (g *NoiseGenerator) Populate(coord ChunkCoord, grid *Grid) {
	baseX, baseY, baseZ := coord.Origin()
	for lx := range ChunkSize {
		for lz := range ChunkSize {
			h := g.HeightAt(baseX+lx, baseZ+lz)
			for ly := range ChunkSize {
				wy := baseY + ly
				switch {
				case wy < h-3:
					grid[lx][ly][lz] = BlockStone
				case wy < h:
					grid[lx][ly][lz] = BlockGround
				case wy < g.seaLevel:
					grid[lx][ly][lz] = BlockWater
				}
			}
		}
	}
}
