package meshing

import (
	"context"
	"math/rand/v2"
	"testing"

	"voxelgrid/internal/world"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type faceCell struct {
	face    world.Face
	x, y, z int
}

func naiveCoverage(t *testing.T, m *VoxelMesh) map[faceCell]world.Material {
	t.Helper()
	out := make(map[faceCell]world.Material)
	for _, f := range world.Faces {
		for _, q := range m.Quads[f] {
			mat, ok := q.Block.Material()
			require.True(t, ok)
			out[faceCell{f, int(q.X), int(q.Y), int(q.Z)}] = mat
		}
	}
	return out
}

// greedyCoverage expands every rectangle into its cells and fails on overlap.
func greedyCoverage(t *testing.T, m *GreedyMesh) map[faceCell]world.Material {
	t.Helper()
	out := make(map[faceCell]world.Material)
	for _, f := range world.Faces {
		for _, q := range m.Quads[f] {
			fields, err := q.Decode()
			require.NoError(t, err)
			require.Equal(t, f, fields.Face)
			fields.ForEachCell(func(x, y, z int) {
				require.True(t, x < world.ChunkSize && y < world.ChunkSize && z < world.ChunkSize)
				key := faceCell{f, x, y, z}
				_, dup := out[key]
				require.False(t, dup, "cell %+v covered twice", key)
				out[key] = fields.Material
			})
		}
	}
	return out
}

func buildBoth(t *testing.T, src world.BlockSource, origin world.ChunkCoord, g *world.Grid) (*VoxelMesh, *GreedyMesh) {
	t.Helper()
	naive, err := BuildNaiveMesh(context.Background(), src, origin, g)
	require.NoError(t, err)
	greedy, err := BuildGreedyMesh(context.Background(), src, origin, g)
	require.NoError(t, err)
	return naive, greedy
}

func TestSingleBlockMesh(t *testing.T) {
	g := world.NewGrid()
	g.Set(0, 0, 0, world.BlockGround)
	naive, greedy := buildBoth(t, nil, world.ChunkCoord{}, g)
	assert.Equal(t, 6, naive.QuadCount())
	assert.Equal(t, 6, greedy.QuadCount())
}

func TestTwoBlocksSeparated(t *testing.T) {
	g := world.NewGrid()
	g.Set(0, 0, 0, world.BlockGround)
	g.Set(2, 0, 0, world.BlockGround)
	naive, greedy := buildBoth(t, nil, world.ChunkCoord{}, g)
	assert.Equal(t, 12, naive.QuadCount())
	assert.Equal(t, 12, greedy.QuadCount())
}

func TestTwoBlocksTouchingGreedy(t *testing.T) {
	g := world.NewGrid()
	g.Set(0, 0, 0, world.BlockGround)
	g.Set(1, 0, 0, world.BlockGround)
	naive, greedy := buildBoth(t, nil, world.ChunkCoord{}, g)
	assert.Equal(t, 10, naive.QuadCount())
	// Union is a 2x1x1 cuboid.
	assert.Equal(t, 6, greedy.QuadCount())
}

func TestDifferentMaterialsDoNotMerge(t *testing.T) {
	g := world.NewGrid()
	g.Set(0, 0, 0, world.BlockGround)
	g.Set(1, 0, 0, world.BlockStone)
	_, greedy := buildBoth(t, nil, world.ChunkCoord{}, g)
	assert.Equal(t, 10, greedy.QuadCount())
}

func TestAdjacentWaterSharesNoFace(t *testing.T) {
	g := world.NewGrid()
	g.Set(4, 4, 4, world.BlockWater)
	g.Set(4, 5, 4, world.BlockWater)
	naive, _ := buildBoth(t, nil, world.ChunkCoord{}, g)
	assert.Equal(t, 10, naive.QuadCount())
	require.Len(t, naive.Quads[world.FaceTop], 1)
	for _, q := range naive.Quads[world.FaceTop] {
		assert.Equal(t, uint8(5), q.Y)
	}
}

func TestCrossChunkFaceCulling(t *testing.T) {
	store := world.NewChunkStore()
	g := world.NewGrid()
	g.Set(world.ChunkSize-1, 0, 0, world.BlockGround)
	store.Insert(world.NewChunk(world.ChunkCoord{}, g))
	east := world.NewGrid()
	east.Set(0, 0, 0, world.BlockGround)
	store.Insert(world.NewChunk(world.ChunkCoord{X: 1}, east))

	src := store.Neighborhood(world.ChunkCoord{})
	naive, greedy := buildBoth(t, src, world.ChunkCoord{}, g)
	assert.Equal(t, 5, naive.QuadCount())
	assert.Empty(t, naive.Quads[world.FaceRight])
	assert.Equal(t, 5, greedy.QuadCount())

	// With the neighbor absent the border reads as air.
	naive, _ = buildBoth(t, nil, world.ChunkCoord{}, g)
	assert.Equal(t, 6, naive.QuadCount())
}

func TestFullChunkSplitsAtMaxExtent(t *testing.T) {
	g := world.NewGrid()
	g.Fill(world.BlockStone)
	naive, greedy := buildBoth(t, nil, world.ChunkCoord{}, g)
	assert.Equal(t, 6*world.ChunkSize*world.ChunkSize, naive.QuadCount())

	// 32x32 splits into 31x31, 1x31, 31x1 and 1x1.
	for _, f := range world.Faces {
		require.Len(t, greedy.Quads[f], 4, "face %v", f)
		area := 0
		for _, q := range greedy.Quads[f] {
			w, h := q.Size()
			assert.LessOrEqual(t, w, uint8(MaxExtent))
			assert.LessOrEqual(t, h, uint8(MaxExtent))
			area += int(w) * int(h)
		}
		assert.Equal(t, world.ChunkSize*world.ChunkSize, area)
	}
	assert.Equal(t, naiveCoverage(t, naive), greedyCoverage(t, greedy))
}

func TestGreedyPrefersWideRuns(t *testing.T) {
	// An L of three cells on the top plane: row z=0 has x=0..1, row z=1 has x=0.
	g := world.NewGrid()
	g.Set(0, 0, 0, world.BlockWood)
	g.Set(1, 0, 0, world.BlockWood)
	g.Set(0, 0, 1, world.BlockWood)
	_, greedy := buildBoth(t, nil, world.ChunkCoord{}, g)

	top := greedy.Quads[world.FaceTop]
	require.Len(t, top, 2)
	first, err := top[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, QuadFields{X: 0, Y: 0, Z: 0, Width: 2, Height: 1, Face: world.FaceTop, Material: world.MaterialWood}, first)
}

func TestGreedyMatchesNaiveOnRandomGrids(t *testing.T) {
	palette := []world.BlockID{
		world.BlockAir, world.BlockAir, world.BlockAir, world.BlockHydrogen,
		world.BlockStone, world.BlockStone, world.BlockGround, world.BlockWater,
		world.BlockSteam, world.BlockWood, world.BlockLeaf,
	}
	rng := rand.New(rand.NewPCG(7, 11))
	randomGrid := func(g *world.Grid) {
		for x := range world.ChunkSize {
			for y := range world.ChunkSize {
				for z := range world.ChunkSize {
					g[x][y][z] = palette[rng.IntN(len(palette))]
				}
			}
		}
	}

	for i := range 8 {
		store := world.NewChunkStore()
		center := world.ChunkCoord{X: i - 4, Y: -1, Z: i}
		g := world.NewGrid()
		randomGrid(g)
		store.Insert(world.NewChunk(center, g))
		// Populate some face neighbors and leave others absent.
		for j, f := range world.Faces {
			if (i+j)%2 == 0 {
				continue
			}
			nb := world.NewGrid()
			randomGrid(nb)
			dx, dy, dz := f.Offset()
			store.Insert(world.NewChunk(center.Add(dx, dy, dz), nb))
		}

		src := store.Neighborhood(center)
		naive, greedy := buildBoth(t, src, center, g)
		assert.Equal(t, naiveCoverage(t, naive), greedyCoverage(t, greedy), "grid %d", i)
		assert.LessOrEqual(t, greedy.QuadCount(), naive.QuadCount())
	}
}

func TestGreedyTerrainMatchesNaive(t *testing.T) {
	gen := world.NewNoiseGenerator(world.NewSimplexNoise(3), 8)
	store := world.NewChunkStore()
	for _, c := range world.RequiredCoords(world.ChunkCoord{}, 1, 1) {
		g := world.NewGrid()
		gen.Populate(c, g)
		store.Insert(world.NewChunk(c, g))
	}
	center := store.Chunk(world.ChunkCoord{})
	naive, greedy := buildBoth(t, store.Neighborhood(center.Coord), center.Coord, center.Grid())
	assert.Equal(t, naiveCoverage(t, naive), greedyCoverage(t, greedy))
}

func TestBuildStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := world.NewGrid()
	g.Fill(world.BlockStone)

	_, err := BuildGreedyMesh(ctx, nil, world.ChunkCoord{}, g)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = BuildNaiveMesh(ctx, nil, world.ChunkCoord{}, g)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuilderFor(t *testing.T) {
	for _, name := range []string{"greedy", "naive"} {
		b, err := BuilderFor(name)
		require.NoError(t, err)
		geom, err := b(context.Background(), nil, world.ChunkCoord{X: 2}, world.NewGrid())
		require.NoError(t, err)
		assert.Equal(t, world.ChunkCoord{X: 2}, geom.ChunkOrigin())
		assert.Zero(t, geom.QuadCount())
	}
	_, err := BuilderFor("marching-cubes")
	assert.Error(t, err)
}
