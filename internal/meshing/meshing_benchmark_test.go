package meshing

import (
	"context"
	"testing"

	"voxelgrid/internal/world"
)

func terrainChunk() (world.BlockSource, *world.Grid) {
	gen := world.NewNoiseGenerator(world.NewSimplexNoise(1), 8)
	store := world.NewChunkStore()
	for _, c := range world.RequiredCoords(world.ChunkCoord{}, 1, 1) {
		g := world.NewGrid()
		gen.Populate(c, g)
		store.Insert(world.NewChunk(c, g))
	}
	return store.Neighborhood(world.ChunkCoord{}), store.Chunk(world.ChunkCoord{}).Grid()
}

func BenchmarkBuildGreedyMesh(b *testing.B) {
	src, g := terrainChunk()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = BuildGreedyMesh(ctx, src, world.ChunkCoord{}, g)
	}
}

func BenchmarkBuildNaiveMesh(b *testing.B) {
	src, g := terrainChunk()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = BuildNaiveMesh(ctx, src, world.ChunkCoord{}, g)
	}
}

func BenchmarkBuildGreedyMesh_FullSurface(b *testing.B) {
	g := world.NewGrid()
	// Fill a full top surface
	for x := range world.ChunkSize {
		for z := range world.ChunkSize {
			g.Set(x, world.ChunkSize-1, z, world.BlockGround)
		}
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = BuildGreedyMesh(ctx, nil, world.ChunkCoord{}, g)
	}
}
