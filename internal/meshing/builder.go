package meshing

import (
	"context"
	"fmt"

	"voxelgrid/internal/world"
)

// Builder turns a chunk's grid into geometry. src answers lookups across the
// chunk border. Builders must not retain or mutate g or src.
type Builder func(ctx context.Context, src world.BlockSource, origin world.ChunkCoord, g *world.Grid) (world.Geometry, error)

// NaiveBuilder wraps BuildNaiveMesh.
func NaiveBuilder(ctx context.Context, src world.BlockSource, origin world.ChunkCoord, g *world.Grid) (world.Geometry, error) {
	m, err := BuildNaiveMesh(ctx, src, origin, g)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GreedyBuilder wraps BuildGreedyMesh.
func GreedyBuilder(ctx context.Context, src world.BlockSource, origin world.ChunkCoord, g *world.Grid) (world.Geometry, error) {
	m, err := BuildGreedyMesh(ctx, src, origin, g)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// BuilderFor returns the builder registered under name ("greedy" or "naive").
func BuilderFor(name string) (Builder, error) {
	switch name {
	case "greedy":
		return GreedyBuilder, nil
	case "naive":
		return NaiveBuilder, nil
	}
	return nil, fmt.Errorf("unknown mesher %q", name)
}
