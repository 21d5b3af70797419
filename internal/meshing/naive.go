package meshing

import (
	"context"

	"voxelgrid/internal/world"
)

// BuildNaiveMesh emits one unit quad for every exposed face of every visible
// cell of g. Neighbors across the chunk border are looked up in src; a nil src
// treats the outside as air.
func BuildNaiveMesh(ctx context.Context, src world.BlockSource, origin world.ChunkCoord, g *world.Grid) (*VoxelMesh, error) {
	mesh := NewVoxelMesh(origin)
	if g == nil {
		return mesh, nil
	}
	baseX, baseY, baseZ := origin.Origin()

	for x := range world.ChunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for y := range world.ChunkSize {
			for z := range world.ChunkSize {
				cell := g[x][y][z]
				if !cell.Visible() {
					continue
				}
				for _, f := range world.Faces {
					nb := neighborOf(src, g, baseX, baseY, baseZ, x, y, z, f)
					if world.FaceExposed(cell, nb) {
						mesh.Quads[f] = append(mesh.Quads[f], Quad{X: uint8(x), Y: uint8(y), Z: uint8(z), Block: cell})
					}
				}
			}
		}
	}
	return mesh, nil
}

// neighborOf returns the block adjacent to local (x,y,z) across face f,
// reading from g inside the chunk and from src outside of it.
func neighborOf(src world.BlockSource, g *world.Grid, baseX, baseY, baseZ, x, y, z int, f world.Face) world.BlockID {
	dx, dy, dz := f.Offset()
	nx, ny, nz := x+dx, y+dy, z+dz
	if nx >= 0 && nx < world.ChunkSize && ny >= 0 && ny < world.ChunkSize && nz >= 0 && nz < world.ChunkSize {
		return g[nx][ny][nz]
	}
	if src == nil {
		return world.BlockAir
	}
	return src.GetBlock(baseX+nx, baseY+ny, baseZ+nz)
}
