package meshing

import (
	"context"
	"math/bits"

	"voxelgrid/internal/world"
)

// sliceMasks holds, for one depth slice of one face, a row bitmask per
// material: bit u of rows[m][v] is set when the cell at (u, v) holds material
// m and its face is exposed.
type sliceMasks struct {
	rows [world.NumMaterials][world.ChunkSize]uint32
	used [world.NumMaterials]bool
}

func (s *sliceMasks) reset() {
	for m := range s.used {
		if s.used[m] {
			s.rows[m] = [world.ChunkSize]uint32{}
			s.used[m] = false
		}
	}
}

// BuildGreedyMesh merges co-planar exposed faces of the same material into
// rectangles and packs each into a GreedyQuad. The covered cells are exactly
// the faces BuildNaiveMesh would emit, each covered once.
//
// Rows are scanned bottom to top; each run takes its full width first and is
// then extended upward, so wide rectangles win over tall ones. Extents are
// capped at MaxExtent, which splits a full 32-cell run into 31 + 1.
func BuildGreedyMesh(ctx context.Context, src world.BlockSource, origin world.ChunkCoord, g *world.Grid) (*GreedyMesh, error) {
	mesh := NewGreedyMesh(origin)
	if g == nil {
		return mesh, nil
	}
	baseX, baseY, baseZ := origin.Origin()

	var masks sliceMasks
	for _, f := range world.Faces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := f.Axis()
		u, v := planeAxes(f)
		for s := range world.ChunkSize {
			masks.reset()
			var p [3]int
			p[d] = s
			for pv := range world.ChunkSize {
				p[v] = pv
				for pu := range world.ChunkSize {
					p[u] = pu
					cell := g[p[0]][p[1]][p[2]]
					mat, ok := cell.Material()
					if !ok {
						continue
					}
					nb := neighborOf(src, g, baseX, baseY, baseZ, p[0], p[1], p[2], f)
					if !world.FaceExposed(cell, nb) {
						continue
					}
					masks.rows[mat][pv] |= 1 << uint(pu)
					masks.used[mat] = true
				}
			}
			for m := range masks.used {
				if !masks.used[m] {
					continue
				}
				mesh.Quads[f] = mergeRows(mesh.Quads[f], &masks.rows[m], f, world.Material(m), d, s, u, v)
			}
		}
	}
	return mesh, nil
}

// mergeRows consumes the bitmask rows of one slice into rectangles, appending
// a packed quad per rectangle to dst. rows is cleared as it is consumed.
func mergeRows(dst []GreedyQuad, rows *[world.ChunkSize]uint32, f world.Face, mat world.Material, d, s, u, v int) []GreedyQuad {
	for row := range world.ChunkSize {
		for rows[row] != 0 {
			start := bits.TrailingZeros32(rows[row])
			width := bits.TrailingZeros32(^(rows[row] >> uint(start)))
			width = min(width, MaxExtent)
			run := (uint32(1)<<uint(width) - 1) << uint(start)

			height := 1
			for row+height < world.ChunkSize && height < MaxExtent && rows[row+height]&run == run {
				rows[row+height] &^= run
				height++
			}
			rows[row] &^= run

			var p [3]int
			p[d] = s
			p[u] = start
			p[v] = row
			dst = append(dst, MustEncodeGreedyQuad(QuadFields{
				X: uint8(p[0]), Y: uint8(p[1]), Z: uint8(p[2]),
				Width: uint8(width), Height: uint8(height),
				Face: f, Material: mat,
			}))
		}
	}
	return dst
}
