package meshing

import (
	"errors"
	"fmt"

	"voxelgrid/internal/world"
)

// Quad is one unit face produced by the naive mesher, anchored at a local cell.
type Quad struct {
	X, Y, Z uint8
	Block   world.BlockID
}

// VoxelMesh holds one unit quad per exposed face, bucketed by face.
type VoxelMesh struct {
	Origin world.ChunkCoord
	Quads  [world.NumFaces][]Quad
}

// NewVoxelMesh returns an empty mesh for the chunk at origin.
func NewVoxelMesh(origin world.ChunkCoord) *VoxelMesh {
	return &VoxelMesh{Origin: origin}
}

func (m *VoxelMesh) ChunkOrigin() world.ChunkCoord { return m.Origin }

func (m *VoxelMesh) QuadCount() int {
	n := 0
	for _, qs := range m.Quads {
		n += len(qs)
	}
	return n
}

// FaceBatch is one face of a VoxelMesh as handed to the GPU layer.
type FaceBatch struct {
	ChunkPos [3]int32
	Face     world.Face
	Quads    []Quad
}

// Batches splits the mesh into per-face batches, skipping empty faces.
func (m *VoxelMesh) Batches() []FaceBatch {
	var out []FaceBatch
	for _, f := range world.Faces {
		if len(m.Quads[f]) == 0 {
			continue
		}
		out = append(out, FaceBatch{ChunkPos: chunkPos(m.Origin), Face: f, Quads: m.Quads[f]})
	}
	return out
}

func chunkPos(c world.ChunkCoord) [3]int32 {
	return [3]int32{int32(c.X), int32(c.Y), int32(c.Z)}
}

// GreedyQuad is a merged rectangle packed into 32 bits:
//
//	bits  0-4   x      local anchor
//	bits  5-9   y
//	bits 10-14  z
//	bits 15-19  width  extent along the face's u axis, 1..31
//	bits 20-24  height extent along the face's v axis, 1..31
//	bits 25-27  face   world.Face code
//	bits 28-31  material world.Material code
//
// The in-plane axes are Top/Bottom u=x v=z, Left/Right u=z v=y,
// Front/Back u=x v=y.
type GreedyQuad uint32

const (
	shiftX        = 0
	shiftY        = 5
	shiftZ        = 10
	shiftWidth    = 15
	shiftHeight   = 20
	shiftFace     = 25
	shiftMaterial = 28

	mask5    = 0x1f
	maskFace = 0x7
	maskMat  = 0xf

	// MaxExtent is the largest width or height a packed quad can carry.
	MaxExtent = 31
)

var (
	ErrFieldRange = errors.New("quad field out of range")
	ErrEmptyQuad  = errors.New("quad has zero extent")
)

// QuadFields is the unpacked form of a GreedyQuad.
type QuadFields struct {
	X, Y, Z       uint8
	Width, Height uint8
	Face          world.Face
	Material      world.Material
}

// EncodeGreedyQuad packs f, rejecting any field that does not fit its slot.
func EncodeGreedyQuad(f QuadFields) (GreedyQuad, error) {
	if f.X >= world.ChunkSize || f.Y >= world.ChunkSize || f.Z >= world.ChunkSize {
		return 0, fmt.Errorf("%w: anchor (%d,%d,%d)", ErrFieldRange, f.X, f.Y, f.Z)
	}
	if f.Width < 1 || f.Width > MaxExtent || f.Height < 1 || f.Height > MaxExtent {
		return 0, fmt.Errorf("%w: size %dx%d", ErrFieldRange, f.Width, f.Height)
	}
	if f.Face >= world.NumFaces {
		return 0, fmt.Errorf("%w: %w", ErrFieldRange, world.ErrInvalidFace)
	}
	if f.Material >= world.NumMaterials {
		return 0, fmt.Errorf("%w: %w", ErrFieldRange, world.ErrInvalidMaterial)
	}
	return GreedyQuad(uint32(f.X)<<shiftX |
		uint32(f.Y)<<shiftY |
		uint32(f.Z)<<shiftZ |
		uint32(f.Width)<<shiftWidth |
		uint32(f.Height)<<shiftHeight |
		uint32(f.Face)<<shiftFace |
		uint32(f.Material)<<shiftMaterial), nil
}

// MustEncodeGreedyQuad is EncodeGreedyQuad for values already known valid.
func MustEncodeGreedyQuad(f QuadFields) GreedyQuad {
	q, err := EncodeGreedyQuad(f)
	if err != nil {
		panic(err)
	}
	return q
}

// Pos returns the local anchor.
func (q GreedyQuad) Pos() (x, y, z uint8) {
	return uint8(q>>shiftX) & mask5, uint8(q>>shiftY) & mask5, uint8(q>>shiftZ) & mask5
}

// Size returns width and height.
func (q GreedyQuad) Size() (width, height uint8) {
	return uint8(q>>shiftWidth) & mask5, uint8(q>>shiftHeight) & mask5
}

// Face decodes the orientation field.
func (q GreedyQuad) Face() (world.Face, error) {
	return world.ParseFace(uint8(q>>shiftFace) & maskFace)
}

// Material decodes the material field.
func (q GreedyQuad) Material() (world.Material, error) {
	return world.ParseMaterial(uint8(q>>shiftMaterial) & maskMat)
}

// Decode unpacks every field. Corrupt orientation or material codes and zero
// extents are errors.
func (q GreedyQuad) Decode() (QuadFields, error) {
	var f QuadFields
	f.X, f.Y, f.Z = q.Pos()
	f.Width, f.Height = q.Size()
	if f.Width == 0 || f.Height == 0 {
		return QuadFields{}, fmt.Errorf("%w: 0x%08x", ErrEmptyQuad, uint32(q))
	}
	face, err := q.Face()
	if err != nil {
		return QuadFields{}, fmt.Errorf("decode quad 0x%08x: %w", uint32(q), err)
	}
	mat, err := q.Material()
	if err != nil {
		return QuadFields{}, fmt.Errorf("decode quad 0x%08x: %w", uint32(q), err)
	}
	f.Face, f.Material = face, mat
	return f, nil
}

// ForEachCell calls fn with the local position of every cell the rectangle
// covers.
func (f QuadFields) ForEachCell(fn func(x, y, z int)) {
	u, v := planeAxes(f.Face)
	base := [3]int{int(f.X), int(f.Y), int(f.Z)}
	for j := range int(f.Height) {
		for i := range int(f.Width) {
			p := base
			p[u] += i
			p[v] += j
			fn(p[0], p[1], p[2])
		}
	}
}

// planeAxes returns the (u, v) axis indices spanning faces of orientation f.
func planeAxes(f world.Face) (u, v int) {
	switch f.Axis() {
	case 0:
		return 2, 1
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

// GreedyMesh holds the packed quads of one chunk, bucketed by face.
type GreedyMesh struct {
	Origin world.ChunkCoord
	Quads  [world.NumFaces][]GreedyQuad
}

// NewGreedyMesh returns an empty mesh for the chunk at origin.
func NewGreedyMesh(origin world.ChunkCoord) *GreedyMesh {
	return &GreedyMesh{Origin: origin}
}

func (m *GreedyMesh) ChunkOrigin() world.ChunkCoord { return m.Origin }

func (m *GreedyMesh) QuadCount() int {
	n := 0
	for _, qs := range m.Quads {
		n += len(qs)
	}
	return n
}

// GreedyBatch is one face of a GreedyMesh in its GPU upload form.
type GreedyBatch struct {
	ChunkPos [3]int32
	Face     world.Face
	Quads    []uint32
}

// Batches splits the mesh into per-face packed buffers, skipping empty faces.
func (m *GreedyMesh) Batches() []GreedyBatch {
	var out []GreedyBatch
	for _, f := range world.Faces {
		qs := m.Quads[f]
		if len(qs) == 0 {
			continue
		}
		packed := make([]uint32, len(qs))
		for i, q := range qs {
			packed[i] = uint32(q)
		}
		out = append(out, GreedyBatch{ChunkPos: chunkPos(m.Origin), Face: f, Quads: packed})
	}
	return out
}
