package world

import (
	"sync/atomic"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

const (
	// ChunkSize is the edge length of a chunk in blocks.
	ChunkSize = 32

	// GridVolume is the number of cells in one grid.
	GridVolume = ChunkSize * ChunkSize * ChunkSize
)

// Grid is the dense block array of one chunk, indexed [x][y][z].
//
// A grid is shared by pointer between the store, snapshots and build workers.
// Once it has been handed to a Chunk it must not be written again; edits go
// through Clone and a replace on the store.
type Grid [ChunkSize][ChunkSize][ChunkSize]BlockID

// NewGrid returns an all-air grid.
func NewGrid() *Grid {
	return &Grid{}
}

// Clone returns a private copy of g that may be edited before publishing.
func (g *Grid) Clone() *Grid {
	cp := *g
	return &cp
}

// At returns the block at local (x,y,z), or air when out of range.
func (g *Grid) At(x, y, z int) BlockID {
	if x < 0 || x >= ChunkSize || y < 0 || y >= ChunkSize || z < 0 || z >= ChunkSize {
		return BlockAir
	}
	return g[x][y][z]
}

// Set writes a cell. Only valid on a grid that has not been published yet.
func (g *Grid) Set(x, y, z int, b BlockID) {
	if x < 0 || x >= ChunkSize || y < 0 || y >= ChunkSize || z < 0 || z >= ChunkSize {
		return
	}
	g[x][y][z] = b
}

// Fill sets every cell to b.
func (g *Grid) Fill(b BlockID) {
	for x := range ChunkSize {
		for y := range ChunkSize {
			for z := range ChunkSize {
				g[x][y][z] = b
			}
		}
	}
}

// Fingerprint returns a 64-bit content hash of the grid.
func (g *Grid) Fingerprint() uint64 {
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&g[0][0][0])), GridVolume)
	return xxhash.Sum64(raw)
}

// CountVisible returns the number of cells that produce geometry.
func (g *Grid) CountVisible() int {
	n := 0
	for x := range ChunkSize {
		for y := range ChunkSize {
			for z := range ChunkSize {
				if g[x][y][z].Visible() {
					n++
				}
			}
		}
	}
	return n
}

// ChunkState tracks a chunk through the mesh build lifecycle.
type ChunkState uint8

const (
	StateClean ChunkState = iota
	StateDirty
	StateBuilding
	StateRenderable
	StateFailed
)

func (s ChunkState) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateBuilding:
		return "building"
	case StateRenderable:
		return "renderable"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Geometry is a finished mesh attached to a chunk for the renderer.
type Geometry interface {
	ChunkOrigin() ChunkCoord
	QuadCount() int
}

type geometryBox struct {
	g Geometry
}

// Chunk is one partition of the world: its coordinate, its published grid and
// the mesh build bookkeeping.
//
// Grid, state and version are owned by the control goroutine. The geometry
// and the renderable marker may be read from any goroutine.
type Chunk struct {
	Coord ChunkCoord

	grid    *Grid
	state   ChunkState
	version uint64

	geometry   atomic.Pointer[geometryBox]
	renderable atomic.Bool
}

// NewChunk publishes grid as the content of the chunk at coord. The chunk
// starts Dirty so the scheduler builds it on its next pass.
func NewChunk(coord ChunkCoord, grid *Grid) *Chunk {
	if grid == nil {
		grid = NewGrid()
	}
	return &Chunk{
		Coord:   coord,
		grid:    grid,
		state:   StateDirty,
		version: 1,
	}
}

// Grid returns the chunk's current published grid.
func (c *Chunk) Grid() *Grid {
	return c.grid
}

// GetBlock returns the block at local coordinates.
func (c *Chunk) GetBlock(x, y, z int) BlockID {
	return c.grid.At(x, y, z)
}

// State returns the build state.
func (c *Chunk) State() ChunkState {
	return c.state
}

// SetState moves the chunk to s.
func (c *Chunk) SetState(s ChunkState) {
	c.state = s
}

// Version increments every time the chunk's content changes or it is
// explicitly invalidated. Builds remember the version they started from.
func (c *Chunk) Version() uint64 {
	return c.version
}

// IsDirty reports whether the chunk is waiting for a build.
func (c *Chunk) IsDirty() bool {
	return c.state == StateDirty
}

// MarkDirty invalidates the chunk's mesh without touching its content, e.g.
// when a neighbor changed along the shared border.
func (c *Chunk) MarkDirty() {
	c.version++
	c.state = StateDirty
}

// replaceGrid publishes a new grid and invalidates the mesh.
func (c *Chunk) replaceGrid(g *Grid) {
	c.grid = g
	c.MarkDirty()
}

// Geometry returns the last applied mesh, or nil before the first build.
func (c *Chunk) Geometry() Geometry {
	if b := c.geometry.Load(); b != nil {
		return b.g
	}
	return nil
}

// SetGeometry attaches a finished mesh and flags the chunk renderable.
func (c *Chunk) SetGeometry(g Geometry) {
	c.geometry.Store(&geometryBox{g: g})
	c.renderable.Store(true)
}

// Renderable reports whether at least one build has been applied.
func (c *Chunk) Renderable() bool {
	return c.renderable.Load()
}
