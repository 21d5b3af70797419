package world

import (
	"sync"
)

// BlockSource answers world-space block queries. Partitions that are not
// resident read as air.
type BlockSource interface {
	GetBlock(x, y, z int) BlockID
}

// ChunkStore maps partition coordinates to resident chunks.
//
// Only the control goroutine mutates the store. The lock lets renderers and
// tooling read concurrently; build workers never touch the live map and use a
// Snapshot instead.
type ChunkStore struct {
	chunks   map[ChunkCoord]*Chunk
	mu       sync.RWMutex
	modCount uint64 // Increases on any chunk add/remove/replace
}

// NewChunkStore creates an empty chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: make(map[ChunkCoord]*Chunk),
	}
}

// Insert records c under its coordinate, replacing any chunk already there.
// Resident face neighbors are marked dirty: their border faces were culled
// against air until now.
func (cs *ChunkStore) Insert(c *Chunk) {
	cs.mu.Lock()
	cs.chunks[c.Coord] = c
	cs.modCount++
	cs.mu.Unlock()
	cs.dirtyFaceNeighbors(c.Coord)
}

// Chunk returns the chunk at coord, or nil if it is not resident.
func (cs *ChunkStore) Chunk(coord ChunkCoord) *Chunk {
	cs.mu.RLock()
	c := cs.chunks[coord]
	cs.mu.RUnlock()
	return c
}

// Has reports whether coord is resident.
func (cs *ChunkStore) Has(coord ChunkCoord) bool {
	cs.mu.RLock()
	_, ok := cs.chunks[coord]
	cs.mu.RUnlock()
	return ok
}

// Len returns the number of resident chunks.
func (cs *ChunkStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.chunks)
}

// Chunks returns the resident chunks in no particular order.
func (cs *ChunkStore) Chunks() []*Chunk {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make([]*Chunk, 0, len(cs.chunks))
	for _, c := range cs.chunks {
		out = append(out, c)
	}
	return out
}

// Coords returns the resident coordinates in no particular order.
func (cs *ChunkStore) Coords() []ChunkCoord {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make([]ChunkCoord, 0, len(cs.chunks))
	for coord := range cs.chunks {
		out = append(out, coord)
	}
	return out
}

// ChunkFromBlockCoords returns the chunk containing world block (x,y,z).
func (cs *ChunkStore) ChunkFromBlockCoords(x, y, z int) *Chunk {
	return cs.Chunk(ChunkCoordOf(x, y, z))
}

// GetBlock returns the block at world coordinates. Blocks in partitions that
// have not streamed in yet read as air.
func (cs *ChunkStore) GetBlock(x, y, z int) BlockID {
	c := cs.ChunkFromBlockCoords(x, y, z)
	if c == nil {
		return BlockAir
	}
	lx, ly, lz := LocalOf(x, y, z)
	return c.GetBlock(lx, ly, lz)
}

// IsAir checks if the block at the specified world coordinates is air.
func (cs *ChunkStore) IsAir(x, y, z int) bool {
	return cs.GetBlock(x, y, z) == BlockAir
}

// SetBlock edits one world block. The owning chunk's grid is cloned, edited
// and republished, so snapshots taken earlier keep seeing the old content.
// Returns false when the partition is not resident or the block is unchanged.
func (cs *ChunkStore) SetBlock(x, y, z int, val BlockID) bool {
	chunk := cs.ChunkFromBlockCoords(x, y, z)
	if chunk == nil {
		return false
	}
	lx, ly, lz := LocalOf(x, y, z)
	if chunk.GetBlock(lx, ly, lz) == val {
		return false
	}

	g := chunk.Grid().Clone()
	g.Set(lx, ly, lz, val)

	cs.mu.Lock()
	chunk.replaceGrid(g)
	cs.modCount++
	cs.mu.Unlock()

	// Mark neighbor chunks dirty if we touched a border block
	if lx == 0 {
		cs.markDirty(x-1, y, z)
	} else if lx == ChunkSize-1 {
		cs.markDirty(x+1, y, z)
	}
	if ly == 0 {
		cs.markDirty(x, y-1, z)
	} else if ly == ChunkSize-1 {
		cs.markDirty(x, y+1, z)
	}
	if lz == 0 {
		cs.markDirty(x, y, z-1)
	} else if lz == ChunkSize-1 {
		cs.markDirty(x, y, z+1)
	}
	return true
}

func (cs *ChunkStore) markDirty(x, y, z int) {
	if nb := cs.ChunkFromBlockCoords(x, y, z); nb != nil {
		nb.MarkDirty()
	}
}

// Replace publishes g as the new content of the chunk at coord. It is a no-op
// returning false when the chunk is missing or g has identical content.
// The six face neighbors are marked dirty since their borders may change.
func (cs *ChunkStore) Replace(coord ChunkCoord, g *Grid) bool {
	chunk := cs.Chunk(coord)
	if chunk == nil || g == nil {
		return false
	}
	if chunk.Grid().Fingerprint() == g.Fingerprint() {
		return false
	}

	cs.mu.Lock()
	chunk.replaceGrid(g)
	cs.modCount++
	cs.mu.Unlock()

	cs.dirtyFaceNeighbors(coord)
	return true
}

// dirtyFaceNeighbors marks the resident chunks sharing a face with coord dirty.
func (cs *ChunkStore) dirtyFaceNeighbors(coord ChunkCoord) {
	for _, f := range Faces {
		dx, dy, dz := f.Offset()
		if nb := cs.Chunk(coord.Add(dx, dy, dz)); nb != nil {
			nb.MarkDirty()
		}
	}
}

// Remove drops the chunk at coord and marks its resident face neighbors
// dirty. Returns the removed chunk or nil.
func (cs *ChunkStore) Remove(coord ChunkCoord) *Chunk {
	cs.mu.Lock()
	c, ok := cs.chunks[coord]
	if ok {
		delete(cs.chunks, coord)
		cs.modCount++
	}
	cs.mu.Unlock()
	if !ok {
		return nil
	}
	cs.dirtyFaceNeighbors(coord)
	return c
}

// EvictOutside removes every chunk outside the inclusive box of horizontal
// radius h and vertical radius v around center. Chunks left on the edge of the
// box are marked dirty. Returns the removed coords.
func (cs *ChunkStore) EvictOutside(center ChunkCoord, h, v int) []ChunkCoord {
	var removed []ChunkCoord
	cs.mu.Lock()
	for coord := range cs.chunks {
		if !InBox(coord, center, h, v) {
			delete(cs.chunks, coord)
			cs.modCount++
			removed = append(removed, coord)
		}
	}
	cs.mu.Unlock()
	for _, coord := range removed {
		cs.dirtyFaceNeighbors(coord)
	}
	return removed
}

// ModCount returns the current modification count of the chunk map.
func (cs *ChunkStore) ModCount() uint64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.modCount
}

// Snapshot copies the current coordinate→grid mapping. Grids are shared, not
// copied; they are immutable once published so the snapshot stays stable.
func (cs *ChunkStore) Snapshot() Snapshot {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	grids := make(map[ChunkCoord]*Grid, len(cs.chunks))
	for coord, c := range cs.chunks {
		grids[coord] = c.grid
	}
	return Snapshot{grids: grids}
}

// Neighborhood snapshots the 3x3x3 block of partitions centered on coord,
// which is everything a mesh build of coord can look at.
func (cs *ChunkStore) Neighborhood(coord ChunkCoord) Snapshot {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	grids := make(map[ChunkCoord]*Grid, 27)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				n := coord.Add(dx, dy, dz)
				if c, ok := cs.chunks[n]; ok {
					grids[n] = c.grid
				}
			}
		}
	}
	return Snapshot{grids: grids}
}

// InBox reports whether coord lies in the inclusive Chebyshev box around
// center with horizontal radius h (x and z) and vertical radius v (y).
func InBox(coord, center ChunkCoord, h, v int) bool {
	return abs(coord.X-center.X) <= h && abs(coord.Z-center.Z) <= h && abs(coord.Y-center.Y) <= v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
