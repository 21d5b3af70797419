package world

// Snapshot is a frozen view of part or all of a ChunkStore. It holds the
// grids by pointer, so taking one is cheap, and it never observes later
// inserts, removals or block edits on the live store.
type Snapshot struct {
	grids map[ChunkCoord]*Grid
}

// NewSnapshot builds a snapshot from an explicit mapping. The map is copied.
func NewSnapshot(grids map[ChunkCoord]*Grid) Snapshot {
	cp := make(map[ChunkCoord]*Grid, len(grids))
	for k, v := range grids {
		cp[k] = v
	}
	return Snapshot{grids: cp}
}

// GetBlock implements BlockSource.
func (s Snapshot) GetBlock(x, y, z int) BlockID {
	g, ok := s.grids[ChunkCoordOf(x, y, z)]
	if !ok || g == nil {
		return BlockAir
	}
	lx, ly, lz := LocalOf(x, y, z)
	return g[lx][ly][lz]
}

// Grid returns the grid captured for coord.
func (s Snapshot) Grid(coord ChunkCoord) (*Grid, bool) {
	g, ok := s.grids[coord]
	return g, ok
}

// Len returns the number of partitions captured.
func (s Snapshot) Len() int {
	return len(s.grids)
}
