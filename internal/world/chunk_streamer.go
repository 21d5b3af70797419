package world

import (
	"slices"

	"voxelgrid/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// StreamRadii supplies the load and eviction boxes, in chunks.
// *config.StreamSettings implements it.
type StreamRadii interface {
	Radii() (horizontal, vertical int)
	EvictRadii() (horizontal, vertical int, ok bool)
}

// ChunkStreamer keeps the partitions around a viewpoint resident. It runs on
// the control goroutine: generation is synchronous and every new chunk is
// inserted Dirty so the build scheduler picks it up.
type ChunkStreamer struct {
	store *ChunkStore
	gen   TerrainGenerator
	radii StreamRadii

	// maxInsertsPerCall bounds generation work per call; 0 means unbounded.
	// Nearer partitions are generated first.
	maxInsertsPerCall int
}

// NewChunkStreamer creates a new chunk streamer.
func NewChunkStreamer(store *ChunkStore, gen TerrainGenerator, radii StreamRadii) *ChunkStreamer {
	return &ChunkStreamer{
		store: store,
		gen:   gen,
		radii: radii,
	}
}

// SetMaxInsertsPerCall bounds how many chunks one StreamAround may create.
func (cs *ChunkStreamer) SetMaxInsertsPerCall(n int) {
	cs.maxInsertsPerCall = max(n, 0)
}

// RequiredCoords lists the inclusive box of partitions with horizontal
// radius h (x, z) and vertical radius v (y) around center, nearest first.
func RequiredCoords(center ChunkCoord, h, v int) []ChunkCoord {
	h, v = max(h, 0), max(v, 0)
	out := make([]ChunkCoord, 0, (2*h+1)*(2*h+1)*(2*v+1))
	for dx := -h; dx <= h; dx++ {
		for dy := -v; dy <= v; dy++ {
			for dz := -h; dz <= h; dz++ {
				out = append(out, center.Add(dx, dy, dz))
			}
		}
	}
	slices.SortStableFunc(out, func(a, b ChunkCoord) int {
		return a.Distance(center) - b.Distance(center)
	})
	return out
}

// StreamAround makes every partition in the load box around viewpoint
// resident and returns the coordinates that were inserted.
func (cs *ChunkStreamer) StreamAround(viewpoint mgl32.Vec3) []ChunkCoord {
	defer profiling.Track("world.StreamAround")()
	h, v := cs.radii.Radii()
	center := ChunkCoordAt(viewpoint)

	var inserted []ChunkCoord
	for _, coord := range RequiredCoords(center, h, v) {
		if cs.maxInsertsPerCall > 0 && len(inserted) >= cs.maxInsertsPerCall {
			break
		}
		if cs.store.Has(coord) {
			continue
		}
		cs.store.Insert(cs.generate(coord))
		inserted = append(inserted, coord)
	}
	return inserted
}

func (cs *ChunkStreamer) generate(coord ChunkCoord) *Chunk {
	g := NewGrid()
	if cs.gen != nil {
		cs.gen.Populate(coord, g)
	}
	return NewChunk(coord, g)
}

// EvictFarChunks removes partitions outside the eviction box around viewpoint
// and returns their coordinates. Nothing is removed when eviction is off.
func (cs *ChunkStreamer) EvictFarChunks(viewpoint mgl32.Vec3) []ChunkCoord {
	defer profiling.Track("world.EvictFarChunks")()
	h, v, ok := cs.radii.EvictRadii()
	if !ok {
		return nil
	}
	return cs.store.EvictOutside(ChunkCoordAt(viewpoint), h, v)
}
