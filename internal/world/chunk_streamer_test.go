package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRadii struct {
	h, v, margin int
}

func (r fixedRadii) Radii() (int, int) { return r.h, r.v }

func (r fixedRadii) EvictRadii() (int, int, bool) {
	if r.margin < 0 {
		return 0, 0, false
	}
	return r.h + r.margin, r.v + r.margin, true
}

func TestRequiredCoordsNearestFirst(t *testing.T) {
	center := ChunkCoord{X: 5, Y: -2, Z: 1}
	coords := RequiredCoords(center, 2, 1)
	require.Len(t, coords, 75)
	assert.Equal(t, center, coords[0])

	seen := make(map[ChunkCoord]bool, len(coords))
	last := 0
	for _, c := range coords {
		assert.False(t, seen[c], "duplicate %v", c)
		seen[c] = true
		assert.True(t, InBox(c, center, 2, 1))
		r := c.Distance(center)
		assert.GreaterOrEqual(t, r, last)
		last = r
	}
}

func TestStreamAroundFillsBoxOnce(t *testing.T) {
	store := NewChunkStore()
	s := NewChunkStreamer(store, NewFlatGenerator(16), fixedRadii{h: 2, v: 1, margin: -1})

	inserted := s.StreamAround(mgl32.Vec3{0, 0, 0})
	assert.Len(t, inserted, 75)
	assert.Equal(t, 75, store.Len())
	for _, c := range store.Chunks() {
		assert.Equal(t, StateDirty, c.State())
	}

	assert.Empty(t, s.StreamAround(mgl32.Vec3{10, 5, 10}), "same partition, nothing new")

	assert.Equal(t, BlockGround, store.GetBlock(0, 15, 0))
	assert.Equal(t, BlockAir, store.GetBlock(0, 16, 0))
	assert.Equal(t, BlockStone, store.GetBlock(0, -1, 0))
}

func TestStreamAroundRespectsInsertLimit(t *testing.T) {
	store := NewChunkStore()
	s := NewChunkStreamer(store, nil, fixedRadii{h: 2, v: 1, margin: -1})
	s.SetMaxInsertsPerCall(10)

	inserted := s.StreamAround(mgl32.Vec3{})
	require.Len(t, inserted, 10)
	for _, c := range inserted {
		assert.LessOrEqual(t, c.Distance(ChunkCoord{}), 1)
	}

	total := len(inserted)
	for range 10 {
		total += len(s.StreamAround(mgl32.Vec3{}))
	}
	assert.Equal(t, 75, total)
}

func TestEvictFarChunksUsesMargin(t *testing.T) {
	store := NewChunkStore()
	s := NewChunkStreamer(store, nil, fixedRadii{h: 1, v: 0, margin: 1})
	s.StreamAround(mgl32.Vec3{})
	require.Equal(t, 9, store.Len())

	// One partition over: the old box is still within the margin.
	moved := mgl32.Vec3{ChunkSize, 0, 0}
	assert.Empty(t, s.EvictFarChunks(moved))

	// Three over: x in {-1,0} is now beyond radius 2.
	far := mgl32.Vec3{3 * ChunkSize, 0, 0}
	removed := s.EvictFarChunks(far)
	assert.Len(t, removed, 6)
	for _, c := range removed {
		assert.Less(t, c.X, 1)
	}
}

func TestEvictFarChunksDisabled(t *testing.T) {
	store := NewChunkStore()
	s := NewChunkStreamer(store, nil, fixedRadii{h: 1, v: 0, margin: -1})
	s.StreamAround(mgl32.Vec3{})
	assert.Nil(t, s.EvictFarChunks(mgl32.Vec3{1000, 0, 1000}))
	assert.Equal(t, 9, store.Len())
}
