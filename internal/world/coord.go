package world

import (
	"cmp"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ChunkCoord is the integer partition coordinate of a chunk.
type ChunkCoord struct {
	X, Y, Z int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Add offsets c by the given number of chunks per axis.
func (c ChunkCoord) Add(dx, dy, dz int) ChunkCoord {
	return ChunkCoord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// Distance is the Chebyshev distance to o in chunks, i.e. the ring o sits on
// around c.
func (c ChunkCoord) Distance(o ChunkCoord) int {
	return max(abs(c.X-o.X), abs(c.Y-o.Y), abs(c.Z-o.Z))
}

// Compare orders coordinates by X, then Y, then Z.
func (c ChunkCoord) Compare(o ChunkCoord) int {
	if d := cmp.Compare(c.X, o.X); d != 0 {
		return d
	}
	if d := cmp.Compare(c.Y, o.Y); d != 0 {
		return d
	}
	return cmp.Compare(c.Z, o.Z)
}

// Origin returns the world-space block position of the chunk's (0,0,0) cell.
func (c ChunkCoord) Origin() (x, y, z int) {
	return c.X * ChunkSize, c.Y * ChunkSize, c.Z * ChunkSize
}

// ChunkCoordOf returns the partition holding world block (x,y,z).
func ChunkCoordOf(x, y, z int) ChunkCoord {
	return ChunkCoord{X: floorDiv(x, ChunkSize), Y: floorDiv(y, ChunkSize), Z: floorDiv(z, ChunkSize)}
}

// LocalOf returns the position of world block (x,y,z) inside its partition.
// Every component is in [0, ChunkSize).
func LocalOf(x, y, z int) (lx, ly, lz int) {
	return mod(x, ChunkSize), mod(y, ChunkSize), mod(z, ChunkSize)
}

// ChunkCoordAt returns the partition containing a world-space point.
func ChunkCoordAt(p mgl32.Vec3) ChunkCoord {
	bx := int(math.Floor(float64(p.X())))
	by := int(math.Floor(float64(p.Y())))
	bz := int(math.Floor(float64(p.Z())))
	return ChunkCoordOf(bx, by, bz)
}

// floorDiv divides rounding toward negative infinity, so -1/32 is -1.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// mod is the floor modulo matching floorDiv: the result has the sign of b.
func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
