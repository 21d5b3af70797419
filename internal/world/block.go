package world

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// BlockID is the material code stored in a grid cell.
type BlockID uint8

const (
	BlockAir BlockID = iota
	BlockStone
	BlockGround
	BlockWater
	BlockSteam
	BlockSteel
	BlockCopper
	BlockCoal
	BlockFire
	BlockOil
	BlockWood
	BlockCloth
	BlockMoltenMetal
	BlockLeaf
	BlockPlant
	BlockHydrogen

	numBlockIDs
)

var (
	ErrInvalidBlockID  = errors.New("invalid block id")
	ErrInvalidMaterial = errors.New("invalid material")
	ErrInvalidFace     = errors.New("invalid face")
)

var blockNames = [numBlockIDs]string{
	"air", "stone", "ground", "water", "steam", "steel", "copper", "coal",
	"fire", "oil", "wood", "cloth", "molten_metal", "leaf", "plant", "hydrogen",
}

// ParseBlockID converts a raw code into a BlockID, rejecting unknown codes.
func ParseBlockID(v uint8) (BlockID, error) {
	if v >= uint8(numBlockIDs) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBlockID, v)
	}
	return BlockID(v), nil
}

func (b BlockID) String() string {
	if b >= numBlockIDs {
		return fmt.Sprintf("block(%d)", uint8(b))
	}
	return blockNames[b]
}

// Transparent reports whether light and sight pass through the block.
// Faces next to a transparent block are candidates for rendering.
func (b BlockID) Transparent() bool {
	switch b {
	case BlockAir, BlockHydrogen, BlockWater, BlockSteam:
		return true
	}
	return false
}

// Visible reports whether the block produces any geometry.
func (b BlockID) Visible() bool {
	return b != BlockAir && b != BlockHydrogen && b < numBlockIDs
}

// Material returns the renderer material for a visible block.
func (b BlockID) Material() (Material, bool) {
	if !b.Visible() {
		return 0, false
	}
	return blockMaterials[b], true
}

// FaceExposed decides whether the face of cell toward neighbor is drawn.
// Two identical transparent blocks (water next to water) share no face.
func FaceExposed(cell, neighbor BlockID) bool {
	return cell.Visible() && neighbor.Transparent() && neighbor != cell
}

// Material is the 4-bit GPU material code. Invisible blocks have no material,
// and several block ids may share one if they look alike.
type Material uint8

const (
	MaterialWater Material = iota
	MaterialSteam
	MaterialGround
	MaterialStone
	MaterialSteel
	MaterialCopper
	MaterialCoal
	MaterialFire
	MaterialOil
	MaterialWood
	MaterialCloth
	MaterialMoltenMetal
	MaterialLeaf
	MaterialPlant

	// NumMaterials is the count of valid codes; 14 and 15 are reserved.
	NumMaterials
)

var blockMaterials = [numBlockIDs]Material{
	BlockStone:       MaterialStone,
	BlockGround:      MaterialGround,
	BlockWater:       MaterialWater,
	BlockSteam:       MaterialSteam,
	BlockSteel:       MaterialSteel,
	BlockCopper:      MaterialCopper,
	BlockCoal:        MaterialCoal,
	BlockFire:        MaterialFire,
	BlockOil:         MaterialOil,
	BlockWood:        MaterialWood,
	BlockCloth:       MaterialCloth,
	BlockMoltenMetal: MaterialMoltenMetal,
	BlockLeaf:        MaterialLeaf,
	BlockPlant:       MaterialPlant,
}

// ParseMaterial converts a decoded 4-bit field into a Material.
func ParseMaterial(v uint8) (Material, error) {
	if v >= uint8(NumMaterials) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMaterial, v)
	}
	return Material(v), nil
}

// Face identifies one of the 6 cardinal faces of a block. The numeric order is
// the orientation code written into packed quads.
type Face uint8

const (
	FaceTop Face = iota
	FaceBottom
	FaceLeft
	FaceRight
	FaceFront
	FaceBack

	NumFaces
)

// Faces lists all faces in canonical order.
var Faces = [NumFaces]Face{FaceTop, FaceBottom, FaceLeft, FaceRight, FaceFront, FaceBack}

var faceNormals = [NumFaces][3]int{
	FaceTop:    {0, 1, 0},
	FaceBottom: {0, -1, 0},
	FaceLeft:   {-1, 0, 0},
	FaceRight:  {1, 0, 0},
	FaceFront:  {0, 0, 1},
	FaceBack:   {0, 0, -1},
}

var faceNames = [NumFaces]string{"top", "bottom", "left", "right", "front", "back"}

// ParseFace converts a decoded 3-bit field into a Face.
func ParseFace(v uint8) (Face, error) {
	if v >= uint8(NumFaces) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFace, v)
	}
	return Face(v), nil
}

func (f Face) String() string {
	if f >= NumFaces {
		return fmt.Sprintf("face(%d)", uint8(f))
	}
	return faceNames[f]
}

// Offset returns the integer step from a cell to its neighbor across f.
func (f Face) Offset() (dx, dy, dz int) {
	n := faceNormals[f]
	return n[0], n[1], n[2]
}

// Normal returns the outward unit normal of f.
func (f Face) Normal() mgl32.Vec3 {
	n := faceNormals[f]
	return mgl32.Vec3{float32(n[0]), float32(n[1]), float32(n[2])}
}

// Axis returns the index (0=x, 1=y, 2=z) of the axis f is perpendicular to.
func (f Face) Axis() int {
	switch f {
	case FaceLeft, FaceRight:
		return 0
	case FaceTop, FaceBottom:
		return 1
	default:
		return 2
	}
}
