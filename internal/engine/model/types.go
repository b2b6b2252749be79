// Package model holds the immutable skeletal model asset shared by every
// rendered instance: bones with per-action keyframe tracks, rigidly skinned
// meshes and the action table.
package model

import (
	"errors"

	"github.com/Faultbox/mu-client/pkg/math"
)

// NoParent marks a root bone.
const NoParent = -1

var (
	// ErrNoBones is returned for models without a skeleton.
	ErrNoBones = errors.New("model has no bones")

	// ErrBadHierarchy is returned when a bone references a parent that is not
	// evaluated before it.
	ErrBadHierarchy = errors.New("bone parent must precede child")

	// ErrBadTrack is returned when a keyframe track is shorter than its action.
	ErrBadTrack = errors.New("keyframe track shorter than action")
)

// Model is a loaded skeletal model. Instances share it read-only.
type Model struct {
	Name    string
	Bones   []Bone
	Meshes  []Mesh
	Actions []Action
}

// Bone is one node of the skeleton.
type Bone struct {
	Name   string
	Parent int
	Dummy  bool

	// Tracks holds one keyframe track per action. A nil entry means the bone
	// is not animated by that action.
	Tracks []*Track
}

// Track stores the per-keyframe local pose of a bone for one action.
type Track struct {
	Positions []math.Vec3
	Rotations []math.Quat
}

// Action is an animation clip.
type Action struct {
	Keys          int
	LockPositions bool    // Root bone translation stays anchored at frame 0
	PlaySpeed     float32 // Per-action multiplier, 0 means 1
}

// Vertex is a position rigidly bound to one bone.
type Vertex struct {
	Bone     int
	Position math.Vec3
}

// Triangle indexes a mesh's vertex and texcoord arrays. Polygon is 3 or 4;
// quads are split as 0-1-2 and 0-2-3.
type Triangle struct {
	Polygon       int
	VertexIndex   [4]int16
	TexCoordIndex [4]int16
}

// Mesh is one textured sub-mesh of a model.
type Mesh struct {
	Vertices    []Vertex
	TexCoords   [][2]float32
	Triangles   []Triangle
	TexturePath string
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}
