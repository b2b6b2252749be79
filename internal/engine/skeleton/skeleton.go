// Package skeleton evaluates per-bone world matrices for an animation action
// and maps playback time onto keyframe pairs.
package skeleton

import (
	"errors"
	"fmt"
	stdmath "math"

	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/pkg/math"
)

var (
	// ErrActionRange is returned for an action index the model does not have.
	ErrActionRange = errors.New("action index out of range")

	// ErrPoseSize is returned when the destination pose does not match the
	// bone count.
	ErrPoseSize = errors.New("pose length does not match bone count")
)

// Frame is a keyframe pair and the blend factor between them.
type Frame struct {
	Frame0 int
	Frame1 int
	T      float32
}

// StaticFrame is the pose used by single-key actions.
var StaticFrame = Frame{}

// SelectFrames maps playback time to a keyframe pair. The cursor runs at
// speed keyframes per second and wraps over keys-1 frames, the last key being
// a copy of the first. Actions with one key or less always yield StaticFrame.
func SelectFrames(seconds float64, speed float32, keys int) Frame {
	if keys <= 1 {
		return StaticFrame
	}

	total := float32(keys - 1)
	cursor := float32(seconds * float64(speed))
	cursor -= float32(stdmath.Floor(float64(cursor/total))) * total

	// float rounding can push the wrapped cursor just outside [0, total)
	if cursor < 0 || cursor >= total {
		cursor = 0
	}

	f0 := int(cursor)

	return Frame{
		Frame0: f0,
		Frame1: (f0 + 1) % (keys - 1),
		T:      cursor - float32(f0),
	}
}

// NewPose returns a bone transform set of identity matrices.
func NewPose(boneCount int) []math.Mat4 {
	pose := make([]math.Mat4, boneCount)
	for i := range pose {
		pose[i] = math.Identity()
	}
	return pose
}

// Evaluate writes the world matrix of every animated bone for the given action
// and frame into pose, parents before children. Dummy bones and bones without
// a track for the action keep their previous matrix.
//
// When the action locks positions, the root bone keeps the horizontal position
// of key 0 and the height of key f.Frame0 lifted by bodyHeight, for any f.T.
//
// Evaluate reports whether any matrix changed, compared exactly.
func Evaluate(m *model.Model, action int, f Frame, bodyHeight float32, pose []math.Mat4) (bool, error) {
	if action < 0 || action >= len(m.Actions) {
		return false, fmt.Errorf("%s: action %d of %d: %w", m.Name, action, len(m.Actions), ErrActionRange)
	}
	if len(pose) != len(m.Bones) {
		return false, fmt.Errorf("%s: pose has %d matrices for %d bones: %w", m.Name, len(pose), len(m.Bones), ErrPoseSize)
	}

	act := m.Actions[action]
	changed := false

	for i := range m.Bones {
		bone := &m.Bones[i]
		track := bone.Track(action)
		if track == nil || track.Len() == 0 {
			continue
		}

		q, p := track.Interpolate(f.Frame0, f.Frame1, f.T)
		if i == 0 && act.LockPositions {
			root := track.Positions[0]
			z := track.Positions[min(max(f.Frame0, 0), len(track.Positions)-1)].Z
			p = math.Vec3{X: root.X, Y: root.Y, Z: z + bodyHeight}
		}

		world := model.LocalMatrix(q, p)
		if bone.Parent != model.NoParent && bone.Parent >= 0 && bone.Parent < len(pose) {
			world = pose[bone.Parent].Mul(world)
		}

		if world != pose[i] {
			pose[i] = world
			changed = true
		}
	}

	return changed, nil
}
