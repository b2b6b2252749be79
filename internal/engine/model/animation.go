package model

import "github.com/Faultbox/mu-client/pkg/math"

// Track returns the keyframe track of the bone for the given action, or nil
// when the bone is a dummy or the action does not animate it.
func (b *Bone) Track(action int) *Track {
	if b.Dummy || action < 0 || action >= len(b.Tracks) {
		return nil
	}
	return b.Tracks[action]
}

// Len returns the number of usable keyframes.
func (t *Track) Len() int {
	return min(len(t.Positions), len(t.Rotations))
}

// Interpolate blends keyframes frame0 and frame1: spherical interpolation for
// rotation, linear for position. Frame indices are clamped to the track.
func (t *Track) Interpolate(frame0, frame1 int, f float32) (math.Quat, math.Vec3) {
	n := t.Len()
	if n == 0 {
		return math.QuatIdentity(), math.Vec3{}
	}
	frame0 = clampFrame(frame0, n)
	frame1 = clampFrame(frame1, n)

	q := t.Rotations[frame0].Slerp(t.Rotations[frame1], f)
	p := t.Positions[frame0].Lerp(t.Positions[frame1], f)
	return q, p
}

func clampFrame(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// IsStatic reports whether the action is a single pose.
func (a Action) IsStatic() bool {
	return a.Keys <= 1
}

// Speed returns the per-action playback multiplier.
func (a Action) Speed() float32 {
	if a.PlaySpeed <= 0 {
		return 1
	}
	return a.PlaySpeed
}

// HasAnimation checks if any action has more than one keyframe.
// Models with only single-key actions are static poses, not animations.
func HasAnimation(m *Model) bool {
	for _, a := range m.Actions {
		if !a.IsStatic() {
			return true
		}
	}
	return false
}
