package model

import (
	"fmt"

	"github.com/Faultbox/mu-client/pkg/math"
)

// LocalMatrix builds a bone's local transform from a rotation and a
// translation.
func LocalMatrix(q math.Quat, p math.Vec3) math.Mat4 {
	return q.ToMat4().WithTranslation(p)
}

// BoneCount returns the number of bones in the skeleton.
func (m *Model) BoneCount() int {
	return len(m.Bones)
}

// Validate checks that bones are ordered parents-first and that every track
// covers its action's keyframes.
func (m *Model) Validate() error {
	if len(m.Bones) == 0 {
		return fmt.Errorf("%s: %w", m.Name, ErrNoBones)
	}

	for i := range m.Bones {
		bone := &m.Bones[i]
		if bone.Parent != NoParent && (bone.Parent < 0 || bone.Parent >= i) {
			return fmt.Errorf("%s: bone %d (%s) parent %d: %w", m.Name, i, bone.Name, bone.Parent, ErrBadHierarchy)
		}
		for a, track := range bone.Tracks {
			if track == nil || a >= len(m.Actions) {
				continue
			}
			if track.Len() < m.Actions[a].Keys {
				return fmt.Errorf("%s: bone %d action %d has %d keys, want %d: %w",
					m.Name, i, a, track.Len(), m.Actions[a].Keys, ErrBadTrack)
			}
		}
	}
	return nil
}
