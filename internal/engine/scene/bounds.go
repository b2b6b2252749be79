package scene

import "github.com/Faultbox/mu-client/internal/engine/model"

// Bounds returns the local bounding box of the posed meshes.
func (o *ModelObject) Bounds() model.Bounds { return o.bounds }

// UpdateBounds accumulates every vertex moved by its bone. Vertices bound to
// a bone outside the pose and meshes without vertices contribute nothing.
func (o *ModelObject) UpdateBounds() {
	src := o.geometry()
	if src == nil || len(src.Meshes) == 0 {
		return
	}
	pose := o.Pose()
	o.resizeMeshes(len(src.Meshes))

	total := model.EmptyBounds()
	for i := range src.Meshes {
		mb := model.EmptyBounds()
		for _, v := range src.Meshes[i].Vertices {
			if v.Bone < 0 || v.Bone >= len(pose) {
				continue
			}
			p := pose[v.Bone].TransformVec3(v.Position)
			mb.Extend(p)
			total.Extend(p)
		}
		if !mb.IsEmpty() {
			o.meshes[i].center = mb.Center()
		}
	}
	o.bounds = total
}
