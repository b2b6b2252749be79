package scene

import (
	"slices"

	"github.com/Faultbox/mu-client/pkg/math"
)

// Parent resolves the parent object.
func (o *ModelObject) Parent() (*ModelObject, bool) {
	if o.scene == nil || o.parent.IsZero() {
		return nil, false
	}
	return o.scene.Get(o.parent)
}

// Children returns the handles of the attached objects.
func (o *ModelObject) Children() []Handle { return o.children }

func (o *ModelObject) eachChild(fn func(c *ModelObject)) {
	if o.scene == nil {
		return
	}
	for _, h := range o.children {
		if c, ok := o.scene.Get(h); ok {
			fn(c)
		}
	}
}

func (o *ModelObject) removeChild(h Handle) {
	o.children = slices.DeleteFunc(o.children, func(c Handle) bool { return c == h })
}

// RenderShadow reports whether shadows are drawn. Objects following their
// parent's animation report the parent's flag.
func (o *ModelObject) RenderShadow() bool {
	if o.LinkParentAnimation {
		if p, ok := o.Parent(); ok {
			return p.RenderShadow()
		}
	}
	return o.renderShadow
}

// SetRenderShadow sets the shadow flag and copies it to every descendant
// that follows its parent's animation.
func (o *ModelObject) SetRenderShadow(v bool) {
	o.renderShadow = v
	o.eachChild(func(c *ModelObject) {
		if c.LinkParentAnimation {
			c.SetRenderShadow(v)
		}
	})
}

// ParentBodyOrigin is the parent's bone matrix at ParentBoneLink, or identity
// when unattached or out of range.
func (o *ModelObject) ParentBodyOrigin() math.Mat4 {
	p, ok := o.Parent()
	if !ok || o.ParentBoneLink < 0 || o.ParentBoneLink >= len(p.pose) {
		return math.Identity()
	}
	return p.pose[o.ParentBoneLink]
}

// LocalMatrix is scale, then rotation, then translation.
func (o *ModelObject) LocalMatrix() math.Mat4 {
	return math.TranslateVec(o.position).
		Mul(math.QuatFromEuler(o.angle).ToMat4()).
		Mul(math.ScaleUniform(o.scale))
}

// RecalculateWorld recomputes the world matrix: the attachment bone, then the
// local transform, then the parent's world. Children are recomputed when the
// matrix changed. It reports whether the matrix changed.
func (o *ModelObject) RecalculateWorld() bool {
	world := o.LocalMatrix()
	if p, ok := o.Parent(); ok {
		world = p.world.Mul(world).Mul(o.ParentBodyOrigin())
	}
	if world == o.world {
		return false
	}
	o.world = world
	o.eachChild(func(c *ModelObject) {
		c.RecalculateWorld()
	})
	return true
}

// matrixChanged follows every transform setter.
func (o *ModelObject) matrixChanged() {
	o.InvalidateBuffers()
	o.RecalculateWorld()
}
