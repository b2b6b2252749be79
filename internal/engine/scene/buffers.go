package scene

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/mu-client/pkg/math"
)

// InvalidateBuffers marks the mesh buffers stale, along with those of every
// child following this object's animation.
func (o *ModelObject) InvalidateBuffers() {
	o.invalidated = true
	o.eachChild(func(c *ModelObject) {
		if c.LinkParentAnimation {
			c.InvalidateBuffers()
		}
	})
}

// invalidateTree marks the buffers of the object and all descendants stale.
func (o *ModelObject) invalidateTree() {
	o.invalidated = true
	o.eachChild(func(c *ModelObject) {
		c.invalidateTree()
	})
}

// BuffersValid reports whether the mesh buffers match the current pose and
// light.
func (o *ModelObject) BuffersValid() bool { return !o.invalidated }

// SetDynamicBuffers rebuilds every mesh buffer when invalidated. A mesh that
// fails keeps no buffers and is skipped by draws; its siblings are rebuilt
// regardless.
func (o *ModelObject) SetDynamicBuffers() {
	if !o.invalidated || o.Model == nil || o.scene == nil || o.scene.models == nil {
		return
	}
	n := len(o.Model.Meshes)
	if n == 0 {
		return
	}

	o.resizeMeshes(n)
	o.blendScratch = ensureCap(o.blendScratch, n)

	pose := o.Pose()
	if pose == nil {
		o.logger().Debug("no pose, skipping buffer rebuild", zap.String("object", o.Name))
		return
	}

	src := o.geometry()
	bodyLight := o.bodyLight()

	var errs error
	for i := range n {
		ms := &o.meshes[i]
		ms.release()

		vb, ib, err := o.scene.models.ModelBuffers(src, i, o.meshTint(i, bodyLight), pose)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mesh %d: %w", i, err))
			continue
		}
		ms.vb, ms.ib = vb, ib

		if ms.texture == nil {
			if ms.texturePath == "" {
				ms.texturePath = o.texturePath(i)
			}
			o.loadTexture(i)
		}
	}

	if errs != nil {
		o.logger().Warn("rebuilding mesh buffers",
			zap.String("object", o.Name),
			zap.Int("failed", len(multierr.Errors(errs))),
			zap.Error(errs))
	}

	o.invalidated = false
	o.RecalculateWorld()
}

// bodyLight is the ambient light plus, when lit, the terrain light under the
// object.
func (o *ModelObject) bodyLight() math.Vec3 {
	t := o.scene.terrain
	if !o.LightEnabled || t == nil {
		return o.light
	}
	pos := o.world.Translation()
	return t.Light(pos.X, pos.Y).Add(o.light)
}

// meshTint scales the base color by the body light and either the blend mesh
// light or the total alpha.
func (o *ModelObject) meshTint(i int, bodyLight math.Vec3) [4]uint8 {
	var l math.Vec3
	if o.IsBlendMesh(i) {
		l = bodyLight.Scale(o.blendMeshLight)
	} else {
		l = bodyLight.Scale(o.TotalAlpha())
	}
	return [4]uint8{
		channel(o.color.R, l.X),
		channel(o.color.G, l.Y),
		channel(o.color.B, l.Z),
		255,
	}
}

func channel(c uint8, light float32) uint8 {
	v := float32(c) * light
	if v >= 255 {
		return 255
	}
	if v <= 0 {
		return 0
	}
	return uint8(v)
}

// resizeMeshes matches the per-mesh state to n meshes, releasing the
// buffers of dropped ones.
func (o *ModelObject) resizeMeshes(n int) {
	for i := n; i < len(o.meshes); i++ {
		o.meshes[i].release()
	}
	o.meshes = ensureLen(o.meshes, n)
}

// ensureLen resizes s to n, keeping existing entries and zeroing new ones.
func ensureLen[T any](s []T, n int) []T {
	if len(s) == n {
		return s
	}
	if n < len(s) {
		clear(s[n:])
		return s[:n]
	}
	return append(s, make([]T, n-len(s))...)
}

func ensureCap(s []int, n int) []int {
	if cap(s) >= n {
		return s[:0]
	}
	return make([]int, 0, n)
}
