// Package picking provides ray casting and object picking utilities.
package picking

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/internal/engine/scene"
	"github.com/Faultbox/mu-client/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// ScreenToRay converts a cursor position in pixels, origin at the top left,
// to a world-space ray through the camera. It fails when the view and
// projection cannot be inverted.
func ScreenToRay(x, y float32, width, height int, view, proj math.Mat4) (Ray, bool) {
	if width <= 0 || height <= 0 {
		return Ray{}, false
	}

	// Window coordinates have their origin at the bottom left.
	winY := float32(height) - y
	near, err := mgl32.UnProject(mgl32.Vec3{x, winY, 0}, mgl32.Mat4(view), mgl32.Mat4(proj), 0, 0, width, height)
	if err != nil {
		return Ray{}, false
	}
	far, err := mgl32.UnProject(mgl32.Vec3{x, winY, 1}, mgl32.Mat4(view), mgl32.Mat4(proj), 0, 0, width, height)
	if err != nil {
		return Ray{}, false
	}

	origin := math.Vec3{X: near[0], Y: near[1], Z: near[2]}
	dir := math.Vec3{X: far[0], Y: far[1], Z: far[2]}.Sub(origin)
	if dir.Length() == 0 {
		return Ray{}, false
	}
	return Ray{Origin: origin, Direction: dir.Normalize()}, true
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectBounds tests ray intersection with an axis-aligned box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectBounds(box model.Bounds) (t float32, hit bool) {
	if box.IsEmpty() {
		return 0, false
	}

	tmin := float32(-gomath.MaxFloat32)
	tmax := float32(gomath.MaxFloat32)

	origin := [3]float32{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float32{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float32{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float32{box.Max.X, box.Max.Y, box.Max.Z}

	for axis := range 3 {
		if dir[axis] == 0 {
			if origin[axis] < lo[axis] || origin[axis] > hi[axis] {
				return 0, false
			}
			continue
		}
		t1 := (lo[axis] - origin[axis]) / dir[axis]
		t2 := (hi[axis] - origin[axis]) / dir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
	}

	// Check if intersection is valid
	if tmax < tmin || tmax < 0 {
		return 0, false
	}

	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// WorldBounds transforms a local box by a world matrix and returns the box
// around the eight transformed corners.
func WorldBounds(local model.Bounds, world math.Mat4) model.Bounds {
	out := model.EmptyBounds()
	if local.IsEmpty() {
		return out
	}
	for i := range 8 {
		p := local.Min
		if i&1 != 0 {
			p.X = local.Max.X
		}
		if i&2 != 0 {
			p.Y = local.Max.Y
		}
		if i&4 != 0 {
			p.Z = local.Max.Z
		}
		out.Extend(world.TransformVec3(p))
	}
	return out
}

// Pick returns the visible, loaded object whose world bounds the ray enters
// first.
func Pick(s *scene.Scene, r Ray) (scene.Handle, bool) {
	best := scene.NoHandle
	bestT := float32(gomath.MaxFloat32)
	s.Each(func(h scene.Handle, o *scene.ModelObject) {
		if !o.Visible || o.Status() != scene.StatusReady {
			return
		}
		t, hit := r.IntersectBounds(WorldBounds(o.Bounds(), o.World()))
		if hit && t < bestT {
			best, bestT = h, t
		}
	})
	return best, !best.IsZero()
}
