// Package camera frames a scene for the viewer.
package camera

import (
	gomath "math"

	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/internal/engine/scene"
	"github.com/Faultbox/mu-client/pkg/math"
)

// OrbitCamera orbits around a center point in a Z-up world.
type OrbitCamera struct {
	Center math.Vec3

	// Spherical coordinates
	Distance float32 // Distance from center
	Pitch    float32 // Elevation above the ground plane (radians)
	Yaw      float32 // Rotation around Z (radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Projection
	FieldOfView float32 // Vertical, radians
	Near        float32
	Far         float32

	// Turntable speed in radians per second, 0 to hold still.
	Spin float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:    400.0,
		Pitch:       0.6, // ~35 degrees down
		Yaw:         0.0,
		MinDistance: 50.0,
		MaxDistance: 5000.0,
		MinPitch:    0.1,
		MaxPitch:    1.5,
		FieldOfView: math.ToRadians(45),
		Near:        1,
		Far:         10000,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	cp := float64(c.Distance) * gomath.Cos(float64(c.Pitch))
	return c.Center.Add(math.Vec3{
		X: float32(cp * gomath.Sin(float64(c.Yaw))),
		Y: float32(-cp * gomath.Cos(float64(c.Yaw))),
		Z: c.Distance * float32(gomath.Sin(float64(c.Pitch))),
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Z: 1})
}

// ProjectionMatrix returns the perspective projection for a viewport.
func (c *OrbitCamera) ProjectionMatrix(width, height int) math.Mat4 {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return math.Perspective(c.FieldOfView, aspect, c.Near, c.Far)
}

// Update advances the turntable.
func (c *OrbitCamera) Update(ft scene.FrameTime) {
	if c.Spin == 0 {
		return
	}
	c.Yaw = float32(gomath.Mod(float64(c.Yaw+c.Spin*float32(ft.Elapsed.Seconds())), 2*gomath.Pi))
}

// Apply writes the camera into a scene for a viewport.
func (c *OrbitCamera) Apply(s *scene.Scene, width, height int) {
	s.Camera.Position = c.Position()
	s.Camera.View = c.ViewMatrix()
	s.Camera.Projection = c.ProjectionMatrix(width, height)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * 0.1
	c.Distance = max(c.MinDistance, min(c.MaxDistance, c.Distance))
}

// HandlePitch tilts the camera, clamped to the pitch limits.
func (c *OrbitCamera) HandlePitch(delta float32) {
	c.Pitch = max(c.MinPitch, min(c.MaxPitch, c.Pitch+delta))
}

// FitToBounds centers the camera on b and backs off far enough to see it.
func (c *OrbitCamera) FitToBounds(b model.Bounds) {
	if b.IsEmpty() {
		return
	}
	c.Center = b.Center()

	size := b.Max.Sub(b.Min)
	c.Distance = max(size.X, size.Y, size.Z) * 1.5
	if c.Distance < 200 {
		c.Distance = 200
	}
	c.Distance = min(c.Distance, c.MaxDistance)
}
