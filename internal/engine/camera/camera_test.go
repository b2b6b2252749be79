package camera

import (
	"testing"
	"time"

	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/internal/engine/scene"
	"github.com/Faultbox/mu-client/pkg/math"
)

func near(a, b math.Vec3) bool {
	return a.Sub(b).Length() < 1e-3
}

func TestOrbitPosition(t *testing.T) {
	tests := []struct {
		name       string
		pitch, yaw float32
		want       math.Vec3
	}{
		{"south level", 0, 0, math.Vec3{Y: -100}},
		{"east level", 0, math.ToRadians(90), math.Vec3{X: 100}},
		{"overhead", math.ToRadians(90), 0, math.Vec3{Z: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewOrbitCamera()
			c.Distance, c.Pitch, c.Yaw = 100, tt.pitch, tt.yaw
			if got := c.Position(); !near(got, tt.want) {
				t.Errorf("Position() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewMatrixLooksAtCenter(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 10, Y: 20, Z: 5}

	// the center lies straight ahead on the view axis
	p := c.ViewMatrix().TransformVec3(c.Center)
	if !near(p, math.Vec3{Z: -c.Distance}) {
		t.Errorf("center in view space = %v, want (0,0,%v)", p, -c.Distance)
	}
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToBounds(model.Bounds{Min: math.Vec3{X: -10, Y: -10}, Max: math.Vec3{X: 10, Y: 10, Z: 400}})

	if !near(c.Center, math.Vec3{Z: 200}) {
		t.Errorf("Center = %v", c.Center)
	}
	if c.Distance != 600 {
		t.Errorf("Distance = %v, want 600", c.Distance)
	}

	c.FitToBounds(model.Bounds{Max: math.Vec3{X: 1, Y: 1, Z: 1}})
	if c.Distance != 200 {
		t.Errorf("small bounds Distance = %v, want 200", c.Distance)
	}

	before := *c
	c.FitToBounds(model.EmptyBounds())
	if *c != before {
		t.Error("empty bounds moved the camera")
	}
}

func TestClamps(t *testing.T) {
	c := NewOrbitCamera()
	c.HandlePitch(10)
	if c.Pitch != c.MaxPitch {
		t.Errorf("Pitch = %v, want %v", c.Pitch, c.MaxPitch)
	}
	c.HandlePitch(-10)
	if c.Pitch != c.MinPitch {
		t.Errorf("Pitch = %v, want %v", c.Pitch, c.MinPitch)
	}
	for range 100 {
		c.HandleZoom(1)
	}
	if c.Distance != c.MinDistance {
		t.Errorf("Distance = %v, want %v", c.Distance, c.MinDistance)
	}
}

func TestApply(t *testing.T) {
	c := NewOrbitCamera()
	c.Spin = 1
	c.Update(scene.FrameTime{Elapsed: 500 * time.Millisecond})
	if c.Yaw != 0.5 {
		t.Errorf("Yaw = %v, want 0.5", c.Yaw)
	}

	s := scene.New(scene.DefaultConfig(), scene.Services{})
	c.Apply(s, 800, 400)
	if s.Camera.Position != c.Position() || s.Camera.View != c.ViewMatrix() {
		t.Error("camera not written to scene")
	}
	if s.Camera.Projection != math.Perspective(c.FieldOfView, 2, c.Near, c.Far) {
		t.Error("projection aspect not taken from viewport")
	}
}
