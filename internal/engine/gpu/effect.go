package gpu

import "github.com/Faultbox/mu-client/pkg/math"

// Effect is the alpha-tested basic effect every model mesh is drawn with.
type Effect struct {
	World      math.Mat4
	View       math.Mat4
	Projection math.Mat4

	Texture      Texture
	DiffuseColor math.Vec3
	Alpha        float32

	// AlphaCutoff discards fragments whose texture alpha is below it.
	AlphaCutoff float32
}

// NewEffect returns an effect with identity transforms, white diffuse and
// full opacity.
func NewEffect() *Effect {
	return &Effect{
		World:        math.Identity(),
		View:         math.Identity(),
		Projection:   math.Identity(),
		DiffuseColor: math.Splat(1),
		Alpha:        1,
		AlphaCutoff:  0.25,
	}
}

// Save snapshots every effect parameter and returns a function restoring them.
//
//	defer effect.Save()()
func (e *Effect) Save() func() {
	saved := *e
	return func() { *e = saved }
}
