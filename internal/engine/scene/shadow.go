package scene

import (
	"errors"
	"fmt"
	stdmath "math"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/pkg/math"
)

// ErrNoTerrain is returned when a shadow is requested without a terrain
// service.
var ErrNoTerrain = errors.New("no terrain to project shadow on")

const (
	shadowBias      = 0.1  // lift above the ground against z-fighting
	shadowThickness = 0.01 // vertical scale of the flattened mesh
	shadowLift      = 1
	sampleMargin    = 10
	slopeSpacing    = 0.4
)

var (
	sampleAngle = math.ToRadians(45)
	yawOffset   = math.ToRadians(110)
	pitchOffset = math.ToRadians(120)
	rollOffset  = math.ToRadians(90)
	halfPi      = float32(stdmath.Pi / 2)
	sampleCos   = float32(stdmath.Cos(float64(sampleAngle)))
	sampleSin   = float32(stdmath.Sin(float64(sampleAngle)))
)

// ShadowProjection is the ground placement of an object's shadow.
type ShadowProjection struct {
	Anchor math.Vec3 // shadow origin on the ground
	SlopeX float32   // ground slope along the first diagonal, radians
	SlopeZ float32   // ground slope along the second diagonal, radians
}

// ProjectShadow samples the terrain under and around the object. The anchor
// is pushed away from the object by its height above ground; the slopes come
// from four samples on the 45 degree diagonals.
func (o *ModelObject) ProjectShadow() (ShadowProjection, error) {
	if o.scene == nil || o.scene.terrain == nil {
		return ShadowProjection{}, ErrNoTerrain
	}
	t := o.scene.terrain
	pos := o.world.Translation()

	h, err := t.Height(pos.X, pos.Y)
	if err != nil {
		return ShadowProjection{}, fmt.Errorf("sampling ground: %w", err)
	}
	ground := h + h*0.5
	above := pos.Z - ground

	sd := above + sampleMargin
	ox, oy := sd*sampleCos, sd*sampleSin

	var samples [4]float32
	points := [4][2]float32{
		{pos.X - ox, pos.Y - oy},
		{pos.X + ox, pos.Y + oy},
		{pos.X - oy, pos.Y + ox},
		{pos.X + oy, pos.Y - ox},
	}
	for i, p := range points {
		if samples[i], err = t.Height(p[0], p[1]); err != nil {
			return ShadowProjection{}, fmt.Errorf("sampling slope: %w", err)
		}
	}

	spacing := float64(sd * slopeSpacing)
	return ShadowProjection{
		Anchor: math.Vec3{
			X: pos.X - above/2,
			Y: pos.Y - above/4.5,
			Z: ground + shadowLift,
		},
		SlopeX: float32(stdmath.Atan2(float64(samples[1]-samples[0]), spacing)),
		SlopeZ: float32(stdmath.Atan2(float64(samples[3]-samples[2]), spacing)),
	}, nil
}

// ShadowMatrix builds the world matrix of the flattened shadow: the object's
// orientation offset to lie down, squashed vertically, tilted against the
// slope, turned 45 degrees and moved to the anchor.
func (o *ModelObject) ShadowMatrix() (math.Mat4, error) {
	proj, err := o.ProjectShadow()
	if err != nil {
		return math.Mat4{}, err
	}

	angle := o.TotalAngle()
	rot := math.QuatFromYawPitchRoll(
		angle.Y+yawOffset-proj.SlopeX/2,
		angle.X+pitchOffset,
		angle.Z+rollOffset,
	).ToMat4()

	s := o.TotalScale()
	tilt := max(-halfPi, -halfPi-proj.SlopeX)

	m := math.TranslateVec(proj.Anchor.Add(math.Vec3{Z: shadowBias})).
		Mul(math.RotateZ(sampleAngle)).
		Mul(math.RotateX(tilt)).
		Mul(math.Scale(s, shadowThickness*s, s)).
		Mul(rot)
	if m.HasNaN() {
		return math.Mat4{}, ErrInvalidWorld
	}
	return m, nil
}

// DrawShadowMesh draws mesh i flattened onto the ground in black, reusing
// its texture for the alpha cutout. Invalid transforms and terrain failures
// skip the draw; device and effect state are restored on every path.
func (o *ModelObject) DrawShadowMesh(i int) {
	defer o.recoverMesh("shadow", i)
	if err := o.drawShadow(i); err != nil {
		o.logMeshError("shadow", i, err)
	}
}

func (o *ModelObject) drawShadow(i int) error {
	if i < 0 || i >= len(o.meshes) || o.IsHiddenMesh(i) {
		return nil
	}
	if o.world.HasNaN() {
		return ErrInvalidWorld
	}
	ms := &o.meshes[i]
	if ms.vb == nil || ms.ib == nil {
		return nil
	}

	world, err := o.ShadowMatrix()
	if err != nil {
		return fmt.Errorf("shadow matrix: %w", err)
	}

	dev, eff := o.scene.dev, o.scene.effect
	defer gpu.SaveState(dev)()
	defer eff.Save()()

	dev.SetBlendState(gpu.BlendShadow)
	dev.SetDepthState(gpu.DepthRead)
	eff.World = world
	eff.View = o.scene.Camera.View
	eff.Projection = o.scene.Camera.Projection
	eff.Texture = ms.texture
	eff.DiffuseColor = math.Vec3{}
	eff.Alpha = o.ShadowOpacity
	return o.submit(ms)
}
