// Package effects holds per-object behaviours that animate presentation on
// top of the skeleton: flickering flames and rippling water.
package effects

import (
	stdmath "math"
	"math/rand/v2"

	"github.com/Faultbox/mu-client/internal/engine/scene"
	"github.com/Faultbox/mu-client/pkg/math"
)

// FlameCount is the number of flame columns per fire.
const FlameCount = 3

const (
	minFlameAlpha        = 0.6
	maxFlameAlpha        = 0.8
	windChangeSpeed      = 0.4
	maxWindStrength      = 0.5
	scaleChangeSpeed     = 0.9
	randomScaleInfluence = 0.15

	flameOffsetY  = -5
	middleFlameZ  = 18
	topFlameZ     = 35
	flameBaseZ    = 10
	flameSpriteSz = 24 // world size of a flame sprite at scale 1
)

// FlameLayer is the vertical band a flame belongs to.
type FlameLayer int

const (
	FlameBase FlameLayer = iota
	FlameMiddle
	FlameTop
)

var flameColors = [...]math.Vec3{
	FlameBase:   {X: 1, Y: 0.45, Z: 0.15},
	FlameMiddle: {X: 1, Y: 0.65, Z: 0.25},
	FlameTop:    {X: 1, Y: 0.75, Z: 0.35},
}

// Flame is one flickering billboard.
type Flame struct {
	Layer    FlameLayer
	Position math.Vec3
	Alpha    float32
	Light    math.Vec3
	Scale    float32
}

// FireLight drives three layered flame columns anchored to a bone of its
// host object. Each column sways with its own wind.
type FireLight struct {
	// Bone is the host bone the fire sits on.
	Bone int
	// Offset is added to the bone position.
	Offset math.Vec3
	// BaseHeight lifts every layer.
	BaseHeight float32

	rng *rand.Rand

	windTimes     [FlameCount]float32
	windStrengths [FlameCount]float32
	scaleOffsets  [FlameCount]float32

	base   math.Vec3
	flames [FlameCount * 3]Flame
	ready  bool
}

// NewFireLight creates a fire on bone, seeded from rng. A nil rng uses a
// randomly seeded source.
func NewFireLight(bone int, offset math.Vec3, rng *rand.Rand) *FireLight {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	f := &FireLight{
		Bone:       bone,
		Offset:     offset,
		BaseHeight: flameBaseZ,
		rng:        rng,
	}
	for i := range FlameCount {
		f.windTimes[i] = rng.Float32() * 2 * stdmath.Pi
		f.windStrengths[i] = rng.Float32() * maxWindStrength
		f.scaleOffsets[i] = rng.Float32() * 2 * stdmath.Pi
	}
	for i := range f.flames {
		f.flames[i].Layer = FlameLayer(i % 3)
	}
	return f
}

// Load lights the host and blends its first mesh.
func (f *FireLight) Load(o *scene.ModelObject) error {
	o.LightEnabled = true
	o.BlendMesh = 0
	return nil
}

// Update advances wind and recomputes every flame from the host's pose.
func (f *FireLight) Update(o *scene.ModelObject, ft scene.FrameTime) {
	t := float32(ft.Total.Seconds())
	dt := float32(ft.Elapsed.Seconds())

	for i := range FlameCount {
		f.windTimes[i] += windChangeSpeed * dt * (1 + f.rng.Float32()*0.2)
		f.windStrengths[i] = f.windStrength(i, t)
	}

	f.base = o.World().Translation().Add(f.Offset)
	if pose := o.Pose(); f.Bone >= 0 && f.Bone < len(pose) {
		f.base = f.base.Add(pose[f.Bone].Translation())
	}

	lum := luminosity(t)
	turb := turbulence(t)
	for i := range FlameCount {
		f.scaleOffsets[i] += scaleChangeSpeed * dt
		f.updateBase(i, t, lum, turb)
		f.updateMiddle(i, t, lum, turb)
		f.updateTop(i, t, lum, turb)
	}
	f.ready = true
}

// Flames returns the current flames, base layer first within each column.
// It is empty until the first update.
func (f *FireLight) Flames() []Flame {
	if !f.ready {
		return nil
	}
	return f.flames[:]
}

// Sprites renders the flames as billboards.
func (f *FireLight) Sprites() []scene.Sprite {
	flames := f.Flames()
	out := make([]scene.Sprite, 0, len(flames))
	for _, fl := range flames {
		out = append(out, scene.Sprite{
			Position: fl.Position,
			Size:     fl.Scale * flameSpriteSz,
			Color:    fl.Light,
			Alpha:    fl.Alpha,
		})
	}
	return out
}

func (f *FireLight) windStrength(i int, t float32) float32 {
	wind := sin(f.windTimes[i])
	jitter := sin(t * (1.5 + float32(i)*0.2))
	return (wind*0.7 + jitter*0.3) * maxWindStrength
}

func luminosity(t float32) float32 {
	return 0.9 + sin(t*1.8)*0.15 + sin(t*3.7)*0.08
}

func turbulence(t float32) float32 {
	return 1 + sin(t*4)*0.12 + sin(t*9)*0.06 + sin(t*15)*0.03
}

// sway is the flame's drift around its column.
func (f *FireLight) sway(i int, t, freq, amp float32) math.Vec3 {
	phase := f.windTimes[i]
	wind := f.windStrengths[i]
	return math.Vec3{
		X: sin(t*freq+phase)*amp*(0.8+f.rng.Float32()*0.4) + wind,
		Y: cos(t*freq*0.9+phase)*amp*(0.7+f.rng.Float32()*0.3) + wind*0.4,
		Z: sin(t*freq*1.1+phase) * amp * 0.4,
	}
}

func (f *FireLight) scale(i int, base, turb float32) float32 {
	return base + (turb-1)*0.2 + sin(f.scaleOffsets[i])*randomScaleInfluence
}

func (f *FireLight) flame(i int, layer FlameLayer) *Flame {
	return &f.flames[i*3+int(layer)]
}

func (f *FireLight) updateBase(i int, t, lum, turb float32) {
	fl := f.flame(i, FlameBase)
	fl.Alpha = clampAlpha(lum * turb * (0.8 + sin(f.scaleOffsets[i])*0.1))
	fl.Position = f.base.
		Add(f.sway(i, t, 1.8, 7)).
		Add(math.Vec3{Y: flameOffsetY, Z: f.BaseHeight})
	fl.Light = flameColors[FlameBase].Scale(fl.Alpha * (0.85 + turb*0.15))
	fl.Scale = f.scale(i, 1.5, turb)
}

func (f *FireLight) updateMiddle(i int, t, lum, turb float32) {
	fl := f.flame(i, FlameMiddle)
	fl.Alpha = clampAlpha(lum * turb * (0.75 + sin(f.scaleOffsets[i])*0.15))
	fl.Position = f.base.
		Add(f.sway(i, t, 2.2, 6)).
		Add(math.Vec3{Y: flameOffsetY, Z: f.BaseHeight + middleFlameZ})
	fl.Light = flameColors[FlameMiddle].Scale(fl.Alpha * (0.9 + turb*0.1))
	fl.Scale = f.scale(i, 2, turb)
}

func (f *FireLight) updateTop(i int, t, lum, turb float32) {
	fl := f.flame(i, FlameTop)
	fl.Alpha = clampAlpha(lum * turb * (0.7 + sin(f.scaleOffsets[i])*0.2))

	wind := f.windStrengths[i]
	rise := sin(t*2+f.windTimes[i])*12 + wind*10
	fl.Position = f.base.
		Add(f.sway(i, t, 2.5, 5)).
		Add(math.Vec3{X: wind * 4, Y: flameOffsetY, Z: f.BaseHeight + topFlameZ + rise})
	fl.Light = flameColors[FlameTop].Scale(fl.Alpha * (0.95 + turb*0.1))
	fl.Scale = f.scale(i, 2.2, turb)
}

func clampAlpha(a float32) float32 {
	return max(minFlameAlpha, min(maxFlameAlpha, a))
}

func sin(v float32) float32 { return float32(stdmath.Sin(float64(v))) }
func cos(v float32) float32 { return float32(stdmath.Cos(float64(v))) }
