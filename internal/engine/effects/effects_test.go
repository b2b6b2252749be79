package effects

import (
	"context"
	stdmath "math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Faultbox/mu-client/internal/assets"
	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/internal/engine/scene"
	"github.com/Faultbox/mu-client/pkg/math"
)

// plane is a single bone model with one textured quad in the XY plane at Z=0
// and a second untouched triangle.
func plane() *model.Model {
	return &model.Model{
		Name:  "plane",
		Bones: []model.Bone{{Name: "root", Parent: model.NoParent}},
		Meshes: []model.Mesh{
			{
				Vertices: []model.Vertex{
					{Position: math.Vec3{}},
					{Position: math.Vec3{X: 1}},
					{Position: math.Vec3{X: 1, Y: 1}},
					{Position: math.Vec3{Y: 1}},
				},
				TexCoords: [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
				Triangles: []model.Triangle{{
					Polygon:       4,
					VertexIndex:   [4]int16{0, 1, 2, 3},
					TexCoordIndex: [4]int16{0, 1, 2, 3},
				}},
				TexturePath: "water.jpg",
			},
			{
				Vertices:  []model.Vertex{{}, {Position: math.Vec3{X: 1}}, {Position: math.Vec3{Y: 1}}},
				TexCoords: [][2]float32{{0, 0}, {1, 0}, {0, 1}},
				Triangles: []model.Triangle{{
					Polygon:       3,
					VertexIndex:   [4]int16{0, 1, 2},
					TexCoordIndex: [4]int16{0, 1, 2},
				}},
			},
		},
	}
}

func spawn(t *testing.T, m *model.Model, behaviors ...scene.Behavior) (*scene.Scene, *scene.ModelObject) {
	t.Helper()
	rec := gpu.NewRecorder()
	mgr := assets.NewManager(t.TempDir(), rec, nil)
	s := scene.New(scene.DefaultConfig(), scene.Services{Device: rec, Models: mgr})

	mgr.Register("effect.bmd", m)
	o := s.NewObject("effect", "effect.bmd")
	for _, b := range behaviors {
		o.AddBehavior(b)
	}
	s.Add(o)
	if err := o.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s, o
}

func near(a, b float32) bool {
	return stdmath.Abs(float64(a-b)) < 1e-5
}

func TestWaterRippleLoad(t *testing.T) {
	w := NewWaterRipple(0)
	_, o := spawn(t, plane(), w)

	if o.BlendState != gpu.BlendNonPremultiplied || o.BlendMeshState != gpu.BlendAdditive {
		t.Errorf("blend states = %v/%v", o.BlendState, o.BlendMeshState)
	}
	if !o.LightEnabled || !o.IsTransparent {
		t.Error("water should be lit and transparent")
	}
	if o.Alpha() != 0.5 {
		t.Errorf("Alpha() = %v, want 0.5", o.Alpha())
	}
	if o.Color() != WaterTint {
		t.Errorf("Color() = %v, want %v", o.Color(), WaterTint)
	}
	if len(w.vertices) != 4 || len(w.texCoords) != 4 {
		t.Errorf("snapshot = %d vertices, %d texcoords", len(w.vertices), len(w.texCoords))
	}
}

func TestWaterRippleBadMesh(t *testing.T) {
	w := NewWaterRipple(5)
	_, o := spawn(t, plane(), w)

	// Load failure leaves the object usable and the ripple inert.
	if o.Status() != scene.StatusReady {
		t.Errorf("Status() = %v, want ready", o.Status())
	}
	o.Update(scene.FrameTime{Total: time.Second, Elapsed: time.Second})
	if o.Alpha() != 1 {
		t.Errorf("inert ripple changed alpha to %v", o.Alpha())
	}
}

func TestWaterRippleUpdate(t *testing.T) {
	shared := plane()
	w := NewWaterRipple(0)
	_, o := spawn(t, shared, w)

	// The quad lies at X in {0, 1} and Z = 0, so vertices sharing X wave
	// together; smoothing only mixes the two columns.
	o.SetDynamicBuffers()
	o.Update(scene.FrameTime{Total: time.Second, Elapsed: time.Second})

	if w.waveTime != 0.5 {
		t.Errorf("waveTime = %v, want 0.5", w.waveTime)
	}
	if !near(w.Scroll(), 0.1) {
		t.Errorf("Scroll() = %v, want 0.1", w.Scroll())
	}
	if o.BuffersValid() {
		t.Error("update did not invalidate buffers")
	}

	for i, v := range shared.Meshes[0].Vertices {
		if v.Position.Y != [4]float32{0, 0, 1, 1}[i] {
			t.Errorf("shared vertex %d moved to %v", i, v.Position)
		}
	}
	if shared.Meshes[0].TexCoords[0] != [2]float32{0, 0} {
		t.Error("shared texcoords scrolled")
	}

	own, err := o.OwnMesh(0)
	if err != nil {
		t.Fatal(err)
	}
	limit := float32(vertexWaveHeight * 0.594)
	for i, v := range own.Vertices {
		dy := v.Position.Y - shared.Meshes[0].Vertices[i].Position.Y
		if !near(dy, w.offsets[i]) {
			t.Errorf("vertex %d offset %v, recorded %v", i, dy, w.offsets[i])
		}
		if dy < -limit || dy > limit {
			t.Errorf("vertex %d offset %v beyond wave height", i, dy)
		}
		if v.Position.X != shared.Meshes[0].Vertices[i].Position.X || v.Position.Z != 0 {
			t.Errorf("vertex %d moved off the wave axis: %v", i, v.Position)
		}
	}
	for i, uv := range own.TexCoords {
		push := float32(stdmath.Abs(float64(w.offsets[i]/vertexWaveHeight))) * waveAmplitude
		want := shared.Meshes[0].TexCoords[i][1] + w.Scroll() + push
		if uv[0] != shared.Meshes[0].TexCoords[i][0] || !near(uv[1], want) {
			t.Errorf("texcoord %d = %v, want V %v", i, uv, want)
		}
	}

	alpha := 0.4 + float32(stdmath.Abs(stdmath.Sin(0.5*waveFrequency*0.3)))*0.2
	if !near(o.Alpha(), alpha) {
		t.Errorf("Alpha() = %v, want %v", o.Alpha(), alpha)
	}
}

func TestWaterRippleStaticColumn(t *testing.T) {
	// Every vertex at X = Z = 0: all offsets are equal and smoothing keeps
	// them, so the exact wave value can be checked.
	m := plane()
	for i := range m.Meshes[0].Vertices {
		m.Meshes[0].Vertices[i].Position.X = 0
	}
	w := NewWaterRipple(0)
	_, o := spawn(t, m, w)

	for range 4 {
		o.Update(scene.FrameTime{Elapsed: 500 * time.Millisecond})
	}

	// four updates of 0.5s: waveTime 1, scroll 0.2
	want := waveOffset(0, 0, 1) * vertexWaveHeight
	for i, off := range w.offsets {
		if !near(off, want) {
			t.Errorf("offset %d = %v, want %v", i, off, want)
		}
	}
	if !near(w.Scroll(), 0.2) {
		t.Errorf("Scroll() = %v, want 0.2", w.Scroll())
	}
}

func TestWaterRippleScrollWraps(t *testing.T) {
	w := NewWaterRipple(0)
	_, o := spawn(t, plane(), w)

	for range 25 {
		o.Update(scene.FrameTime{Elapsed: time.Second})
	}
	if s := w.Scroll(); s < 0 || s >= 1 || !near(s, 0.5) {
		t.Errorf("Scroll() = %v, want 0.5", s)
	}
}

func fire(t *testing.T, seed uint64) (*FireLight, *scene.ModelObject) {
	t.Helper()
	f := NewFireLight(0, math.Vec3{Z: 150}, rand.New(rand.NewPCG(seed, 1)))
	_, o := spawn(t, plane(), f)
	o.SetPosition(math.Vec3{X: 100, Y: 200})
	return f, o
}

func TestFireLightLoad(t *testing.T) {
	f, o := fire(t, 1)
	if !o.LightEnabled || o.BlendMesh != 0 {
		t.Error("fire host should be lit with its first mesh blended")
	}
	if f.Flames() != nil {
		t.Error("flames before the first update")
	}
	if len(f.Sprites()) != 0 {
		t.Error("sprites before the first update")
	}
}

func TestFireLightFlames(t *testing.T) {
	f, o := fire(t, 7)

	for i := range 20 {
		ft := scene.FrameTime{
			Total:   time.Duration(i) * 50 * time.Millisecond,
			Elapsed: 50 * time.Millisecond,
		}
		o.Update(ft)

		flames := f.Flames()
		if len(flames) != FlameCount*3 {
			t.Fatalf("flames = %d, want %d", len(flames), FlameCount*3)
		}
		for j := 0; j < len(flames); j += 3 {
			base, mid, top := flames[j], flames[j+1], flames[j+2]
			if base.Layer != FlameBase || mid.Layer != FlameMiddle || top.Layer != FlameTop {
				t.Fatalf("column %d layers = %v %v %v", j/3, base.Layer, mid.Layer, top.Layer)
			}
			// the top layer's rise can dip it into the middle band
			if !(base.Position.Z < mid.Position.Z && base.Position.Z < top.Position.Z) {
				t.Errorf("tick %d column %d not stacked: %v %v %v", i, j/3,
					base.Position.Z, mid.Position.Z, top.Position.Z)
			}
			for _, fl := range []Flame{base, mid, top} {
				if fl.Alpha < minFlameAlpha || fl.Alpha > maxFlameAlpha {
					t.Errorf("alpha %v out of range", fl.Alpha)
				}
				if fl.Scale <= 1 || fl.Scale > 3 {
					t.Errorf("scale %v out of range", fl.Scale)
				}
				// Sway never carries a flame far from its column.
				if d := fl.Position.X - 100; d < -15 || d > 15 {
					t.Errorf("flame X drift %v", d)
				}
			}
		}
	}

	// The fire sits on the host: bone 0 is at the origin, so the base layer
	// hovers around host + offset + base height.
	z := f.Flames()[0].Position.Z
	if z < 150+flameBaseZ-5 || z > 150+flameBaseZ+5 {
		t.Errorf("base flame Z = %v, want near %v", z, 150+flameBaseZ)
	}
}

func TestFireLightFollowsHost(t *testing.T) {
	a, oa := fire(t, 3)
	b, ob := fire(t, 3)
	ob.SetPosition(math.Vec3{X: 400, Y: 200})

	ft := scene.FrameTime{Total: time.Second, Elapsed: 16 * time.Millisecond}
	oa.Update(ft)
	ob.Update(ft)

	// Same seed, same flicker; only the host position differs.
	for i := range a.Flames() {
		fa, fb := a.Flames()[i], b.Flames()[i]
		if fa.Alpha != fb.Alpha || fa.Scale != fb.Scale {
			t.Errorf("flame %d flicker differs for identical seeds", i)
		}
		if d := fb.Position.Sub(fa.Position).Sub(math.Vec3{X: 300}); d.Length() > 1e-3 {
			t.Errorf("flame %d offset between hosts off by %v", i, d)
		}
	}
}

func TestFireLightSprites(t *testing.T) {
	f, o := fire(t, 11)
	o.Update(scene.FrameTime{Total: time.Second, Elapsed: time.Second})

	sprites := f.Sprites()
	if len(sprites) != FlameCount*3 {
		t.Fatalf("sprites = %d", len(sprites))
	}
	for i, s := range sprites {
		fl := f.Flames()[i]
		if s.Position != fl.Position || s.Alpha != fl.Alpha || s.Color != fl.Light {
			t.Errorf("sprite %d does not mirror its flame", i)
		}
		if s.Size != fl.Scale*flameSpriteSz {
			t.Errorf("sprite %d size = %v", i, s.Size)
		}
	}
	var _ scene.SpriteSource = f
	var _ scene.Loader = f
}

func TestClampAlpha(t *testing.T) {
	tests := []struct{ in, want float32 }{
		{0, minFlameAlpha},
		{0.7, 0.7},
		{2, maxFlameAlpha},
	}
	for _, tt := range tests {
		if got := clampAlpha(tt.in); got != tt.want {
			t.Errorf("clampAlpha(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
