package scene

import (
	"context"
	"errors"
	"image/color"
	stdmath "math"
	"testing"
	"time"

	"github.com/Faultbox/mu-client/internal/assets"
	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/internal/engine/terrain"
	"github.com/Faultbox/mu-client/internal/engine/texture"
	"github.com/Faultbox/mu-client/pkg/math"
)

func meshOf(o *ModelObject, call gpu.Call) int {
	for i := range o.meshes {
		if vb, ok := o.meshes[i].vb.(*gpu.MemVertexBuffer); ok && vb == call.Vertices {
			return i
		}
	}
	return -1
}

func TestLoadWithoutModel(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o := f.scene.NewObject("ghost", "")
	f.scene.Add(o)

	if err := o.LoadContent(); !errors.Is(err, ErrNoModel) {
		t.Fatalf("LoadContent() error = %v, want ErrNoModel", err)
	}
	if o.Status() != StatusError {
		t.Errorf("Status() = %v, want error", o.Status())
	}
	if f.logs.FilterMessage("model is not assigned").Len() != 1 {
		t.Error("missing model was not logged")
	}

	// Nothing to draw, nothing fails.
	o.Draw()
	o.DrawAfter()
	if n := f.rec.Count(gpu.OpDraw); n != 0 {
		t.Errorf("draws = %d, want 0", n)
	}
}

func TestLoadUnknownPath(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o := f.scene.NewObject("ghost", "Object1/None.bmd")
	f.scene.Add(o)

	if err := o.Load(context.Background()); !errors.Is(err, assets.ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
	if o.Status() != StatusError {
		t.Errorf("Status() = %v, want error", o.Status())
	}

	detached := NewModelObject("loose", "")
	if err := detached.Load(context.Background()); !errors.Is(err, ErrDetached) {
		t.Errorf("detached Load() error = %v, want ErrDetached", err)
	}
}

func TestLoadContent(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o, _ := f.spawn(t, "walker", testModel())

	if o.Status() != StatusReady {
		t.Errorf("Status() = %v, want ready", o.Status())
	}
	if o.MeshCount() != 3 {
		t.Fatalf("MeshCount() = %d, want 3", o.MeshCount())
	}
	if o.meshes[0].rgba || !o.meshes[1].rgba {
		t.Error("alpha format not taken from texture components")
	}
	if o.meshes[0].texturePath != "body.jpg" {
		t.Errorf("texture path = %q", o.meshes[0].texturePath)
	}
	if o.BuffersValid() {
		t.Error("buffers valid right after load")
	}

	// First pose is action 0 frame 0: child bone 10 above the root.
	if got := o.Pose()[1].Translation(); got != (math.Vec3{Z: 10}) {
		t.Errorf("child bone = %v, want (0,0,10)", got)
	}
}

func TestRebuildIdempotent(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o, _ := f.spawn(t, "walker", testModel())

	o.SetDynamicBuffers()
	if !o.BuffersValid() {
		t.Fatal("buffers still invalid after rebuild")
	}
	if n := f.rec.Count(gpu.OpCreateBuffers); n != 3 {
		t.Fatalf("CreateMeshBuffers calls = %d, want 3", n)
	}
	first := o.meshes[0].vb

	o.SetDynamicBuffers()
	if n := f.rec.Count(gpu.OpCreateBuffers); n != 3 {
		t.Errorf("second rebuild uploaded again: %d calls", n)
	}
	if o.meshes[0].vb != first {
		t.Error("second rebuild replaced buffers")
	}
	if !o.BuffersValid() {
		t.Error("second rebuild cleared the valid flag")
	}

	// A transform change invalidates; the next rebuild releases old buffers.
	o.SetPosition(math.Vec3{X: 3})
	if o.BuffersValid() {
		t.Error("SetPosition did not invalidate")
	}
	o.SetDynamicBuffers()
	if !first.(*gpu.MemVertexBuffer).Released {
		t.Error("stale buffer not released")
	}
}

func TestAnimate(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o, _ := f.spawn(t, "walker", testModel())
	o.AnimationSpeed = 1
	o.SetDynamicBuffers()

	// 1.5s at one key per second over 3 frames: frames 1 and 2, half way.
	o.Animate(FrameTime{Total: 1500 * time.Millisecond})

	pose := o.Pose()
	if got := pose[0].Translation(); got != (math.Vec3{X: 1.5}) {
		t.Errorf("root = %v, want (1.5,0,0)", got)
	}
	if got := pose[1].Translation(); got != (math.Vec3{X: 1.5, Z: 10}) {
		t.Errorf("child = %v, want (1.5,0,10)", got)
	}
	if o.BuffersValid() {
		t.Error("pose change did not invalidate buffers")
	}
	if b := o.Bounds(); b.Min.X != 1.5 || b.Max.X != 2.5 {
		t.Errorf("bounds X = [%v, %v], want [1.5, 2.5]", b.Min.X, b.Max.X)
	}

	// Same time again: nothing moves, buffers stay valid.
	o.SetDynamicBuffers()
	o.Animate(FrameTime{Total: 1500 * time.Millisecond})
	if !o.BuffersValid() {
		t.Error("unchanged pose invalidated buffers")
	}
}

func TestAnimatePlaySpeed(t *testing.T) {
	tests := []struct {
		name  string
		speed float32
		at    time.Duration
		wantX float32
	}{
		{"unset plays at animation speed", 0, 1500 * time.Millisecond, 1.5},
		{"one", 1, 1500 * time.Millisecond, 1.5},
		{"double", 2, 750 * time.Millisecond, 1.5},
		{"half", 0.5, 3 * time.Second, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultConfig(), nil)
			m := testModel()
			m.Actions[0].PlaySpeed = tt.speed
			o, _ := f.spawn(t, "walker", m)
			o.AnimationSpeed = 1

			o.Animate(FrameTime{Total: tt.at})
			if got := o.Pose()[0].Translation(); got != (math.Vec3{X: tt.wantX}) {
				t.Errorf("root = %v, want (%v,0,0)", got, tt.wantX)
			}
		})
	}
}

func TestAnimateStaticAction(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o, _ := f.spawn(t, "walker", testModel())

	o.CurrentAction = 1
	o.Animate(FrameTime{Total: time.Second})
	if got := o.Pose()[0].Translation(); got != (math.Vec3{X: 5}) {
		t.Fatalf("idle root = %v, want (5,0,0)", got)
	}

	// A static pose is only regenerated when the action changes.
	o.pose[0] = math.Translate(9, 9, 9)
	o.Animate(FrameTime{Total: 2 * time.Second})
	if got := o.Pose()[0].Translation(); got != (math.Vec3{X: 9, Y: 9, Z: 9}) {
		t.Errorf("static pose regenerated without action change: %v", got)
	}

	o.CurrentAction = 0
	o.Animate(FrameTime{})
	o.CurrentAction = 1
	o.Animate(FrameTime{})
	if got := o.Pose()[0].Translation(); got != (math.Vec3{X: 5}) {
		t.Errorf("idle root after switching back = %v, want (5,0,0)", got)
	}

	o.CurrentAction = 7
	o.Animate(FrameTime{}) // out of range, ignored
}

func TestLinkedChild(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	p, hp := f.spawn(t, "parent", testModel())
	c, hc := f.spawn(t, "linked", testModel())
	g, hg := f.spawn(t, "grandchild", testModel())
	u, hu := f.spawn(t, "free", testModel())

	c.LinkParentAnimation = true
	g.LinkParentAnimation = true
	for _, link := range [][2]Handle{{hc, hp}, {hg, hc}, {hu, hp}} {
		if err := f.scene.SetParent(link[0], link[1]); err != nil {
			t.Fatal(err)
		}
	}

	if &c.Pose()[0] != &p.pose[0] {
		t.Error("linked child does not draw with the parent's pose")
	}
	if &g.Pose()[0] != &c.pose[0] {
		t.Error("linked grandchild does not draw with its parent's pose")
	}
	if &u.Pose()[0] != &u.pose[0] {
		t.Error("free child borrowed a pose")
	}

	before := c.pose[0]
	c.Animate(FrameTime{Total: 1500 * time.Millisecond})
	if c.pose[0] != before {
		t.Error("linked child animated its own pose")
	}

	p.SetRenderShadow(true)
	if !c.renderShadow || !g.renderShadow {
		t.Error("shadow flag did not cascade to linked descendants")
	}
	if u.renderShadow {
		t.Error("shadow flag cascaded to a free child")
	}
	if !c.RenderShadow() {
		t.Error("linked child RenderShadow() should follow parent")
	}
	p.SetRenderShadow(false)
	if c.RenderShadow() || g.renderShadow {
		t.Error("shadow flag off did not cascade")
	}

	for _, o := range []*ModelObject{p, c, g, u} {
		o.invalidated = false
	}
	p.InvalidateBuffers()
	if c.BuffersValid() || g.BuffersValid() {
		t.Error("invalidation did not cascade to linked descendants")
	}
	if !u.BuffersValid() {
		t.Error("invalidation cascaded to a free child")
	}
}

func TestLinkedChildBoundsFollowParent(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	p, hp := f.spawn(t, "parent", testModel())
	c, hc := f.spawn(t, "linked", testModel())
	c.LinkParentAnimation = true
	if err := f.scene.SetParent(hc, hp); err != nil {
		t.Fatal(err)
	}

	p.AnimationSpeed = 1
	p.Animate(FrameTime{Total: 1500 * time.Millisecond})

	pb, cb := p.Bounds(), c.Bounds()
	if pb.Min.X != 1.5 || pb.Max.X != 2.5 {
		t.Fatalf("parent bounds X = [%v, %v], want [1.5, 2.5]", pb.Min.X, pb.Max.X)
	}
	if cb != pb {
		t.Errorf("linked child bounds = %+v, want parent's %+v", cb, pb)
	}
}

func TestParentBoneAttachment(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	p, hp := f.spawn(t, "parent", testModel())
	c, hc := f.spawn(t, "weapon", testModel())

	p.SetPosition(math.Vec3{X: 10})
	c.ParentBoneLink = 1
	c.SetPosition(math.Vec3{X: 1})
	if err := f.scene.SetParent(hc, hp); err != nil {
		t.Fatal(err)
	}

	// parent world, then local, then the parent's bone 1 at (0,0,10)
	if got := c.World().Translation(); got != (math.Vec3{X: 11, Z: 10}) {
		t.Errorf("child world = %v, want (11,0,10)", got)
	}
	if got := c.ParentBodyOrigin().Translation(); got != (math.Vec3{Z: 10}) {
		t.Errorf("ParentBodyOrigin() = %v", got)
	}

	p.SetPosition(math.Vec3{X: 20})
	if got := c.World().Translation(); got != (math.Vec3{X: 21, Z: 10}) {
		t.Errorf("child world after parent move = %v, want (21,0,10)", got)
	}

	c.ParentBoneLink = 9
	if c.ParentBodyOrigin() != math.Identity() {
		t.Error("out of range bone link should give identity")
	}
	if !c.RecalculateWorld() {
		t.Error("RecalculateWorld() should report the change")
	}
	if c.RecalculateWorld() {
		t.Error("RecalculateWorld() with nothing changed should be a no-op")
	}
}

func TestClassification(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o, _ := f.spawn(t, "walker", testModel())

	tests := []struct {
		name       string
		hidden     int
		blend      int
		scripts    map[string]texture.Script
		wantHidden [3]bool
		wantBlend  [3]bool
	}{
		{
			name: "defaults", hidden: NoMesh, blend: NoMesh,
		},
		{
			name: "selector", hidden: 1, blend: 2,
			wantHidden: [3]bool{false, true, false},
			wantBlend:  [3]bool{false, false, true},
		},
		{
			name: "all meshes", hidden: AllMeshes, blend: AllMeshes,
			wantHidden: [3]bool{true, true, true},
			wantBlend:  [3]bool{true, true, true},
		},
		{
			name: "script flags", hidden: NoMesh, blend: NoMesh,
			scripts: map[string]texture.Script{
				"body.jpg": {Hidden: true},
				"glow.jpg": {Bright: true},
			},
			wantHidden: [3]bool{true, false, false},
			wantBlend:  [3]bool{false, false, true},
		},
		{
			name: "all hidden beats scripts", hidden: AllMeshes, blend: NoMesh,
			scripts: map[string]texture.Script{
				"glow.jpg": {Bright: true},
			},
			wantHidden: [3]bool{true, true, true},
			wantBlend:  [3]bool{false, false, true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.tex.scripts = tt.scripts
			if f.tex.scripts == nil {
				f.tex.scripts = map[string]texture.Script{}
			}
			o.HiddenMesh, o.BlendMesh = tt.hidden, tt.blend
			for i := range 3 {
				if got := o.IsHiddenMesh(i); got != tt.wantHidden[i] {
					t.Errorf("IsHiddenMesh(%d) = %v, want %v", i, got, tt.wantHidden[i])
				}
				if got := o.IsBlendMesh(i); got != tt.wantBlend[i] {
					t.Errorf("IsBlendMesh(%d) = %v, want %v", i, got, tt.wantBlend[i])
				}
			}
			if o.IsHiddenMesh(-1) || o.IsHiddenMesh(3) || o.IsBlendMesh(3) {
				t.Error("out of range mesh classified")
			}
		})
	}
}

func TestMainPassOrder(t *testing.T) {
	f := newFixture(t, DefaultConfig(), terrain.Flat{Color: math.Splat(1)})
	o, _ := f.spawn(t, "walker", testModel())
	o.SetRenderShadow(true)
	o.MouseHover = true
	o.BlendMesh = 2

	f.rec.Reset()
	o.Draw()

	type step struct {
		mesh  int
		blend gpu.BlendState
		depth gpu.DepthState
	}
	want := []step{
		{0, gpu.BlendShadow, gpu.DepthRead},
		{0, gpu.BlendAdditive, gpu.DepthRead},
		{0, gpu.BlendAlpha, gpu.DepthDefault},
		{2, gpu.BlendShadow, gpu.DepthRead},
		{2, gpu.BlendAdditive, gpu.DepthRead},
	}
	draws := f.rec.Draws()
	if len(draws) != len(want) {
		t.Fatalf("main pass draws = %d, want %d", len(draws), len(want))
	}
	for i, w := range want {
		d := draws[i]
		if m := meshOf(o, d); m != w.mesh || d.Blend != w.blend || d.Depth != w.depth {
			t.Errorf("draw %d = mesh %d %v/%v, want mesh %d %v/%v", i, m, d.Blend, d.Depth, w.mesh, w.blend, w.depth)
		}
	}

	if c := draws[0].Effect.DiffuseColor; c != (math.Vec3{}) {
		t.Errorf("shadow diffuse = %v, want black", c)
	}
	if draws[0].Effect.Texture == nil {
		t.Error("shadow does not reuse the mesh texture")
	}
	if c := draws[1].Effect.DiffuseColor; c != highlightGreen {
		t.Errorf("highlight diffuse = %v, want green", c)
	}
	if c := draws[2].Effect.DiffuseColor; c != math.Splat(1) {
		t.Errorf("mesh diffuse = %v, want white", c)
	}
	if w := draws[2].Effect.World; w != o.World() {
		t.Error("mesh drawn with a transform other than its world")
	}

	f.rec.Reset()
	o.DrawAfter()

	draws = f.rec.Draws()
	if len(draws) != 2 {
		t.Fatalf("after pass draws = %d, want 2", len(draws))
	}
	if m := meshOf(o, draws[0]); m != 1 || draws[0].Blend != gpu.BlendAlpha {
		t.Errorf("after draw 0 = mesh %d %v, want alpha mesh 1", m, draws[0].Blend)
	}
	if m := meshOf(o, draws[1]); m != 2 || draws[1].Blend != gpu.BlendAdditive {
		t.Errorf("after draw 1 = mesh %d %v, want blend mesh 2 additive", m, draws[1].Blend)
	}

	if f.rec.BlendState() != gpu.BlendOpaque || f.rec.DepthState() != gpu.DepthDefault {
		t.Errorf("device state leaked: %v/%v", f.rec.BlendState(), f.rec.DepthState())
	}
	if e := f.scene.Effect(); e.DiffuseColor != math.Splat(1) || e.Alpha != 1 {
		t.Errorf("effect state leaked: %+v", e)
	}
}

func TestHighlightMonster(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o, _ := f.spawn(t, "monster", testModel())
	o.Category = CategoryMonster
	o.MouseHover = true
	o.SetDynamicBuffers()

	f.rec.Reset()
	o.DrawMeshHighlight(0)

	draws := f.rec.Draws()
	if len(draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(draws))
	}
	if draws[0].Effect.DiffuseColor != highlightRed {
		t.Errorf("monster highlight = %v, want red", draws[0].Effect.DiffuseColor)
	}
	if draws[0].Effect.World != HighlightMatrix(o.World()) {
		t.Error("highlight transform not inflated")
	}
	if draws[0].Effect.Alpha != 1 {
		t.Errorf("highlight alpha = %v, want 1", draws[0].Effect.Alpha)
	}
}

func TestHighlightMatrix(t *testing.T) {
	m := HighlightMatrix(math.Translate(10, 0, 0))
	p := m.TransformVec3(math.Vec3{X: 1, Y: 1, Z: 1})
	// 1.015 - 0.015 on every axis, then the world offset
	want := math.Vec3{X: 11, Y: 1, Z: 1}
	if d := p.Sub(want).Length(); d > 1e-5 {
		t.Errorf("HighlightMatrix moved (1,1,1) to %v, want %v", p, want)
	}
}

func TestHiddenMeshNeverDrawn(t *testing.T) {
	f := newFixture(t, DefaultConfig(), terrain.Flat{})
	o, _ := f.spawn(t, "walker", testModel())
	o.SetRenderShadow(true)
	o.MouseHover = true
	o.HiddenMesh = AllMeshes

	f.rec.Reset()
	o.Draw()
	o.DrawAfter()
	if n := f.rec.Count(gpu.OpDraw); n != 0 {
		t.Errorf("draws = %d, want 0", n)
	}
}

func TestShadowNaNWorld(t *testing.T) {
	f := newFixture(t, DefaultConfig(), terrain.Flat{})
	o, _ := f.spawn(t, "walker", testModel())
	o.SetDynamicBuffers()

	nan := float32(stdmath.NaN())
	w := math.Identity()
	w[13] = nan
	o.SetWorld(w)

	f.rec.Reset()
	o.DrawShadowMesh(0)

	if n := f.rec.Count(gpu.OpDraw); n != 0 {
		t.Errorf("draws = %d, want 0", n)
	}
	logs := f.logs.FilterMessage("mesh shadow failed")
	if logs.Len() != 1 {
		t.Fatalf("shadow failures logged = %d, want 1", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if fields["mesh"] != int64(0) || fields["object"] != "walker" {
		t.Errorf("log fields = %v", fields)
	}
	if f.rec.BlendState() != gpu.BlendOpaque || f.rec.DepthState() != gpu.DepthDefault {
		t.Error("device state changed by a skipped shadow")
	}
}

type brokenTerrain struct{}

func (brokenTerrain) Height(x, y float32) (float32, error) { return 0, terrain.ErrNoData }
func (brokenTerrain) Light(x, y float32) math.Vec3         { return math.Vec3{} }

func TestShadowTerrainFailure(t *testing.T) {
	f := newFixture(t, DefaultConfig(), brokenTerrain{})
	o, _ := f.spawn(t, "walker", testModel())
	o.SetRenderShadow(true)

	f.rec.Reset()
	o.Draw()

	// The shadows fail, the meshes still draw.
	if n := f.rec.Count(gpu.OpDraw); n != 2 {
		t.Errorf("draws = %d, want 2", n)
	}
	if f.logs.FilterMessage("mesh shadow failed").Len() != 2 {
		t.Error("shadow failures not logged per mesh")
	}
}

func TestShadowWithoutTerrain(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o, _ := f.spawn(t, "walker", testModel())
	o.SetRenderShadow(true)

	f.rec.Reset()
	for range 3 {
		o.Draw()
	}

	if n := f.rec.Count(gpu.OpDraw); n != 6 {
		t.Errorf("draws = %d, want 6", n)
	}
	if n := f.logs.FilterMessage("mesh shadow failed").Len(); n != 0 {
		t.Errorf("shadow failures logged %d times without terrain", n)
	}
	if _, err := o.ProjectShadow(); !errors.Is(err, ErrNoTerrain) {
		t.Errorf("ProjectShadow() error = %v, want ErrNoTerrain", err)
	}
}

func TestShadowMatrixFlatGround(t *testing.T) {
	f := newFixture(t, DefaultConfig(), terrain.Flat{})
	o, _ := f.spawn(t, "walker", testModel())

	proj, err := o.ProjectShadow()
	if err != nil {
		t.Fatalf("ProjectShadow() error = %v", err)
	}
	if proj.Anchor != (math.Vec3{Z: 1}) || proj.SlopeX != 0 || proj.SlopeZ != 0 {
		t.Errorf("ProjectShadow() = %+v", proj)
	}

	m, err := o.ShadowMatrix()
	if err != nil {
		t.Fatalf("ShadowMatrix() error = %v", err)
	}
	if got := m.Translation(); got.Sub(math.Vec3{Z: 1.1}).Length() > 1e-6 {
		t.Errorf("shadow origin = %v, want (0,0,1.1)", got)
	}

	// An object 20 above the ground casts its shadow away from the light.
	o.SetPosition(math.Vec3{Z: 20})
	proj, _ = o.ProjectShadow()
	want := math.Vec3{X: -10, Y: -20 / 4.5, Z: 1}
	if proj.Anchor.Sub(want).Length() > 1e-5 {
		t.Errorf("raised anchor = %v, want %v", proj.Anchor, want)
	}
}

func TestShadowSlope(t *testing.T) {
	hm := terrain.NewHeightmap(3, 3, 100)
	// ground rising towards +X+Y
	for y := range 3 {
		for x := range 3 {
			hm.SetHeight(x, y, float32(x+y)*10)
		}
	}
	f := newFixture(t, DefaultConfig(), hm)
	o, _ := f.spawn(t, "walker", testModel())
	o.SetPosition(math.Vec3{X: 100, Y: 100, Z: 100})

	proj, err := o.ProjectShadow()
	if err != nil {
		t.Fatalf("ProjectShadow() error = %v", err)
	}
	if proj.SlopeX <= 0 {
		t.Errorf("SlopeX = %v, want uphill", proj.SlopeX)
	}
	if d := stdmath.Abs(float64(proj.SlopeZ)); d > 1e-5 {
		t.Errorf("SlopeZ = %v, want level across the diagonal", proj.SlopeZ)
	}
}

func TestTint(t *testing.T) {
	f := newFixture(t, DefaultConfig(), terrain.Flat{Color: math.Splat(0.5)})
	o, _ := f.spawn(t, "walker", testModel())
	o.LightEnabled = true
	o.SetLight(math.Splat(0.25))
	o.SetAlpha(0.5)
	o.BlendMesh = 2
	o.SetBlendMeshLight(2)
	o.SetColor(color.RGBA{R: 255, G: 100, B: 0, A: 255})
	o.SetDynamicBuffers()

	vertexColor := func(i int) [4]uint8 {
		return o.meshes[i].vb.(*gpu.MemVertexBuffer).Data[0].Color
	}

	// (0.5 + 0.25) * 0.5 alpha
	if got, want := vertexColor(0), [4]uint8{95, 37, 0, 255}; got != want {
		t.Errorf("standard tint = %v, want %v", got, want)
	}
	// (0.5 + 0.25) * 2 blend light, clamped
	if got, want := vertexColor(2), [4]uint8{255, 150, 0, 255}; got != want {
		t.Errorf("blend tint = %v, want %v", got, want)
	}

	o.LightEnabled = false
	o.InvalidateBuffers()
	o.SetDynamicBuffers()
	if got, want := vertexColor(0), [4]uint8{31, 12, 0, 255}; got != want {
		t.Errorf("unlit tint = %v, want %v", got, want)
	}
}

// failingModels fails buffer creation for one mesh.
type failingModels struct {
	*assets.Manager
	mesh int
}

func (m failingModels) ModelBuffers(mdl *model.Model, mesh int, tint [4]uint8, pose []math.Mat4) (gpu.VertexBuffer, gpu.IndexBuffer, error) {
	if mesh == m.mesh {
		return nil, nil, errors.New("corrupt triangle")
	}
	return m.Manager.ModelBuffers(mdl, mesh, tint, pose)
}

func TestMeshFailureIsolated(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.scene.models = failingModels{Manager: f.assets, mesh: 0}
	o, _ := f.spawn(t, "walker", testModel())

	f.rec.Reset()
	o.Draw()

	if !o.BuffersValid() {
		t.Error("one failed mesh left the object invalid")
	}
	if o.meshes[0].vb != nil {
		t.Error("failed mesh kept a buffer")
	}
	draws := f.rec.Draws()
	if len(draws) != 1 || meshOf(o, draws[0]) != 2 {
		t.Errorf("draws = %d, want only mesh 2", len(draws))
	}
	if f.logs.FilterMessage("rebuilding mesh buffers").Len() != 1 {
		t.Error("rebuild failure not logged")
	}
}

func TestDrawFailureIsolated(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o, _ := f.spawn(t, "walker", testModel())
	o.SetDynamicBuffers()

	f.rec.FailDraw = errors.New("device lost")
	o.Draw()
	if n := f.logs.FilterMessage("mesh draw failed").Len(); n != 2 {
		t.Errorf("draw failures logged = %d, want 2", n)
	}
	if f.rec.BlendState() != gpu.BlendOpaque {
		t.Error("blend state leaked from a failed draw")
	}
}

func TestMissingTextureRetried(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.tex.missing["body.jpg"] = true
	o, _ := f.spawn(t, "walker", testModel())

	o.SetDynamicBuffers()
	if o.meshes[0].texture != nil {
		t.Fatal("missing texture resolved")
	}

	f.tex.missing["body.jpg"] = false
	o.InvalidateBuffers()
	o.SetDynamicBuffers()
	if o.meshes[0].texture == nil {
		t.Error("texture not retried during rebuild")
	}
}

func TestMeshDepthOverride(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o, _ := f.spawn(t, "straw", testModel())
	o.BlendState = gpu.BlendOpaque
	o.MeshDepth = gpu.DepthLessEqual
	o.SetDynamicBuffers()

	f.rec.Reset()
	o.DrawMesh(0)
	d := f.rec.Draws()
	if len(d) != 1 || d[0].Depth != gpu.DepthLessEqual || d[0].Blend != gpu.BlendOpaque {
		t.Fatalf("draws = %+v", d)
	}
	if f.rec.DepthState() != gpu.DepthDefault {
		t.Error("depth override leaked")
	}
}

func TestBoundsSkipsBadBones(t *testing.T) {
	m := &model.Model{
		Name:  "crate",
		Bones: []model.Bone{{Name: "root", Parent: model.NoParent}},
		Meshes: []model.Mesh{
			{
				Vertices: []model.Vertex{
					{Bone: 0, Position: math.Vec3{X: 1, Y: 2, Z: 3}},
					{Bone: 0, Position: math.Vec3{X: -1}},
					{Bone: 7, Position: math.Vec3{X: 100, Y: 100, Z: 100}},
					{Bone: -1, Position: math.Vec3{X: -100}},
				},
			},
			{}, // no vertices
		},
	}
	f := newFixture(t, DefaultConfig(), nil)
	o, _ := f.spawn(t, "crate", m)

	b := o.Bounds()
	if b.Min != (math.Vec3{X: -1}) || b.Max != (math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("Bounds() = %+v", b)
	}
}

func TestBlendOrder(t *testing.T) {
	m := testModel()
	m.Meshes[0] = tri(0, 0, 0, math.Vec3{})
	m.Meshes[1] = tri(0, 0, 0, math.Vec3{X: 10})
	m.Meshes[2] = tri(0, 0, 0, math.Vec3{X: 20})
	for i := range m.Meshes {
		m.Meshes[i].TexturePath = "glow.jpg"
	}

	tests := []struct {
		order BlendOrder
		want  []int
	}{
		{BlendOrderNone, []int{0, 1, 2}},
		{BlendOrderBackToFront, []int{2, 1, 0}},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.BlendOrder = tt.order
		f := newFixture(t, cfg, nil)
		f.scene.Camera.Position = math.Vec3{X: -5}
		o, _ := f.spawn(t, "glow", m)
		o.BlendMesh = AllMeshes
		o.SetDynamicBuffers()

		f.rec.Reset()
		o.DrawAfter()
		draws := f.rec.Draws()
		if len(draws) != 3 {
			t.Fatalf("order %v: draws = %d, want 3", tt.order, len(draws))
		}
		for i, d := range draws {
			if got := meshOf(o, d); got != tt.want[i] {
				t.Errorf("order %v: draw %d = mesh %d, want %d", tt.order, i, got, tt.want[i])
			}
		}
	}
}

func TestOwnMesh(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	shared := testModel()
	a, _ := f.spawn(t, "a", shared)
	b, _ := f.spawn(t, "b", shared)

	own, err := a.OwnMesh(0)
	if err != nil {
		t.Fatalf("OwnMesh() error = %v", err)
	}
	own.Vertices[0].Position = math.Vec3{Z: 50}
	own.TexCoords[0] = [2]float32{0.5, 0.5}

	if shared.Meshes[0].Vertices[0].Position != (math.Vec3{}) {
		t.Error("deformation leaked into the shared model")
	}
	if shared.Meshes[0].TexCoords[0] != [2]float32{0, 0} {
		t.Error("texcoord change leaked into the shared model")
	}
	again, _ := a.OwnMesh(0)
	if again != own {
		t.Error("OwnMesh() cloned twice")
	}

	a.InvalidateBuffers()
	a.SetDynamicBuffers()
	b.SetDynamicBuffers()
	if z := a.meshes[0].vb.(*gpu.MemVertexBuffer).Data[0].Position.Z; z != 50 {
		t.Errorf("deformed instance vertex Z = %v, want 50", z)
	}
	if z := b.meshes[0].vb.(*gpu.MemVertexBuffer).Data[0].Position.Z; z != 0 {
		t.Errorf("other instance vertex Z = %v, want 0", z)
	}

	if _, err := a.OwnMesh(5); err == nil {
		t.Error("OwnMesh(5) should fail")
	}
}

func TestDispose(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	o, h := f.spawn(t, "walker", testModel())
	o.SetDynamicBuffers()
	vb := o.meshes[0].vb.(*gpu.MemVertexBuffer)

	if err := f.scene.Remove(h); err != nil {
		t.Fatal(err)
	}
	if !vb.Released {
		t.Error("buffers not released on dispose")
	}
	if o.Model != nil || o.Pose() != nil || o.BuffersValid() {
		t.Error("dispose left content behind")
	}
}

func TestTotals(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	p, hp := f.spawn(t, "parent", testModel())
	c, hc := f.spawn(t, "child", testModel())
	if err := f.scene.SetParent(hc, hp); err != nil {
		t.Fatal(err)
	}

	p.SetAlpha(0.5)
	c.SetAlpha(0.5)
	p.SetScale(2)
	c.SetScale(3)
	p.SetAngle(math.Vec3{Z: 1})
	c.SetAngle(math.Vec3{Z: 0.5})

	if got := c.TotalAlpha(); got != 0.25 {
		t.Errorf("TotalAlpha() = %v, want 0.25", got)
	}
	if got := c.TotalScale(); got != 6 {
		t.Errorf("TotalScale() = %v, want 6", got)
	}
	if got := c.TotalAngle(); got != (math.Vec3{Z: 1.5}) {
		t.Errorf("TotalAngle() = %v, want (0,0,1.5)", got)
	}
}
