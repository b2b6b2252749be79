package scene

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/internal/engine/skeleton"
	"github.com/Faultbox/mu-client/internal/engine/texture"
	"github.com/Faultbox/mu-client/internal/logger"
	"github.com/Faultbox/mu-client/pkg/math"
)

var (
	// ErrNoModel is returned when content is loaded without a model.
	ErrNoModel = errors.New("model is not assigned")

	// ErrDetached is returned for operations that need the object to be in a
	// scene.
	ErrDetached = errors.New("object is not in a scene")

	// ErrInvalidWorld is returned when a world or shadow matrix holds NaN.
	ErrInvalidWorld = errors.New("world matrix contains NaN")
)

// Mesh selectors for HiddenMesh and BlendMesh.
const (
	NoMesh    = -1
	AllMeshes = -2
)

// Status is the load state of an object.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Category selects per-kind presentation such as the highlight color.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryMonster
	CategoryNPC
	CategoryPlayer
)

// meshState is the per-instance runtime state of one mesh.
type meshState struct {
	texturePath string
	texture     gpu.Texture
	rgba        bool

	vb gpu.VertexBuffer
	ib gpu.IndexBuffer

	center math.Vec3 // bounds center in model space
}

func (ms *meshState) release() {
	if ms.vb != nil {
		ms.vb.Release()
		ms.vb = nil
	}
	if ms.ib != nil {
		ms.ib.Release()
		ms.ib = nil
	}
}

// ModelObject is one rendered, animated instance of a shared model.
type ModelObject struct {
	Name      string
	ModelPath string
	Model     *model.Model
	Category  Category

	Visible       bool
	LightEnabled  bool
	IsTransparent bool
	MouseHover    bool

	ShadowOpacity  float32
	CurrentAction  int
	AnimationSpeed float32
	BodyHeight     float32

	HiddenMesh     int
	BlendMesh      int
	BlendMeshState gpu.BlendState
	BlendState     gpu.BlendState
	// MeshDepth, unless DepthDefault, is applied around every mesh draw.
	MeshDepth gpu.DepthState

	// LinkParentAnimation makes the object draw with its parent's pose and
	// shadow flag instead of its own.
	LinkParentAnimation bool
	// ParentBoneLink is the parent bone the object is attached to, or -1.
	ParentBoneLink int

	status         Status
	position       math.Vec3
	angle          math.Vec3 // radians
	scale          float32
	alpha          float32
	light          math.Vec3
	color          color.RGBA
	blendMeshLight float32
	renderShadow   bool

	world  math.Mat4
	pose   []math.Mat4
	bounds model.Bounds

	priorAction   int
	invalidated   bool
	contentLoaded bool

	meshes       []meshState
	blendScratch []int

	// instance holds meshes deformed by this object only; nil when the
	// shared model is drawn as is.
	instance *model.Model

	behaviors []Behavior

	scene    *Scene
	handle   Handle
	parent   Handle
	children []Handle
}

// NewModelObject creates an object with default presentation.
func NewModelObject(name, modelPath string) *ModelObject {
	return &ModelObject{
		Name:           name,
		ModelPath:      modelPath,
		Visible:        true,
		ShadowOpacity:  1,
		AnimationSpeed: 4,
		HiddenMesh:     NoMesh,
		BlendMesh:      NoMesh,
		BlendMeshState: gpu.BlendAdditive,
		BlendState:     gpu.BlendAlpha,
		MeshDepth:      gpu.DepthDefault,
		ParentBoneLink: -1,
		scale:          1,
		alpha:          1,
		light:          math.Splat(1),
		color:          color.RGBA{R: 255, G: 255, B: 255, A: 255},
		blendMeshLight: 1,
		world:          math.Identity(),
		bounds:         model.EmptyBounds(),
		invalidated:    true,
	}
}

// Handle returns the object's scene handle.
func (o *ModelObject) Handle() Handle { return o.handle }

// Status returns the load state.
func (o *ModelObject) Status() Status { return o.status }

// AddBehavior attaches per-frame logic.
func (o *ModelObject) AddBehavior(b Behavior) {
	o.behaviors = append(o.behaviors, b)
}

// Load resolves the model through the scene's model source when none is
// assigned, then loads content.
func (o *ModelObject) Load(ctx context.Context) error {
	if o.scene == nil {
		return fmt.Errorf("loading %s: %w", o.Name, ErrDetached)
	}

	if o.Model == nil && o.ModelPath != "" && o.scene.models != nil {
		m, err := o.scene.models.PrepareModel(ctx, o.ModelPath)
		if err != nil {
			o.status = StatusError
			o.logger().Error("preparing model",
				zap.String("object", o.Name),
				zap.String("path", o.ModelPath),
				zap.Error(err))
			return fmt.Errorf("loading %s: %w", o.Name, err)
		}
		o.Model = m
	}
	return o.LoadContent()
}

// LoadContent allocates per-mesh state for the assigned model, resolves
// textures and generates the first pose.
func (o *ModelObject) LoadContent() error {
	if o.scene == nil {
		return fmt.Errorf("loading %s: %w", o.Name, ErrDetached)
	}
	if o.Model == nil {
		o.status = StatusError
		o.logger().Error("model is not assigned", zap.String("object", o.Name))
		return fmt.Errorf("%s: %w", o.Name, ErrNoModel)
	}

	n := len(o.Model.Meshes)
	o.releaseBuffers()
	o.meshes = make([]meshState, n)
	o.blendScratch = make([]int, 0, n)
	o.instance = nil

	for i := range o.Model.Meshes {
		ms := &o.meshes[i]
		ms.texturePath = o.texturePath(i)
		o.loadTexture(i)
	}

	o.pose = skeleton.NewPose(o.Model.BoneCount())
	o.priorAction = 0
	o.invalidated = true
	o.contentLoaded = true
	o.RecalculateWorld()
	if len(o.Model.Actions) > 0 {
		o.generatePose(0, skeleton.StaticFrame)
	}
	o.UpdateBounds()

	for _, b := range o.behaviors {
		if l, ok := b.(Loader); ok {
			if err := l.Load(o); err != nil {
				o.logger().Warn("loading behaviour",
					zap.String("object", o.Name),
					zap.Error(err))
			}
		}
	}

	o.status = StatusReady
	return nil
}

func (o *ModelObject) texturePath(i int) string {
	rel := o.Model.Meshes[i].TexturePath
	if o.scene.models == nil {
		return rel
	}
	return o.scene.models.TexturePath(o.Model, rel)
}

// loadTexture resolves the texture handle and format of mesh i. A failure
// leaves the handle nil for a later retry.
func (o *ModelObject) loadTexture(i int) {
	ms := &o.meshes[i]
	if o.scene.textures == nil || ms.texturePath == "" {
		return
	}
	tex, err := o.scene.textures.Texture(ms.texturePath)
	if err != nil {
		o.logger().Warn("loading texture",
			zap.String("object", o.Name),
			zap.Int("mesh", i),
			zap.String("path", ms.texturePath),
			zap.Error(err))
		return
	}
	ms.texture = tex
	ms.rgba = o.scene.textures.Components(ms.texturePath) == 4
}

// script returns the texture script flags of mesh i.
func (o *ModelObject) script(i int) texture.Script {
	if o.scene == nil || o.scene.textures == nil {
		return texture.Script{}
	}
	return o.scene.textures.Script(o.meshes[i].texturePath)
}

// Update runs animation and behaviours for one tick.
func (o *ModelObject) Update(ft FrameTime) {
	if o.scene == nil || !o.Visible {
		return
	}
	o.Animate(ft)
	for _, b := range o.behaviors {
		b.Update(o, ft)
	}
	o.RecalculateWorld()
}

// OwnMesh returns a copy of mesh i private to this object. Writes to it
// deform this instance only; the shared model is never modified.
func (o *ModelObject) OwnMesh(i int) (*model.Mesh, error) {
	if o.Model == nil {
		return nil, fmt.Errorf("%s: %w", o.Name, ErrNoModel)
	}
	if i < 0 || i >= len(o.Model.Meshes) {
		return nil, fmt.Errorf("%s: mesh %d of %d out of range", o.Name, i, len(o.Model.Meshes))
	}

	if o.instance == nil {
		view := *o.Model
		view.Meshes = slices.Clone(o.Model.Meshes)
		o.instance = &view
	}
	own := &o.instance.Meshes[i]
	if !sharesGeometry(own, &o.Model.Meshes[i]) {
		return own, nil
	}

	clone, err := o.Model.Meshes[i].Clone()
	if err != nil {
		return nil, err
	}
	*own = *clone
	return own, nil
}

func sharesGeometry(a, b *model.Mesh) bool {
	if len(a.Vertices) > 0 && len(b.Vertices) > 0 {
		return &a.Vertices[0] == &b.Vertices[0]
	}
	if len(a.TexCoords) > 0 && len(b.TexCoords) > 0 {
		return &a.TexCoords[0] == &b.TexCoords[0]
	}
	return true
}

// geometry returns the model whose meshes are skinned for this object.
func (o *ModelObject) geometry() *model.Model {
	if o.instance != nil {
		return o.instance
	}
	return o.Model
}

// Dispose drops the model, the pose and every buffer.
func (o *ModelObject) Dispose() {
	o.releaseBuffers()
	o.Model = nil
	o.instance = nil
	o.pose = nil
	o.meshes = nil
	o.contentLoaded = false
	o.invalidated = true
}

func (o *ModelObject) releaseBuffers() {
	for i := range o.meshes {
		o.meshes[i].release()
	}
}

func (o *ModelObject) logger() *zap.Logger {
	if o.scene != nil {
		return o.scene.log
	}
	return logger.Named("scene")
}

// Position returns the local position.
func (o *ModelObject) Position() math.Vec3 { return o.position }

// SetPosition moves the object.
func (o *ModelObject) SetPosition(p math.Vec3) {
	if p == o.position {
		return
	}
	o.position = p
	o.matrixChanged()
}

// Angle returns the local rotation in radians about X, Y and Z.
func (o *ModelObject) Angle() math.Vec3 { return o.angle }

// SetAngle rotates the object.
func (o *ModelObject) SetAngle(a math.Vec3) {
	if a == o.angle {
		return
	}
	o.angle = a
	o.matrixChanged()
}

// Scale returns the local uniform scale.
func (o *ModelObject) Scale() float32 { return o.scale }

// SetScale scales the object.
func (o *ModelObject) SetScale(s float32) {
	if s == o.scale {
		return
	}
	o.scale = s
	o.matrixChanged()
}

// Alpha returns the object's own opacity.
func (o *ModelObject) Alpha() float32 { return o.alpha }

// SetAlpha changes opacity. Buffers carry the alpha in the vertex tint, so
// they are rebuilt for the object and its children.
func (o *ModelObject) SetAlpha(a float32) {
	if a == o.alpha {
		return
	}
	o.alpha = a
	o.invalidateTree()
}

// TotalAlpha is the object's alpha times its ancestors'.
func (o *ModelObject) TotalAlpha() float32 {
	if p, ok := o.Parent(); ok {
		return o.alpha * p.TotalAlpha()
	}
	return o.alpha
}

// TotalScale is the object's scale times its ancestors'.
func (o *ModelObject) TotalScale() float32 {
	if p, ok := o.Parent(); ok {
		return o.scale * p.TotalScale()
	}
	return o.scale
}

// TotalAngle is the object's angle plus its ancestors'.
func (o *ModelObject) TotalAngle() math.Vec3 {
	if p, ok := o.Parent(); ok {
		return o.angle.Add(p.TotalAngle())
	}
	return o.angle
}

// Light returns the ambient light added to the terrain light.
func (o *ModelObject) Light() math.Vec3 { return o.light }

// SetLight changes the ambient light.
func (o *ModelObject) SetLight(l math.Vec3) {
	if l == o.light {
		return
	}
	o.light = l
	o.InvalidateBuffers()
}

// Color returns the base tint.
func (o *ModelObject) Color() color.RGBA { return o.color }

// SetColor changes the base tint.
func (o *ModelObject) SetColor(c color.RGBA) {
	if c == o.color {
		return
	}
	o.color = c
	o.InvalidateBuffers()
}

// BlendMeshLight returns the light scale of blend meshes.
func (o *ModelObject) BlendMeshLight() float32 { return o.blendMeshLight }

// SetBlendMeshLight changes the light scale of blend meshes.
func (o *ModelObject) SetBlendMeshLight(v float32) {
	o.blendMeshLight = v
	o.InvalidateBuffers()
}

// World returns the world matrix.
func (o *ModelObject) World() math.Mat4 { return o.world }

// SetWorld overrides the world matrix until the next transform change.
func (o *ModelObject) SetWorld(m math.Mat4) { o.world = m }

// Pose returns the bone transform set the object draws with: its parent's
// when linked, else its own.
func (o *ModelObject) Pose() []math.Mat4 {
	if o.LinkParentAnimation {
		if p, ok := o.Parent(); ok && p.pose != nil {
			return p.pose
		}
	}
	return o.pose
}

// MeshCount returns the number of meshes with runtime state.
func (o *ModelObject) MeshCount() int { return len(o.meshes) }
