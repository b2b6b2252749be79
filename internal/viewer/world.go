package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	stdmath "math"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/mu-client/internal/assets"
	"github.com/Faultbox/mu-client/internal/config"
	"github.com/Faultbox/mu-client/internal/engine/effects"
	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/engine/input"
	"github.com/Faultbox/mu-client/internal/engine/picking"
	"github.com/Faultbox/mu-client/internal/engine/scene"
	"github.com/Faultbox/mu-client/internal/engine/terrain"
	"github.com/Faultbox/mu-client/internal/engine/texture"
	"github.com/Faultbox/mu-client/internal/logger"
	"github.com/Faultbox/mu-client/pkg/math"
)

// Terrain maps looked up in the data directory before falling back to the
// generated ground.
const (
	heightFile = "World1/TerrainHeight.bmp"
	lightFile  = "World1/TerrainLight.jpg"
)

// Generated ground size in cells.
const groundCells = 17

// World is the scene the viewer shows together with the sources it loads
// from.
type World struct {
	Scene    *scene.Scene
	Assets   *assets.Manager
	Textures *texture.Registry
	Ground   *terrain.Heightmap

	// Hero is the animated totem the action command applies to.
	Hero scene.Handle
	// Fire is the brazier's flame behaviour.
	Fire *effects.FireLight
	// Water is the pool's ripple behaviour.
	Water *effects.WaterRipple

	log *zap.Logger
}

// sceneConfig maps the render settings to scene options.
func sceneConfig(rc config.RenderConfig) scene.Config {
	cfg := scene.Config{
		Shadows:        rc.Shadows,
		Highlight:      rc.Highlight,
		AnimationSpeed: rc.AnimationSpeed,
		AmbientLight:   math.Vec3{X: rc.AmbientLight[0], Y: rc.AmbientLight[1], Z: rc.AmbientLight[2]},
		BlendOrder:     scene.BlendOrderNone,
	}
	if rc.BlendSort == config.BlendSortBackToFront {
		cfg.BlendOrder = scene.BlendOrderBackToFront
	}
	return cfg
}

// renderConfig writes the scene options back into render settings.
func renderConfig(cfg scene.Config, rc config.RenderConfig) config.RenderConfig {
	rc.Shadows = cfg.Shadows
	rc.Highlight = cfg.Highlight
	rc.BlendSort = config.BlendSortNone
	if cfg.BlendOrder == scene.BlendOrderBackToFront {
		rc.BlendSort = config.BlendSortBackToFront
	}
	return rc
}

// NewWorld loads the ground and the built-in models through dev.
func NewWorld(ctx context.Context, cfg *config.Config, dev gpu.Device) (*World, error) {
	w := &World{log: logger.Named("viewer")}

	w.Assets = assets.NewManager(cfg.Data.DataDir, dev, nil)
	for p, m := range Models() {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("built-in model %s: %w", p, err)
		}
		w.Assets.Register(p, m)
	}

	builtin, err := builtinTextures()
	if err != nil {
		return nil, err
	}
	scripts := builtinScripts()
	if cfg.Data.TextureScripts != "" {
		extra, err := texture.LoadScripts(cfg.Data.TextureScripts)
		if err != nil {
			return nil, err
		}
		for name, s := range extra {
			scripts[name] = s
		}
	}
	w.Textures = texture.NewRegistry(dev, func(p string) ([]byte, error) {
		if data, ok := builtin[textureKey(p)]; ok {
			return data, nil
		}
		return w.Assets.LoadTexture(p)
	}, scripts)

	w.Ground = w.loadGround()
	w.Scene = scene.New(sceneConfig(cfg.Render), scene.Services{
		Device:   dev,
		Models:   w.Assets,
		Textures: w.Textures,
		Terrain:  w.Ground,
	})

	if err := w.setupGround(dev); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.populate(ctx); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func textureKey(p string) string {
	return strings.ToLower(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}

// loadGround reads the terrain maps from the data directory, or generates
// rolling hills when they are missing or unreadable.
func (w *World) loadGround() *terrain.Heightmap {
	hm, err := w.readGround()
	if err == nil {
		w.log.Info("terrain loaded",
			zap.String("path", heightFile),
			zap.Int("width", hm.Width),
			zap.Int("height", hm.Rows))
		return hm
	}
	if errors.Is(err, assets.ErrNotFound) {
		w.log.Debug("no terrain in data directory, generating")
	} else {
		w.log.Warn("loading terrain", zap.Error(err))
	}
	return generateGround(groundCells, terrain.DefaultTileSize)
}

func (w *World) readGround() (*terrain.Heightmap, error) {
	data, err := w.Assets.Load(heightFile)
	if err != nil {
		return nil, err
	}
	heights, err := texture.Decode(heightFile, data)
	if err != nil {
		return nil, err
	}

	var lights image.Image
	if data, err := w.Assets.LoadTexture(lightFile); err == nil {
		if lights, err = texture.Decode(lightFile, data); err != nil {
			return nil, err
		}
	}
	return terrain.FromImages(heights, lights, terrain.DefaultTileSize, terrain.DefaultHeightScale)
}

// generateGround builds an n by n grid of gentle hills lit from one corner.
func generateGround(n int, tile float32) *terrain.Heightmap {
	hm := terrain.NewHeightmap(n, n, tile)
	for y := range n {
		for x := range n {
			fx, fy := float32(x), float32(y)
			hm.SetHeight(x, y, float32(30+20*stdmath.Sin(float64(fx)*0.5)*stdmath.Cos(float64(fy)*0.4)))

			shade := 0.6 + 0.4*(fx+fy)/float32(2*(n-1))
			hm.SetLight(x, y, math.Vec3{X: shade, Y: shade, Z: shade * 0.95})
		}
	}
	return hm
}

// setupGround uploads the ground mesh and the sprite renderer.
func (w *World) setupGround(dev gpu.Device) error {
	tex, err := w.Textures.Texture(groundTexture)
	if err != nil {
		return err
	}
	if mesh := terrain.BuildMesh(w.Ground); mesh != nil {
		tr, err := scene.NewTerrainRenderer(dev, mesh, tex)
		if err != nil {
			return fmt.Errorf("uploading terrain: %w", err)
		}
		w.Scene.SetGround(tr)
	}

	flare, err := w.Textures.Texture(flareTexture)
	if err != nil {
		return err
	}
	w.Scene.SetSprites(scene.NewSpriteRenderer(flare))
	return nil
}

// Center is the middle of the ground.
func (w *World) Center() math.Vec3 {
	half := float32(w.Ground.Width-1) * w.Ground.TileSize / 2
	return w.groundAt(half, half)
}

func (w *World) groundAt(x, y float32) math.Vec3 {
	z, err := w.Ground.Height(x, y)
	if err != nil {
		z = 0
	}
	return math.Vec3{X: x, Y: y, Z: z}
}

// populate places the built-in models around the center of the ground.
func (w *World) populate(ctx context.Context) error {
	if _, err := w.Assets.PrepareModels(ctx, TotemPath, CloakPath, SwordPath, BrazierPath, PoolPath); err != nil {
		return err
	}

	c := w.Center()
	s := w.Scene

	hero := s.NewObject("totem", TotemPath)
	hero.Category = scene.CategoryPlayer
	hero.CurrentAction = ActionSway
	hero.BodyHeight = 130
	hero.SetPosition(c)
	hero.SetBlendMeshLight(0.8)
	w.Hero = s.Add(hero)

	cloak := s.NewObject("cloak", CloakPath)
	cloak.LinkParentAnimation = true
	if err := w.attach(cloak, w.Hero); err != nil {
		return err
	}

	sword := s.NewObject("sword", SwordPath)
	sword.ParentBoneLink = boneBody
	sword.SetPosition(math.Vec3{X: 28, Z: 40})
	sword.SetAngle(math.Vec3{Y: math.ToRadians(-30)})
	if err := w.attach(sword, w.Hero); err != nil {
		return err
	}

	w.Fire = effects.NewFireLight(0, math.Vec3{Z: 30}, nil)
	brazier := s.NewObject("brazier", BrazierPath)
	brazier.AddBehavior(w.Fire)
	brazier.SetPosition(w.groundAt(c.X-250, c.Y))
	s.Add(brazier)

	w.Water = effects.NewWaterRipple(0)
	pool := s.NewObject("pool", PoolPath)
	pool.AddBehavior(w.Water)
	pool.SetPosition(w.groundAt(c.X+300, c.Y+100))
	s.Add(pool)

	guard := s.NewObject("guard", TotemPath)
	guard.Category = scene.CategoryMonster
	guard.CurrentAction = ActionHop
	guard.SetPosition(w.groundAt(c.X, c.Y+300))
	guard.SetAngle(math.Vec3{Z: math.ToRadians(180)})
	s.Add(guard)

	var errs []error
	s.Each(func(_ scene.Handle, o *scene.ModelObject) {
		if err := o.Load(ctx); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// attach adds o to the scene under parent.
func (w *World) attach(o *scene.ModelObject, parent scene.Handle) error {
	h := w.Scene.Add(o)
	if err := w.Scene.SetParent(h, parent); err != nil {
		return fmt.Errorf("attaching %s: %w", o.Name, err)
	}
	return nil
}

// HeroObject resolves the hero handle.
func (w *World) HeroObject() (*scene.ModelObject, bool) {
	return w.Scene.Get(w.Hero)
}

// NextAction advances the hero to its next action.
func (w *World) NextAction() {
	hero, ok := w.HeroObject()
	if !ok || hero.Model == nil || len(hero.Model.Actions) == 0 {
		return
	}
	hero.CurrentAction = (hero.CurrentAction + 1) % len(hero.Model.Actions)
	w.log.Debug("hero action", zap.Int("action", hero.CurrentAction))
}

// Close releases the scene, textures and cached files.
func (w *World) Close() {
	if w.Scene != nil {
		w.Scene.Close()
	}
	if w.Textures != nil {
		w.Textures.Release()
	}
	if w.Assets != nil {
		w.Assets.Close()
	}
}

// Handle applies a scene command. It reports whether the command was one.
func (w *World) Handle(cmd input.Command) bool {
	cfg := w.Scene.Config()
	switch cmd {
	case input.CommandToggleShadows:
		cfg.Shadows = !cfg.Shadows
	case input.CommandToggleHighlight:
		cfg.Highlight = !cfg.Highlight
	case input.CommandToggleBlendOrder:
		if cfg.BlendOrder == scene.BlendOrderNone {
			cfg.BlendOrder = scene.BlendOrderBackToFront
		} else {
			cfg.BlendOrder = scene.BlendOrderNone
		}
	case input.CommandNextAction:
		w.NextAction()
		return true
	default:
		return false
	}
	w.Scene.SetConfig(cfg)
	w.log.Debug("scene options",
		zap.Bool("shadows", cfg.Shadows),
		zap.Bool("highlight", cfg.Highlight),
		zap.Int("blend_order", int(cfg.BlendOrder)))
	return true
}

// Hover marks the object under the ray, if any, as hovered and clears the
// flag on every other object. It returns the hovered handle.
func (w *World) Hover(r picking.Ray) scene.Handle {
	hit, _ := picking.Pick(w.Scene, r)
	w.Scene.Each(func(h scene.Handle, o *scene.ModelObject) {
		o.MouseHover = h == hit
	})
	return hit
}
