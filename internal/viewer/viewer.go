// Package viewer runs the model viewer: window, frame loop and the built-in
// scene of animated models on a terrain.
package viewer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/mu-client/internal/config"
	"github.com/Faultbox/mu-client/internal/engine/camera"
	"github.com/Faultbox/mu-client/internal/engine/debug"
	"github.com/Faultbox/mu-client/internal/engine/input"
	"github.com/Faultbox/mu-client/internal/engine/picking"
	"github.com/Faultbox/mu-client/internal/engine/renderer"
	"github.com/Faultbox/mu-client/internal/engine/scene"
	"github.com/Faultbox/mu-client/internal/engine/window"
	"github.com/Faultbox/mu-client/internal/logger"
	"github.com/Faultbox/mu-client/pkg/math"
)

const (
	title         = "MU Model Viewer"
	screenshotDir = "screenshots"
)

// Viewer is the main viewer instance.
type Viewer struct {
	cfg      *config.Config
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	world    *World
	shots    *debug.Screenshots
	capture  bool
	log      *zap.Logger
}

// New creates the window and loads the scene.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg: cfg,
		log: logger.Named("viewer"),
	}
	v.log.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.String("data", cfg.Data.DataDir))

	// Create window (this also creates OpenGL context)
	var err error
	v.window, err = window.New(title, cfg.Graphics)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	w, h := v.window.Size()
	v.renderer, err = renderer.New(renderer.Config{
		Width:      w,
		Height:     h,
		ClearColor: math.Vec3{X: 0.25, Y: 0.3, Z: 0.4},
	})
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.world, err = NewWorld(context.Background(), cfg, v.renderer.Device())
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to load scene: %w", err)
	}

	v.shots = debug.NewScreenshots(screenshotDir, "modelviewer")
	v.input = input.New(input.DefaultBindings())
	v.camera = camera.NewOrbitCamera()
	v.camera.Spin = 0.2
	if hero, ok := v.world.HeroObject(); ok {
		b := hero.Bounds()
		b.Min = b.Min.Add(hero.Position())
		b.Max = b.Max.Add(hero.Position())
		v.camera.FitToBounds(b)
	}

	v.log.Info("viewer initialized", zap.Int("objects", v.world.Scene.Len()))
	return v, nil
}

// Run starts the frame loop and returns when the window is closed.
func (v *Viewer) Run() error {
	v.running = true

	start := time.Now()
	last := start
	frameCount := 0
	fpsTimer := start

	var frameBudget time.Duration
	if v.cfg.Graphics.FPSLimit > 0 {
		frameBudget = time.Second / time.Duration(v.cfg.Graphics.FPSLimit)
	}

	v.log.Info("starting frame loop")

	for v.running {
		now := time.Now()
		ft := scene.FrameTime{Total: now.Sub(start), Elapsed: now.Sub(last)}
		last = now

		// 1. Process input
		if v.input.Update() {
			v.running = false
			break
		}
		for _, ev := range v.input.Events() {
			v.handle(ev)
		}

		// 2. Update
		v.camera.Update(ft)
		v.world.Scene.Update(ft)
		w, h := v.renderer.Size()
		v.camera.Apply(v.world.Scene, w, h)

		// 3. Render
		v.renderer.Begin()
		v.world.Scene.Draw()
		v.renderer.End()
		if v.capture {
			v.capture = false
			v.screenshot()
		}

		// 4. Present
		v.window.SwapBuffers()

		if frameBudget > 0 {
			if spent := time.Since(now); spent < frameBudget {
				time.Sleep(frameBudget - spent)
			}
		}

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.Duration("dt", ft.Elapsed))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handle(ev input.Event) {
	switch ev.Command {
	case input.CommandResize:
		v.renderer.Resize(ev.Width, ev.Height)
	case input.CommandZoom:
		v.camera.HandleZoom(ev.Delta)
	case input.CommandPitch:
		v.camera.HandlePitch(ev.Delta)
	case input.CommandPoint:
		w, h := v.renderer.Size()
		if r, ok := picking.ScreenToRay(ev.X, ev.Y, w, h, v.camera.ViewMatrix(), v.camera.ProjectionMatrix(w, h)); ok {
			v.world.Hover(r)
		}
	case input.CommandScreenshot:
		v.capture = true
	case input.CommandSaveConfig:
		v.cfg.Render = renderConfig(v.world.Scene.Config(), v.cfg.Render)
		if err := v.cfg.Save(); err != nil {
			v.log.Warn("saving config", zap.Error(err))
		} else {
			v.log.Info("config saved")
		}
	default:
		v.world.Handle(ev.Command)
	}
}

func (v *Viewer) screenshot() {
	img, err := debug.FromPixels(v.renderer.ReadPixels())
	if err != nil {
		v.log.Warn("capturing frame", zap.Error(err))
		return
	}
	name, err := v.shots.Save(img)
	if err != nil {
		v.log.Warn("saving screenshot", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("file", name))
}

// Close releases the scene, renderer and window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.world != nil {
		v.world.Close()
		v.world = nil
	}
	if v.renderer != nil {
		v.renderer.Close()
		v.renderer = nil
	}
	if v.window != nil {
		v.window.Close()
		v.window = nil
	}
}
