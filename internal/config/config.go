// Package config handles viewer and renderer configuration.
package config

import "fmt"

// Blend mesh ordering modes accepted by RenderConfig.BlendSort.
const (
	BlendSortNone        = "none"
	BlendSortBackToFront = "back_to_front"
)

// Config holds all client settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Render   RenderConfig   `yaml:"render"`
	Data     DataConfig     `yaml:"data"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DataConfig holds asset locations.
type DataConfig struct {
	DataDir        string `yaml:"data_dir"`        // Root of the client Data folder
	TextureScripts string `yaml:"texture_scripts"` // YAML manifest with per-texture hidden/bright flags
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"`
}

// RenderConfig holds model rendering settings.
type RenderConfig struct {
	Shadows        bool       `yaml:"shadows"`
	Highlight      bool       `yaml:"highlight"`
	AnimationSpeed float32    `yaml:"animation_speed"` // Keyframes per second
	AmbientLight   [3]float32 `yaml:"ambient_light"`
	BlendSort      string     `yaml:"blend_sort"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
		},
		Render: RenderConfig{
			Shadows:        true,
			Highlight:      true,
			AnimationSpeed: 4.0,
			AmbientLight:   [3]float32{1, 1, 1},
			BlendSort:      BlendSortNone,
		},
		Data: DataConfig{
			DataDir:        "Data",
			TextureScripts: "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that cannot be used as loaded.
func (c *Config) Validate() error {
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Graphics.Width, c.Graphics.Height)
	}
	if c.Render.AnimationSpeed < 0 {
		return fmt.Errorf("animation_speed must not be negative, got %v", c.Render.AnimationSpeed)
	}
	switch c.Render.BlendSort {
	case BlendSortNone, BlendSortBackToFront:
	default:
		return fmt.Errorf("unknown blend_sort %q", c.Render.BlendSort)
	}
	return nil
}
