package terrain

import (
	"fmt"
	"image"
	"image/color"
	stdmath "math"

	"github.com/Faultbox/mu-client/pkg/math"
)

// NewHeightmap creates a flat, fully lit grid.
func NewHeightmap(width, height int, tileSize float32) *Heightmap {
	h := &Heightmap{
		Width:    width,
		Rows:     height,
		TileSize: tileSize,
		Heights:  make([]float32, width*height),
		Lights:   make([]math.Vec3, width*height),
	}
	for i := range h.Lights {
		h.Lights[i] = math.Splat(1)
	}
	return h
}

// FromImages builds a heightmap from a grayscale height image and an optional
// RGB light image of the same size. Heights are gray levels times heightScale.
func FromImages(heights, lights image.Image, tileSize, heightScale float32) (*Heightmap, error) {
	b := heights.Bounds()
	if b.Empty() {
		return nil, ErrNoData
	}
	if lights != nil && lights.Bounds().Size() != b.Size() {
		return nil, fmt.Errorf("light image %v does not match height image %v", lights.Bounds().Size(), b.Size())
	}

	h := NewHeightmap(b.Dx(), b.Dy(), tileSize)
	for y := 0; y < h.Rows; y++ {
		for x := 0; x < h.Width; x++ {
			g := color.GrayModel.Convert(heights.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			h.Heights[y*h.Width+x] = float32(g.Y) * heightScale

			if lights != nil {
				lb := lights.Bounds()
				r, gg, bb, _ := lights.At(lb.Min.X+x, lb.Min.Y+y).RGBA()
				h.Lights[y*h.Width+x] = math.Vec3{
					X: float32(r) / 0xffff,
					Y: float32(gg) / 0xffff,
					Z: float32(bb) / 0xffff,
				}
			}
		}
	}
	return h, nil
}

// SetHeight sets the sample at grid cell (x, y). Out of range cells are ignored.
func (h *Heightmap) SetHeight(x, y int, v float32) {
	if x >= 0 && y >= 0 && x < h.Width && y < h.Rows {
		h.Heights[y*h.Width+x] = v
	}
}

// SetLight sets the light sample at grid cell (x, y).
func (h *Heightmap) SetLight(x, y int, c math.Vec3) {
	if x >= 0 && y >= 0 && x < h.Width && y < h.Rows {
		h.Lights[y*h.Width+x] = c
	}
}

// Height returns the bilinearly interpolated height at a world position.
// Positions outside the grid clamp to the border.
func (h *Heightmap) Height(x, y float32) (float32, error) {
	if len(h.Heights) == 0 || h.Width == 0 || h.Rows == 0 {
		return 0, ErrNoData
	}
	if !finite(x) || !finite(y) {
		return 0, fmt.Errorf("height at (%v, %v): %w", x, y, ErrBadCoordinate)
	}

	x0, y0, x1, y1, fx, fy := h.cell(x, y)
	south := h.Heights[y0*h.Width+x0]*(1-fx) + h.Heights[y0*h.Width+x1]*fx
	north := h.Heights[y1*h.Width+x0]*(1-fx) + h.Heights[y1*h.Width+x1]*fx
	return south*(1-fy) + north*fy, nil
}

// Light returns the bilinearly interpolated light at a world position, or
// white when the grid has no light data.
func (h *Heightmap) Light(x, y float32) math.Vec3 {
	if len(h.Lights) == 0 || h.Width == 0 || h.Rows == 0 || !finite(x) || !finite(y) {
		return math.Splat(1)
	}

	x0, y0, x1, y1, fx, fy := h.cell(x, y)
	south := h.Lights[y0*h.Width+x0].Lerp(h.Lights[y0*h.Width+x1], fx)
	north := h.Lights[y1*h.Width+x0].Lerp(h.Lights[y1*h.Width+x1], fx)
	return south.Lerp(north, fy)
}

// cell returns the four surrounding samples and the fractional position
// within them, clamped to the grid.
func (h *Heightmap) cell(x, y float32) (x0, y0, x1, y1 int, fx, fy float32) {
	gx := clampf(x/h.TileSize, 0, float32(h.Width-1))
	gy := clampf(y/h.TileSize, 0, float32(h.Rows-1))

	x0, y0 = int(gx), int(gy)
	x1, y1 = min(x0+1, h.Width-1), min(y0+1, h.Rows-1)
	return x0, y0, x1, y1, gx - float32(x0), gy - float32(y0)
}

// Height returns the plane height.
func (f Flat) Height(x, y float32) (float32, error) {
	if !finite(x) || !finite(y) {
		return 0, fmt.Errorf("height at (%v, %v): %w", x, y, ErrBadCoordinate)
	}
	return f.Z, nil
}

// Light returns the plane light.
func (f Flat) Light(x, y float32) math.Vec3 {
	return f.Color
}

func finite(v float32) bool {
	return !stdmath.IsNaN(float64(v)) && !stdmath.IsInf(float64(v), 0)
}

func clampf(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
