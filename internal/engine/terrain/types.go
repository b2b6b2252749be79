// Package terrain samples ground height and baked light for model placement,
// lighting and shadow projection, and builds a ground mesh for display.
package terrain

import (
	"errors"

	"github.com/Faultbox/mu-client/pkg/math"
)

const (
	// DefaultTileSize is the world size of one grid cell.
	DefaultTileSize = 100
	// DefaultHeightScale converts 8-bit height samples to world units.
	DefaultHeightScale = 1.5
)

var (
	// ErrNoData is returned when sampling a heightmap without samples.
	ErrNoData = errors.New("terrain has no height data")

	// ErrBadCoordinate is returned for NaN or infinite sample positions.
	ErrBadCoordinate = errors.New("invalid terrain coordinate")
)

// Heightmap is a regular grid of height and light samples. Sample (x, y)
// sits at world position (x*TileSize, y*TileSize).
type Heightmap struct {
	Width    int
	Rows     int
	TileSize float32
	Heights  []float32   // row-major, Width*Rows
	Lights   []math.Vec3 // row-major, Width*Rows
}

// Flat is a level ground plane with uniform light.
type Flat struct {
	Z     float32
	Color math.Vec3
}
