package model

import (
	"fmt"
	stdmath "math"

	"github.com/tiendc/go-deepcopy"

	"github.com/Faultbox/mu-client/pkg/math"
)

// Clone returns a deep copy of the mesh that shares no slices with m.
// Effects that deform geometry per instance write into a clone so the shared
// asset stays untouched.
func (m *Mesh) Clone() (*Mesh, error) {
	var out Mesh
	if err := deepcopy.Copy(&out, m); err != nil {
		return nil, fmt.Errorf("cloning mesh %q: %w", m.TexturePath, err)
	}
	return &out, nil
}

// IndexCount returns the number of triangle-list indices the mesh expands to.
func (m *Mesh) IndexCount() int {
	n := 0
	for i := range m.Triangles {
		if m.Triangles[i].Polygon == 4 {
			n += 6
		} else {
			n += 3
		}
	}
	return n
}

// EmptyBounds returns an inverted box that any Extend call replaces.
func EmptyBounds() Bounds {
	return Bounds{
		Min: math.Splat(stdmath.MaxFloat32),
		Max: math.Splat(-stdmath.MaxFloat32),
	}
}

// IsEmpty reports whether no point was ever added.
func (b Bounds) IsEmpty() bool {
	return b.Min.X > b.Max.X
}

// Extend grows the box to contain p.
func (b *Bounds) Extend(p math.Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Center returns the middle of the box.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}
