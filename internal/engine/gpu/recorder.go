package gpu

import (
	"fmt"
	"image"
	"slices"

	"github.com/Faultbox/mu-client/pkg/math"
)

// Op identifies a recorded device call.
type Op int

const (
	OpSetBlend Op = iota
	OpSetDepth
	OpCreateBuffers
	OpCreateTexture
	OpApplyEffect
	OpDraw
)

// Call is one recorded device call. Draw calls capture the pipeline state and
// the last applied effect at the time of the draw.
type Call struct {
	Op         Op
	Blend      BlendState
	Depth      DepthState
	Effect     Effect
	Vertices   *MemVertexBuffer
	Indices    *MemIndexBuffer
	Primitives int
}

// MemVertexBuffer keeps uploaded vertices in memory.
type MemVertexBuffer struct {
	Data     []Vertex
	Released bool
}

func (b *MemVertexBuffer) VertexCount() int { return len(b.Data) }
func (b *MemVertexBuffer) Release() { b.Released = true }

// MemIndexBuffer keeps uploaded indices in memory.
type MemIndexBuffer struct {
	Data     []uint32
	Released bool
}

func (b *MemIndexBuffer) IndexCount() int { return len(b.Data) }
func (b *MemIndexBuffer) Release() { b.Released = true }

// MemTexture records an uploaded image's size.
type MemTexture struct {
	W, H     int
	Released bool
}

func (t *MemTexture) Width() int { return t.W }
func (t *MemTexture) Height() int { return t.H }
func (t *MemTexture) Release() { t.Released = true }

var _ Device = (*Recorder)(nil)

// Recorder is an in-memory Device that records every call. It backs the
// renderer tests and headless runs.
type Recorder struct {
	Calls []Call

	// FailBuffers, when set, is returned by CreateMeshBuffers.
	FailBuffers error
	// FailDraw, when set, is returned by DrawIndexedTriangles.
	FailDraw error

	blend   BlendState
	depth   DepthState
	applied Effect
	vb      *MemVertexBuffer
	ib      *MemIndexBuffer
}

// NewRecorder returns a recorder in the default pipeline state.
func NewRecorder() *Recorder {
	return &Recorder{blend: BlendOpaque, depth: DepthDefault}
}

func (r *Recorder) BlendState() BlendState { return r.blend }
func (r *Recorder) DepthState() DepthState { return r.depth }

func (r *Recorder) SetBlendState(s BlendState) {
	r.blend = s
	r.Calls = append(r.Calls, Call{Op: OpSetBlend, Blend: s, Depth: r.depth})
}

func (r *Recorder) SetDepthState(s DepthState) {
	r.depth = s
	r.Calls = append(r.Calls, Call{Op: OpSetDepth, Blend: r.blend, Depth: s})
}

func (r *Recorder) CreateMeshBuffers(vertices []Vertex, indices []uint32) (VertexBuffer, IndexBuffer, error) {
	if r.FailBuffers != nil {
		return nil, nil, r.FailBuffers
	}
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, nil, ErrEmptyMesh
	}
	vb := &MemVertexBuffer{Data: slices.Clone(vertices)}
	ib := &MemIndexBuffer{Data: slices.Clone(indices)}
	r.Calls = append(r.Calls, Call{Op: OpCreateBuffers, Vertices: vb, Indices: ib})
	return vb, ib, nil
}

func (r *Recorder) CreateTexture(img image.Image) (Texture, error) {
	b := img.Bounds()
	r.Calls = append(r.Calls, Call{Op: OpCreateTexture})
	return &MemTexture{W: b.Dx(), H: b.Dy()}, nil
}

func (r *Recorder) ApplyEffect(e *Effect) error {
	r.applied = *e
	r.Calls = append(r.Calls, Call{Op: OpApplyEffect, Blend: r.blend, Depth: r.depth, Effect: *e})
	return nil
}

func (r *Recorder) SetVertexBuffer(vb VertexBuffer) {
	r.vb, _ = vb.(*MemVertexBuffer)
}

func (r *Recorder) SetIndexBuffer(ib IndexBuffer) {
	r.ib, _ = ib.(*MemIndexBuffer)
}

func (r *Recorder) DrawIndexedTriangles(primitiveCount int) error {
	if r.vb == nil || r.ib == nil {
		return ErrNilBuffer
	}
	if r.FailDraw != nil {
		return r.FailDraw
	}
	if primitiveCount*3 > len(r.ib.Data) {
		return fmt.Errorf("draw of %d triangles exceeds %d indices", primitiveCount, len(r.ib.Data))
	}
	r.Calls = append(r.Calls, Call{
		Op:         OpDraw,
		Blend:      r.blend,
		Depth:      r.depth,
		Effect:     r.applied,
		Vertices:   r.vb,
		Indices:    r.ib,
		Primitives: primitiveCount,
	})
	return nil
}

// Draws returns the recorded draw calls in order.
func (r *Recorder) Draws() []Call {
	var draws []Call
	for _, c := range r.Calls {
		if c.Op == OpDraw {
			draws = append(draws, c)
		}
	}
	return draws
}

// Count returns how many calls of op were recorded.
func (r *Recorder) Count(op Op) int {
	n := 0
	for _, c := range r.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset clears recorded calls and unbinds buffers, keeping pipeline state.
func (r *Recorder) Reset() {
	r.Calls = r.Calls[:0]
	r.vb, r.ib = nil, nil
	r.applied = Effect{World: math.Identity()}
}
