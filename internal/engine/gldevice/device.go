// Package gldevice implements gpu.Device on OpenGL 4.1 core.
package gldevice

import (
	"fmt"
	"image"
	"image/draw"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/engine/shader"
	"github.com/Faultbox/mu-client/internal/logger"
)

var _ gpu.Device = (*Device)(nil)

// Device draws through the current OpenGL context. It must be created and
// used on the thread owning that context.
type Device struct {
	program uint32

	locWorld       int32
	locView        int32
	locProjection  int32
	locTexture     int32
	locDiffuse     int32
	locAlpha       int32
	locAlphaCutoff int32

	blend gpu.BlendState
	depth gpu.DepthState

	vb *vertexBuffer
	ib *indexBuffer

	// Bound when an effect has no texture.
	white uint32
}

// New compiles the effect program and puts the context in the default
// pipeline state.
func New() (*Device, error) {
	program, err := shader.CompileProgram(effectVertexShader, effectFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("effect shader: %w", err)
	}

	locs, err := shader.Locate(program,
		"uWorld", "uView", "uProjection", "uTexture", "uDiffuse", "uAlpha", "uAlphaCutoff")
	if err != nil {
		gl.DeleteProgram(program)
		return nil, fmt.Errorf("effect shader: %w", err)
	}

	d := &Device{
		program:        program,
		locWorld:       locs[0],
		locView:        locs[1],
		locProjection:  locs[2],
		locTexture:     locs[3],
		locDiffuse:     locs[4],
		locAlpha:       locs[5],
		locAlphaCutoff: locs[6],
	}

	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	white.Pix = []uint8{255, 255, 255, 255}
	d.white = uploadRGBA(white)

	d.SetBlendState(gpu.BlendOpaque)
	d.SetDepthState(gpu.DepthDefault)

	logger.Named("gldevice").Debug("device ready", zap.Uint32("program", program))
	return d, nil
}

// BlendState returns the current blend state.
func (d *Device) BlendState() gpu.BlendState { return d.blend }

// DepthState returns the current depth state.
func (d *Device) DepthState() gpu.DepthState { return d.depth }

// SetBlendState configures fixed-function blending.
func (d *Device) SetBlendState(s gpu.BlendState) {
	d.blend = s
	switch s {
	case gpu.BlendOpaque:
		gl.Disable(gl.BLEND)
	case gpu.BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	case gpu.BlendShadow:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ZERO, gl.ONE_MINUS_SRC_ALPHA)
	default: // alpha, non-premultiplied
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	}
}

// SetDepthState configures depth testing and writes.
func (d *Device) SetDepthState(s gpu.DepthState) {
	d.depth = s
	switch s {
	case gpu.DepthNone:
		gl.Disable(gl.DEPTH_TEST)
		gl.DepthMask(false)
	case gpu.DepthRead:
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LESS)
		gl.DepthMask(false)
	case gpu.DepthLessEqual:
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
		gl.DepthMask(true)
	default:
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LESS)
		gl.DepthMask(true)
	}
}

// ApplyEffect binds the effect program and uploads its parameters.
func (d *Device) ApplyEffect(e *gpu.Effect) error {
	gl.UseProgram(d.program)

	gl.UniformMatrix4fv(d.locWorld, 1, false, e.World.Ptr())
	gl.UniformMatrix4fv(d.locView, 1, false, e.View.Ptr())
	gl.UniformMatrix4fv(d.locProjection, 1, false, e.Projection.Ptr())
	gl.Uniform3f(d.locDiffuse, e.DiffuseColor.X, e.DiffuseColor.Y, e.DiffuseColor.Z)
	gl.Uniform1f(d.locAlpha, e.Alpha)
	gl.Uniform1f(d.locAlphaCutoff, e.AlphaCutoff)

	texID := d.white
	if e.Texture != nil {
		tex, ok := e.Texture.(*texture)
		if !ok {
			return fmt.Errorf("texture %T was not created by this device", e.Texture)
		}
		texID = tex.id
	}
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, texID)
	gl.Uniform1i(d.locTexture, 0)

	return nil
}

// SetVertexBuffer binds vertex storage for the next draw.
func (d *Device) SetVertexBuffer(vb gpu.VertexBuffer) {
	d.vb, _ = vb.(*vertexBuffer)
}

// SetIndexBuffer binds index storage for the next draw.
func (d *Device) SetIndexBuffer(ib gpu.IndexBuffer) {
	d.ib, _ = ib.(*indexBuffer)
}

// DrawIndexedTriangles draws a triangle list from the bound buffers.
func (d *Device) DrawIndexedTriangles(primitiveCount int) error {
	if d.vb == nil || d.ib == nil || d.vb.vao == 0 || d.ib.ebo == 0 {
		return gpu.ErrNilBuffer
	}
	if primitiveCount*3 > d.ib.count {
		return fmt.Errorf("draw of %d triangles exceeds %d indices", primitiveCount, d.ib.count)
	}

	gl.BindVertexArray(d.vb.vao)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, d.ib.ebo)
	gl.DrawElements(gl.TRIANGLES, int32(primitiveCount*3), gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%x", code)
	}
	return nil
}

// CreateMeshBuffers uploads a skinned triangle list.
func (d *Device) CreateMeshBuffers(vertices []gpu.Vertex, indices []uint32) (gpu.VertexBuffer, gpu.IndexBuffer, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, nil, gpu.ErrEmptyMesh
	}

	vb := &vertexBuffer{count: len(vertices)}
	gl.GenVertexArrays(1, &vb.vao)
	gl.BindVertexArray(vb.vao)

	gl.GenBuffers(1, &vb.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vb.vbo)
	vertexSize := int(unsafe.Sizeof(gpu.Vertex{}))
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*vertexSize, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	// Position
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, int32(vertexSize), 0)
	gl.EnableVertexAttribArray(0)
	// Color
	gl.VertexAttribPointerWithOffset(1, 4, gl.UNSIGNED_BYTE, true, int32(vertexSize), 3*4)
	gl.EnableVertexAttribArray(1)
	// TexCoord
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, int32(vertexSize), 4*4)
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)

	ib := &indexBuffer{count: len(indices)}
	gl.GenBuffers(1, &ib.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)

	return vb, ib, nil
}

// CreateTexture uploads an image with mipmaps and repeat wrapping.
func (d *Device) CreateTexture(img image.Image) (gpu.Texture, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	return &texture{id: uploadRGBA(rgba), w: b.Dx(), h: b.Dy()}, nil
}

// Destroy releases the effect program.
func (d *Device) Destroy() {
	if d.white != 0 {
		gl.DeleteTextures(1, &d.white)
		d.white = 0
	}
	if d.program != 0 {
		gl.DeleteProgram(d.program)
		d.program = 0
	}
}

func uploadRGBA(img *image.RGBA) uint32 {
	var texID uint32
	gl.GenTextures(1, &texID)
	gl.BindTexture(gl.TEXTURE_2D, texID)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(img.Bounds().Dx()), int32(img.Bounds().Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	return texID
}
