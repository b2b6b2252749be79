package gldevice

import "github.com/go-gl/gl/v4.1-core/gl"

type vertexBuffer struct {
	vao   uint32
	vbo   uint32
	count int
}

func (b *vertexBuffer) VertexCount() int { return b.count }

func (b *vertexBuffer) Release() {
	if b.vbo != 0 {
		gl.DeleteBuffers(1, &b.vbo)
		b.vbo = 0
	}
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		b.vao = 0
	}
}

type indexBuffer struct {
	ebo   uint32
	count int
}

func (b *indexBuffer) IndexCount() int { return b.count }

func (b *indexBuffer) Release() {
	if b.ebo != 0 {
		gl.DeleteBuffers(1, &b.ebo)
		b.ebo = 0
	}
}

type texture struct {
	id   uint32
	w, h int
}

func (t *texture) Width() int { return t.w }
func (t *texture) Height() int { return t.h }

func (t *texture) Release() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}
