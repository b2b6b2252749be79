// Package texture decodes model textures, uploads them to the graphics device
// and serves the per-texture script flags.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
)

// ErrUnsupported is returned for texture files with an unknown extension.
var ErrUnsupported = errors.New("unsupported texture format")

// Container header sizes in front of the embedded JPEG / TGA stream.
const (
	ozjHeaderSize = 24
	oztHeaderSize = 4
)

// Decode decodes texture file contents. The extension of name selects the
// container: OZJ and OZT wrap JPEG and TGA data behind a short header, other
// files are plain images.
func Decode(name string, data []byte) (image.Image, error) {
	var decode func(io.Reader) (image.Image, error)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".ozj":
		if len(data) <= ozjHeaderSize {
			return nil, fmt.Errorf("%s: OZJ too short", name)
		}
		data, decode = data[ozjHeaderSize:], jpeg.Decode
	case ".ozt":
		if len(data) <= oztHeaderSize {
			return nil, fmt.Errorf("%s: OZT too short", name)
		}
		data, decode = data[oztHeaderSize:], tga.Decode
	case ".jpg", ".jpeg":
		decode = jpeg.Decode
	case ".png":
		decode = png.Decode
	case ".tga":
		decode = tga.Decode
	case ".bmp":
		decode = bmp.Decode
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupported)
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return img, nil
}

// Components returns 4 for images with any translucent pixel and 3 otherwise.
// Meshes whose texture has 4 components are drawn in the after pass.
func Components(img image.Image) int {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		if o.Opaque() {
			return 3
		}
		return 4
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return 4
			}
		}
	}
	return 3
}

// normalize maps texture references to registry keys: forward slashes,
// lower case. Model files reference textures with either separator.
func normalize(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}
