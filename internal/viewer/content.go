package viewer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	stdmath "math"
	"path"
	"strings"

	"github.com/ftrvxmtrx/tga"

	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/internal/engine/texture"
	"github.com/Faultbox/mu-client/pkg/math"
)

// Built-in content lives under this data directory so texture references
// resolve next to the models.
const contentDir = "Viewer"

// Paths of the built-in models.
var (
	TotemPath   = path.Join(contentDir, "Totem.bmd")
	CloakPath   = path.Join(contentDir, "Cloak.bmd")
	SwordPath   = path.Join(contentDir, "Sword.bmd")
	BrazierPath = path.Join(contentDir, "Brazier.bmd")
	PoolPath    = path.Join(contentDir, "Pool.bmd")
)

// Textures drawn outside any model.
var (
	groundTexture = path.Join(contentDir, "ground.png")
	flareTexture  = path.Join(contentDir, "flare.tga")
)

// Totem actions.
const (
	ActionIdle = iota
	ActionSway
	ActionHop
)

// Totem bones.
const (
	boneRoot = iota
	boneBody
	boneHead
)

// Models returns the built-in models by path.
func Models() map[string]*model.Model {
	return map[string]*model.Model{
		TotemPath:   totem(),
		CloakPath:   cloak(),
		SwordPath:   sword(),
		BrazierPath: brazier(),
		PoolPath:    pool(),
	}
}

// builtinScripts marks the glowing textures as blend meshes.
func builtinScripts() texture.Scripts {
	return texture.Scripts{
		"glow.png": {Bright: true},
		"coal.png": {Bright: true},
	}
}

func totemBones() []model.Bone {
	return []model.Bone{
		{Name: "root", Parent: model.NoParent},
		{Name: "body", Parent: boneRoot},
		{Name: "head", Parent: boneBody},
	}
}

func totem() *model.Model {
	bones := totemBones()
	id := math.QuatIdentity()

	rest := func(n int, p math.Vec3) *model.Track {
		tr := &model.Track{}
		for range n {
			tr.Positions = append(tr.Positions, p)
			tr.Rotations = append(tr.Rotations, id)
		}
		return tr
	}
	spin := func(axis math.Vec3, p math.Vec3, angles ...float32) *model.Track {
		tr := &model.Track{}
		for _, a := range angles {
			tr.Positions = append(tr.Positions, p)
			tr.Rotations = append(tr.Rotations, math.QuatFromAxisAngle(axis, a))
		}
		return tr
	}

	bodyAt := math.Vec3{Z: 10}
	headAt := math.Vec3{Z: 100}

	// idle
	bones[boneRoot].Tracks = append(bones[boneRoot].Tracks, rest(1, math.Vec3{}))
	bones[boneBody].Tracks = append(bones[boneBody].Tracks, rest(1, bodyAt))
	bones[boneHead].Tracks = append(bones[boneHead].Tracks, rest(1, headAt))

	// sway: body rocks, head turns
	bones[boneRoot].Tracks = append(bones[boneRoot].Tracks, rest(5, math.Vec3{}))
	bones[boneBody].Tracks = append(bones[boneBody].Tracks, spin(math.Vec3{X: 1}, bodyAt, 0, 0.15, 0, -0.15, 0))
	bones[boneHead].Tracks = append(bones[boneHead].Tracks, spin(math.Vec3{Z: 1}, headAt, 0, 0.6, 0, -0.6, 0))

	// hop: the root leaves the ground
	hop := rest(5, math.Vec3{})
	for i, z := range []float32{0, 25, 40, 25, 0} {
		hop.Positions[i].Z = z
	}
	bones[boneRoot].Tracks = append(bones[boneRoot].Tracks, hop)
	bones[boneBody].Tracks = append(bones[boneBody].Tracks, rest(5, bodyAt))
	bones[boneHead].Tracks = append(bones[boneHead].Tracks, rest(5, headAt))

	return &model.Model{
		Name:  "Totem",
		Bones: bones,
		Meshes: []model.Mesh{
			box(boneBody, math.Vec3{X: -20, Y: -20}, math.Vec3{X: 20, Y: 20, Z: 90}, "stone.png"),
			box(boneHead, math.Vec3{X: -15, Y: -15}, math.Vec3{X: 15, Y: 15, Z: 30}, "gem.tga"),
			grid(boneHead, 1, 90, 45, "glow.png"),
		},
		Actions: []model.Action{
			ActionIdle: {Keys: 1},
			ActionSway: {Keys: 5},
			ActionHop:  {Keys: 5, PlaySpeed: 1.5},
		},
	}
}

// cloak shares the totem's skeleton and is drawn with its pose.
func cloak() *model.Model {
	return &model.Model{
		Name:  "Cloak",
		Bones: totemBones(),
		Meshes: []model.Mesh{
			box(boneBody, math.Vec3{X: -22, Y: 20, Z: 10}, math.Vec3{X: 22, Y: 24, Z: 85}, "cloth.png"),
		},
	}
}

func sword() *model.Model {
	return &model.Model{
		Name:  "Sword",
		Bones: []model.Bone{{Name: "root", Parent: model.NoParent}},
		Meshes: []model.Mesh{
			box(0, math.Vec3{X: -2, Y: -1}, math.Vec3{X: 2, Y: 1, Z: 70}, "steel.png"),
			box(0, math.Vec3{X: -8, Y: -2, Z: -4}, math.Vec3{X: 8, Y: 2}, "steel.png"),
		},
	}
}

func brazier() *model.Model {
	return &model.Model{
		Name:  "Brazier",
		Bones: []model.Bone{{Name: "root", Parent: model.NoParent}},
		Meshes: []model.Mesh{
			grid(0, 2, 30, 41, "coal.png"),
			box(0, math.Vec3{X: -15, Y: -15}, math.Vec3{X: 15, Y: 15, Z: 40}, "stone.png"),
		},
	}
}

func pool() *model.Model {
	return &model.Model{
		Name:   "Pool",
		Bones:  []model.Bone{{Name: "root", Parent: model.NoParent}},
		Meshes: []model.Mesh{grid(0, 8, 200, 2, "water.png")},
	}
}

// box is an axis-aligned cuboid bound to one bone, one texture per face.
func box(bone int, lo, hi math.Vec3, tex string) model.Mesh {
	var m model.Mesh
	for i := range 8 {
		p := lo
		if i&1 != 0 {
			p.X = hi.X
		}
		if i&2 != 0 {
			p.Y = hi.Y
		}
		if i&4 != 0 {
			p.Z = hi.Z
		}
		m.Vertices = append(m.Vertices, model.Vertex{Bone: bone, Position: p})
	}
	m.TexCoords = [][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	faces := [6][4]int16{
		{0, 2, 3, 1}, // bottom
		{4, 5, 7, 6}, // top
		{0, 1, 5, 4}, // front
		{3, 2, 6, 7}, // back
		{2, 0, 4, 6}, // left
		{1, 3, 7, 5}, // right
	}
	for _, f := range faces {
		m.Triangles = append(m.Triangles, model.Triangle{
			Polygon:       4,
			VertexIndex:   f,
			TexCoordIndex: [4]int16{0, 1, 2, 3},
		})
	}
	m.TexturePath = tex
	return m
}

// grid is an n by n quad sheet of the given size centered on the bone, at
// height z.
func grid(bone, n int, size, z float32, tex string) model.Mesh {
	var m model.Mesh
	step := size / float32(n)
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			m.Vertices = append(m.Vertices, model.Vertex{
				Bone: bone,
				Position: math.Vec3{
					X: float32(x)*step - size/2,
					Y: float32(y)*step - size/2,
					Z: z,
				},
			})
			m.TexCoords = append(m.TexCoords, [2]float32{float32(x) / float32(n), float32(y) / float32(n)})
		}
	}

	row := int16(n + 1)
	for y := range int16(n) {
		for x := range int16(n) {
			i := y*row + x
			q := [4]int16{i, i + 1, i + row + 1, i + row}
			m.Triangles = append(m.Triangles, model.Triangle{
				Polygon:       4,
				VertexIndex:   q,
				TexCoordIndex: q,
			})
		}
	}
	m.TexturePath = tex
	return m
}

// builtinTextures renders the procedural textures, encoded as the files a
// data directory would hold.
func builtinTextures() (map[string][]byte, error) {
	const size = 64
	center := float32(size-1) / 2

	radial := func(x, y int) float32 {
		dx, dy := float32(x)-center, float32(y)-center
		d := float32(stdmath.Sqrt(float64(dx*dx+dy*dy))) / center
		return max(0, 1-d)
	}
	shade := func(c color.NRGBA, v float32) color.NRGBA {
		return color.NRGBA{
			R: uint8(float32(c.R) * v),
			G: uint8(float32(c.G) * v),
			B: uint8(float32(c.B) * v),
			A: c.A,
		}
	}

	paint := map[string]func(x, y int) color.NRGBA{
		"stone.png": func(x, y int) color.NRGBA {
			v := float32(0.75)
			if (x/8+y/8)%2 == 0 {
				v = 0.6
			}
			return shade(color.NRGBA{R: 190, G: 180, B: 160, A: 255}, v)
		},
		"gem.tga": func(x, y int) color.NRGBA {
			return color.NRGBA{R: 80, G: 220, B: 255, A: uint8(120 + 100*radial(x, y))}
		},
		"glow.png": func(x, y int) color.NRGBA {
			return shade(color.NRGBA{R: 120, G: 200, B: 255, A: 255}, radial(x, y))
		},
		"cloth.png": func(x, y int) color.NRGBA {
			if (y/6)%2 == 0 {
				return color.NRGBA{R: 150, G: 20, B: 30, A: 255}
			}
			return color.NRGBA{R: 110, G: 10, B: 20, A: 255}
		},
		"steel.png": func(x, y int) color.NRGBA {
			return shade(color.NRGBA{R: 220, G: 225, B: 235, A: 255}, 0.6+0.4*float32(x)/size)
		},
		"coal.png": func(x, y int) color.NRGBA {
			return shade(color.NRGBA{R: 255, G: 120, B: 30, A: 255}, radial(x, y))
		},
		"water.png": func(x, y int) color.NRGBA {
			v := 0.8 + 0.2*float32(stdmath.Sin(float64(y)*0.4))
			return shade(color.NRGBA{R: 60, G: 120, B: 200, A: 255}, v)
		},
		"ground.png": func(x, y int) color.NRGBA {
			v := float32(0.85)
			if (x/16+y/16)%2 == 0 {
				v = 1
			}
			return shade(color.NRGBA{R: 90, G: 140, B: 60, A: 255}, v)
		},
		"flare.tga": func(x, y int) color.NRGBA {
			a := radial(x, y)
			return color.NRGBA{R: 255, G: 255, B: 255, A: uint8(255 * a * a)}
		},
	}

	out := make(map[string][]byte, len(paint))
	for name, fn := range paint {
		img := image.NewNRGBA(image.Rect(0, 0, size, size))
		for y := range size {
			for x := range size {
				img.SetNRGBA(x, y, fn(x, y))
			}
		}

		var buf bytes.Buffer
		var err error
		if strings.HasSuffix(name, ".tga") {
			err = tga.Encode(&buf, img)
		} else {
			err = png.Encode(&buf, img)
		}
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}
		out[strings.ToLower(path.Join(contentDir, name))] = buf.Bytes()
	}
	return out, nil
}
