package texture

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// Script holds the flags a texture script assigns to every mesh using the
// texture.
type Script struct {
	Hidden bool `yaml:"hidden"`
	Bright bool `yaml:"bright"`
}

// Scripts maps texture file names (lower case, no directory) to flags.
type Scripts map[string]Script

// LoadScripts reads a YAML manifest of the form
//
//	textures:
//	  fire01.jpg: {bright: true}
//	  shadow_plane.tga: {hidden: true}
func LoadScripts(file string) (Scripts, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading texture scripts: %w", err)
	}
	return ParseScripts(data)
}

// ParseScripts decodes a texture script manifest.
func ParseScripts(data []byte) (Scripts, error) {
	var doc struct {
		Textures map[string]Script `yaml:"textures"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing texture scripts: %w", err)
	}

	scripts := make(Scripts, len(doc.Textures))
	for name, s := range doc.Textures {
		scripts[path.Base(normalize(name))] = s
	}
	return scripts, nil
}

// Lookup returns the flags for a texture path.
func (s Scripts) Lookup(texturePath string) Script {
	return s[path.Base(normalize(texturePath))]
}
