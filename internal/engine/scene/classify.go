package scene

// IsHiddenMesh reports whether mesh i is excluded from every pass: selected
// by HiddenMesh, all meshes hidden, or hidden by its texture script.
func (o *ModelObject) IsHiddenMesh(i int) bool {
	if i < 0 || i >= len(o.meshes) {
		return false
	}
	return o.HiddenMesh == i || o.HiddenMesh == AllMeshes || o.script(i).Hidden
}

// IsBlendMesh reports whether mesh i draws with BlendMeshState and the blend
// mesh light: selected by BlendMesh, all meshes blended, or bright by its
// texture script.
func (o *ModelObject) IsBlendMesh(i int) bool {
	if i < 0 || i >= len(o.meshes) {
		return false
	}
	return o.BlendMesh == i || o.BlendMesh == AllMeshes || o.script(i).Bright
}
