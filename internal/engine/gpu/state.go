package gpu

// PushBlend sets the blend state and returns a function restoring the
// previous one.
//
//	defer gpu.PushBlend(dev, gpu.BlendAdditive)()
func PushBlend(d Device, s BlendState) func() {
	prev := d.BlendState()
	d.SetBlendState(s)
	return func() { d.SetBlendState(prev) }
}

// PushDepth sets the depth state and returns a function restoring the
// previous one.
func PushDepth(d Device, s DepthState) func() {
	prev := d.DepthState()
	d.SetDepthState(s)
	return func() { d.SetDepthState(prev) }
}

// SaveState snapshots blend and depth state and returns a function restoring
// both.
func SaveState(d Device) func() {
	blend, depth := d.BlendState(), d.DepthState()
	return func() {
		d.SetBlendState(blend)
		d.SetDepthState(depth)
	}
}
