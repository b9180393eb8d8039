package scene

import "github.com/taigrr/duskraster/pkg/math3d"

// MaxLights bounds the per-vertex lightClipOverW array so Vertex stays a
// plain value type instead of carrying a heap-allocated slice per vertex.
const MaxLights = 8

// Vertex carries both the mesh-authored attributes and the fields a vertex
// only gains once it enters the clipping stage. The perspective-prepared
// fields (InvW, WorldPosOverW, NormalOverW, UVOverW, LightClipOverW) are
// valid only after PrepareForClip has been called; readers that need them
// before that point are holding a bug, not a degenerate case.
type Vertex struct {
	// Authored attributes.
	World  math3d.Vec3 // world-space position (w=1 implicit)
	Clip   math3d.Vec4 // clip-space position
	Normal math3d.Vec3
	UV     math3d.Vec2
	Color  Color

	// Perspective-prepared attributes, valid after PrepareForClip.
	InvW           float64
	WorldPosOverW  math3d.Vec3
	NormalOverW    math3d.Vec3
	UVOverW        math3d.Vec2
	LightClipOverW [MaxLights]math3d.Vec4
	NumLights      int
}

// PrepareForClip computes InvW and the *OverW fields from the vertex's
// current Clip.W. It must be called once right after a vertex is produced
// (either by the geometry pipeline or by the clipper's Lerp) and before it
// is used for interpolation.
func (v *Vertex) PrepareForClip(lightClip [MaxLights]math3d.Vec4, numLights int) {
	invW := 1.0
	if v.Clip.W != 0 {
		invW = 1.0 / v.Clip.W
	}
	v.InvW = invW
	v.WorldPosOverW = v.World.Scale(invW)
	v.NormalOverW = v.Normal.Scale(invW)
	v.UVOverW = v.UV.Scale(invW)
	v.NumLights = numLights
	for i := range numLights {
		v.LightClipOverW[i] = lightClip[i].Scale(invW)
	}
}

// Lerp linearly interpolates every authored attribute between a and b by t,
// then recomputes the perspective-prepared fields from the new Clip.W. This
// is the vertex-level primitive the clipper uses to synthesize new vertices
// at plane intersections.
func (a Vertex) Lerp(b Vertex, t float64) Vertex {
	out := Vertex{
		World:  a.World.Lerp(b.World, t),
		Clip:   a.Clip.Lerp(b.Clip, t),
		Normal: a.Normal.Lerp(b.Normal, t),
		UV:     a.UV.Lerp(b.UV, t),
		Color:  lerpColor(a.Color, b.Color, t),
	}

	var lightClip [MaxLights]math3d.Vec4
	n := a.NumLights
	if b.NumLights > n {
		n = b.NumLights
	}
	for i := range n {
		var la, lb math3d.Vec4
		if i < a.NumLights {
			la = a.LightClipOverW[i].Scale(1 / nonZero(a.InvW))
		}
		if i < b.NumLights {
			lb = b.LightClipOverW[i].Scale(1 / nonZero(b.InvW))
		}
		lightClip[i] = la.Lerp(lb, t)
	}
	out.PrepareForClip(lightClip, n)
	return out
}

func nonZero(f float64) float64 {
	if f == 0 {
		return 1
	}
	return f
}
