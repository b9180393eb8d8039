package raster

import (
	"sort"

	"github.com/taigrr/duskraster/pkg/math3d"
	"github.com/taigrr/duskraster/pkg/scene"
)

// textureBatch groups clipped, viewport-mapped triangles sharing one bound
// texture (nil standing for "no texture"), so the rasterizer rebinds the
// texture once per batch instead of once per triangle.
type textureBatch struct {
	texture *scene.Texture
	tris    []scene.Triangle
	opaque  bool
	avgZ    float64 // mean NDC depth (Clip.Z after the viewport transform) across the batch's triangles, for pass ordering
}

// prepareMesh runs one mesh through the geometry pipeline described in
// SPEC_FULL.md §4.1: model->world->clip transform, pre-clip attribute
// preparation (including every configured light's clip position), the
// homogeneous clipper, perspective divide, and viewport mapping. The
// returned triangles are already in screen space.
func prepareMesh(mesh *scene.Mesh, width, height int, worldToClip math3d.Mat4, lightsToClip []math3d.Mat4) []scene.Triangle {
	model := mesh.ModelMatrix()
	numLights := len(lightsToClip)
	if numLights > scene.MaxLights {
		numLights = scene.MaxLights
	}

	out := make([]scene.Triangle, 0, len(mesh.Faces))
	for _, face := range mesh.Faces {
		var tri scene.Triangle
		for i, vi := range face.V {
			tri.V[i] = preClipVertex(mesh.Vertices[vi], model, worldToClip, lightsToClip, numLights)
		}
		out = append(out, ClipTriangle(tri)...)
	}

	for i := range out {
		viewportTransform(&out[i], width, height)
	}
	return out
}

// preClipVertex transforms one authored mesh vertex into clip space and
// attaches the perspective-prepared fields every downstream stage
// (clipping, rasterization, shading) expects.
func preClipVertex(mv scene.MeshVertex, model, worldToClip math3d.Mat4, lightsToClip []math3d.Mat4, numLights int) scene.Vertex {
	world := model.MulVec3(mv.Position)
	normal := model.MulVec3Dir(mv.Normal).Normalize()
	clip := worldToClip.MulVec4(math3d.V4FromV3(world, 1))

	v := scene.Vertex{
		World:  world,
		Clip:   clip,
		Normal: normal,
		UV:     mv.UV,
		Color:  mv.Color,
	}

	var lightClip [scene.MaxLights]math3d.Vec4
	invW := 1.0
	if clip.W != 0 {
		invW = 1.0 / clip.W
	}
	for i := range numLights {
		lightClip[i] = lightsToClip[i].MulVec4(math3d.V4FromV3(world, 1)).Scale(invW)
	}
	v.PrepareForClip(lightClip, numLights)
	return v
}

// viewportTransform performs the perspective divide and viewport mapping of
// SPEC_FULL.md §4.1 steps 5-6 in place: x,y,z are divided by w (w set to 1),
// then mapped from NDC to pixel coordinates with y flipped.
func viewportTransform(tri *scene.Triangle, width, height int) {
	for i := range tri.V {
		v := &tri.V[i]
		invW := v.InvW
		ndcX := v.Clip.X * invW
		ndcY := v.Clip.Y * invW
		ndcZ := v.Clip.Z * invW
		v.Clip.X = (ndcX + 1) * 0.5 * float64(width)
		v.Clip.Y = (1 - ndcY) * 0.5 * float64(height)
		v.Clip.Z = ndcZ
		v.Clip.W = 1
	}
}

// meshGeometry is one mesh's clipped, screen-space triangles along with the
// opacity classification used to route it into the opaque or transparent
// batch set.
type meshGeometry struct {
	texture *scene.Texture
	opaque  bool
	tris    []scene.Triangle
}

// buildBatches groups every mesh's screen-space triangles into opaque and
// transparent batch sets, keyed across the whole scene by texture identity
// (SPEC_FULL.md §4.1's "batches by texture identity", a nil texture acting
// as the sentinel for "no texture") so the rasterizer rebinds a texture once
// per batch rather than once per mesh.
func buildBatches(meshes []meshGeometry) (opaque, transparent []textureBatch) {
	opaqueByTex := map[*scene.Texture]*textureBatch{}
	transByTex := map[*scene.Texture]*textureBatch{}

	for _, mg := range meshes {
		if len(mg.tris) == 0 {
			continue
		}
		dst := opaqueByTex
		if !mg.opaque {
			dst = transByTex
		}
		b, ok := dst[mg.texture]
		if !ok {
			b = &textureBatch{texture: mg.texture, opaque: mg.opaque}
			dst[mg.texture] = b
		}
		b.tris = append(b.tris, mg.tris...)
	}

	opaque = finalizeBatches(opaqueByTex)
	transparent = finalizeBatches(transByTex)
	sortFrontToBack(opaque)
	sortBackToFront(transparent)
	return opaque, transparent
}

func finalizeBatches(m map[*scene.Texture]*textureBatch) []textureBatch {
	out := make([]textureBatch, 0, len(m))
	for _, b := range m {
		var sumZ float64
		for _, t := range b.tris {
			sumZ += t.AverageZ()
		}
		b.avgZ = sumZ / float64(len(b.tris))
		out = append(out, *b)
	}
	return out
}

// sortFrontToBack orders batches by ascending mean depth, maximizing
// depth-test rejection in the opaque pass.
func sortFrontToBack(batches []textureBatch) {
	sort.Slice(batches, func(i, j int) bool { return batches[i].avgZ < batches[j].avgZ })
}

// sortBackToFront orders batches by descending mean depth, approximating
// order-dependent blending in the transparent pass.
func sortBackToFront(batches []textureBatch) {
	sort.Slice(batches, func(i, j int) bool { return batches[i].avgZ > batches[j].avgZ })
}
