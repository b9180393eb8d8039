// Package raster implements the tiled, deep-shadow-mapped rasterizer: the
// Camera and PerspectiveLight viewports, the homogeneous-space Clipper, the
// worker-pool-backed Rasterizer, the DeepShadowMap, Blinn-Phong fragment
// shading, and the Pipeline that orchestrates all of them into one frame.
package raster

import (
	"math"

	"github.com/taigrr/duskraster/pkg/math3d"
)

// Perspective is the capability shared by Camera and PerspectiveLight: a
// pixel extent and a cached world-to-clip matrix.
type Perspective interface {
	Width() int
	Height() int
	WorldToClip() math3d.Mat4
}

// Transform is the capability shared by Camera and PerspectiveLight for
// position/rotation updates that propagate to linked observers.
type Transform interface {
	SetPosition(p math3d.Vec3)
	SetRotation(q math3d.Quat)
}

// viewport holds the state and dirty-flag caching machinery common to
// Camera and PerspectiveLight, mirroring the caching pattern of the
// teacher's own Camera type but generalized to be embeddable by both.
type viewport struct {
	width, height int

	position math3d.Vec3
	rotation math3d.Quat
	fov      float64
	aspect   float64
	near     float64
	far      float64

	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4
	viewDirty      bool
	projDirty      bool

	linked      []*viewport
	propagating bool
}

func newViewport(width, height int, fov, near, far float64) viewport {
	return viewport{
		width:     width,
		height:    height,
		rotation:  math3d.QIdentity(),
		fov:       fov,
		aspect:    float64(width) / float64(height),
		near:      near,
		far:       far,
		viewDirty: true,
		projDirty: true,
	}
}

func (v *viewport) Width() int  { return v.width }
func (v *viewport) Height() int { return v.height }

func (v *viewport) setPosition(p math3d.Vec3) {
	v.position = p
	v.markViewDirty()
}

func (v *viewport) setRotation(q math3d.Quat) {
	v.rotation = q
	v.markViewDirty()
}

func (v *viewport) setFOV(fov float64) {
	v.fov = fov
	v.markProjDirty()
}

func (v *viewport) setNearFar(near, far float64) {
	v.near = near
	v.far = far
	v.markProjDirty()
}

// link subscribes other so that changes to v's transform also invalidate
// other's view matrix. Linking is bidirectional: either side moving
// invalidates both. The propagating guard prevents infinite recursion
// between mutually linked viewports.
func (v *viewport) link(other *viewport) {
	v.linked = append(v.linked, other)
	other.linked = append(other.linked, v)
}

func (v *viewport) markViewDirty() {
	v.viewDirty = true
	if v.propagating {
		return
	}
	v.propagating = true
	for _, l := range v.linked {
		l.markViewDirty()
	}
	v.propagating = false
}

func (v *viewport) markProjDirty() {
	v.projDirty = true
}

func (v *viewport) viewMatrixCached() math3d.Mat4 {
	if v.viewDirty {
		// View = Rotation^-1 * Translation(-position): the rotation is the
		// conjugate of the orientation quaternion since the view matrix
		// carries the world into camera space, not the reverse.
		rot := v.rotation.Conjugate().ToMat4()
		trans := math3d.Translate(v.position.Negate())
		v.viewMatrix = rot.Mul(trans)
		v.viewDirty = false
	}
	return v.viewMatrix
}

func (v *viewport) projMatrixCached() math3d.Mat4 {
	if v.projDirty {
		v.projMatrix = math3d.Perspective(v.fov, v.aspect, v.near, v.far)
		v.projDirty = false
	}
	return v.projMatrix
}

func (v *viewport) worldToClip() math3d.Mat4 {
	if v.viewDirty || v.projDirty {
		view := v.viewMatrixCached()
		proj := v.projMatrixCached()
		v.viewProjMatrix = proj.Mul(view)
	}
	return v.viewProjMatrix
}

// forward returns the viewport's forward direction, derived from its
// rotation rather than stored independently.
func (v *viewport) forward() math3d.Vec3 {
	return v.rotation.RotateVec3(math3d.Forward())
}

// cosDeg converts a half-angle in degrees to its cosine, matching the
// convention light cone cutoffs are stored in.
func cosDeg(deg float64) float64 {
	return math.Cos(deg * math.Pi / 180)
}
