package raster

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/taigrr/duskraster/pkg/math3d"
	"github.com/taigrr/duskraster/pkg/scene"
)

// Material holds the scalar lighting parameters shared by every fragment in
// one color pass: specular strength and shininess exponent for the
// Blinn-Phong half-vector term.
type Material struct {
	SpecularStrength float64
	Shininess        float64
}

// DefaultMaterial returns reasonable specular parameters for an untextured
// or lightly textured surface.
func DefaultMaterial() Material {
	return Material{SpecularStrength: 0.5, Shininess: 32}
}

// shadingLight is the subset of PerspectiveLight and DeepShadowMap data the
// shader needs per light, bundled so blinnPhongShader doesn't reach back
// into the pipeline's slices on every fragment.
type shadingLight struct {
	light *PerspectiveLight
	dsm   *DeepShadowMap
}

// blinnPhongShader computes the per-pixel Blinn-Phong color pass shader
// described in SPEC_FULL.md's fragment-shading section, closing over the
// frame's camera position, ambient term, material, bound texture, and
// lights.
type blinnPhongShader struct {
	cameraPos math3d.Vec3
	ambient   math3d.Vec3 // linear [0,1]
	material  Material
	texture   *scene.Texture
	lights    []shadingLight
}

func newBlinnPhongShader(cameraPos math3d.Vec3, ambient scene.Color, material Material, texture *scene.Texture, lights []shadingLight) *blinnPhongShader {
	return &blinnPhongShader{
		cameraPos: cameraPos,
		ambient:   colorToLinear(ambient),
		material:  material,
		texture:   texture,
		lights:    lights,
	}
}

// Shade implements FragmentFunc.
func (s *blinnPhongShader) Shade(f Fragment) (scene.Color, bool) {
	if f.Degenerate {
		return f.Color, true
	}

	albedoColor := f.Color
	if s.texture != nil {
		uv := f.UV.Clamp01()
		albedoColor = s.texture.Sample(uv.X, uv.Y)
	}
	albedo := colorToLinear(albedoColor)

	accum := s.ambient.Mul(albedo)

	for i, sl := range s.lights {
		if i >= f.NumLights || sl.light == nil || sl.dsm == nil {
			continue
		}
		contrib, ok := s.lightContribution(f, i, sl, albedo)
		if !ok {
			continue
		}
		accum = accum.Add(contrib)
	}

	out := colorful.Color{R: accum.X, G: accum.Y, B: accum.Z}.Clamped()
	return scene.RGBA(
		uint8(out.R*255),
		uint8(out.G*255),
		uint8(out.B*255),
		albedoColor.A,
	), true
}

func (s *blinnPhongShader) lightContribution(f Fragment, idx int, sl shadingLight, albedo math3d.Vec3) (math3d.Vec3, bool) {
	lc := f.LightClip[idx]
	if lc.W < 1e-6 || math.Abs(lc.X) > lc.W || math.Abs(lc.Y) > lc.W || lc.Z < 0 || lc.Z > lc.W {
		return math3d.Vec3{}, false
	}
	ndc := lc.PerspectiveDivide()

	sw, sh := sl.dsm.Width, sl.dsm.Height
	sx := (ndc.X + 1) * 0.5 * float64(sw)
	sy := (1 - ndc.Y) * 0.5 * float64(sh)
	ix, iy := int(math.Floor(sx)), int(math.Floor(sy))
	if ix < 0 || ix >= sw || iy < 0 || iy >= sh {
		return math3d.Vec3{}, false
	}

	vis := sl.dsm.Sample(ix, iy, float32(ndc.Z))
	if vis < 1e-6 {
		return math3d.Vec3{}, false
	}

	light := sl.light
	toLight := light.Position().Sub(f.World)
	d2 := toLight.LenSq()
	if d2 == 0 {
		return math3d.Vec3{}, false
	}
	l := toLight.Normalize()

	inner, outer := light.ConeCosines()
	c := light.Forward().Dot(l.Negate())
	if c <= outer {
		return math3d.Vec3{}, false
	}
	spot := 1.0
	if c < inner {
		spot = clamp01((c - outer) / (inner - outer))
	}

	atten := 1.0 / (1 + light.Quadratic()*d2)

	diffFactor := math.Max(0, f.Normal.Dot(l))
	lightColor := colorToLinear(light.Color())
	diffuse := albedo.Mul(lightColor).Scale(diffFactor)

	v := s.cameraPos.Sub(f.World).Normalize()
	h := l.Add(v).Normalize()
	specFactor := math.Pow(math.Max(0, f.Normal.Dot(h)), s.material.Shininess)
	specular := lightColor.Scale(s.material.SpecularStrength * specFactor)

	scale := light.Intensity() * atten * float64(vis) * spot
	return diffuse.Add(specular).Scale(scale), true
}

func colorToLinear(c scene.Color) math3d.Vec3 {
	return math3d.V3(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// shadowAlphaShader computes only a fragment's alpha (via texture or vertex
// color interpolation), the shadow pass's fragment processor per
// SPEC_FULL.md §4.2: the DSM only needs depth and alpha, never full
// lighting.
type shadowAlphaShader struct {
	texture *scene.Texture
}

// Shade implements FragmentFunc.
func (s *shadowAlphaShader) Shade(f Fragment) (scene.Color, bool) {
	if s.texture == nil || f.Degenerate {
		return f.Color, true
	}
	return s.texture.Sample(f.UV.X, f.UV.Y), true
}

// blendSourceOver implements the non-opaque alpha-compositing rule src_over
// used when a fragment's alpha is below the opaque threshold.
func blendSourceOver(src, dst scene.Color) scene.Color {
	a := float64(src.A) / 255
	inv := 1 - a
	return scene.RGBA(
		uint8(float64(src.R)*a+float64(dst.R)*inv),
		uint8(float64(src.G)*a+float64(dst.G)*inv),
		uint8(float64(src.B)*a+float64(dst.B)*inv),
		uint8(math.Min(255, float64(src.A)+float64(dst.A)*inv)),
	)
}

// OpaqueAlphaThreshold is the alpha byte at or above which a fragment is
// treated as opaque (depth test + write, overwrite color) rather than
// alpha-blended.
const OpaqueAlphaThreshold = 254
