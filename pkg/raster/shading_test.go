package raster

import (
	"math"
	"testing"

	"github.com/taigrr/duskraster/pkg/math3d"
	"github.com/taigrr/duskraster/pkg/scene"
)

func TestBlinnPhongShaderAmbientOnlyWithNoLights(t *testing.T) {
	shader := newBlinnPhongShader(math3d.V3(0, 0, 5), scene.RGB(64, 64, 64), DefaultMaterial(), nil, nil)

	f := Fragment{
		World:  math3d.V3(0, 0, 0),
		Normal: math3d.V3(0, 0, 1),
		Color:  scene.ColorWhite,
	}
	got, ok := shader.Shade(f)
	if !ok {
		t.Fatal("Shade rejected fragment")
	}
	want := uint8(64)
	if got.R != want || got.G != want || got.B != want {
		t.Errorf("Shade with no lights = %v, want ambient-only (%d,%d,%d)", got, want, want, want)
	}
	if got.A != 255 {
		t.Errorf("alpha = %d, want 255 (carried from albedo)", got.A)
	}
}

func TestBlinnPhongShaderDegenerateFragmentPassesThroughColor(t *testing.T) {
	shader := newBlinnPhongShader(math3d.V3(0, 0, 5), scene.ColorBlack, DefaultMaterial(), nil, nil)
	f := Fragment{Degenerate: true, Color: scene.ColorRed}
	got, ok := shader.Shade(f)
	if !ok || got != scene.ColorRed {
		t.Errorf("Shade(degenerate) = %v, %v; want (%v, true)", got, ok, scene.ColorRed)
	}
}

// litFragment builds a fragment lit by a spotlight placed directly above a
// surface point, facing straight down, with a DSM reporting full visibility
// at the sampled shadow-map texel.
func litFragment(t *testing.T, coneOuterDeg float64) (Fragment, []shadingLight) {
	t.Helper()
	light, err := NewPerspectiveLight(16, 16, math.Pi/2, 0.1, 100, scene.ColorWhite, 10, 0.01, 10, coneOuterDeg)
	if err != nil {
		t.Fatalf("NewPerspectiveLight: %v", err)
	}
	light.SetPosition(math3d.V3(0, 5, 0))
	// Looking straight down at the origin: rotate -90 degrees of pitch.
	light.SetRotation(math3d.QFromEuler(-math.Pi/2, 0, 0))

	dsm := NewDeepShadowMap(16, 16)
	dsm.Initialize() // no occluders recorded: every texel stays fully visible

	world := math3d.V3(0, 0, 0)
	clip := light.WorldToClip().MulVec4(math3d.V4FromV3(world, 1))

	f := Fragment{
		World:     world,
		Normal:    math3d.V3(0, 1, 0),
		Color:     scene.ColorWhite,
		NumLights: 1,
	}
	f.LightClip[0] = clip
	return f, []shadingLight{{light: light, dsm: dsm}}
}

func TestBlinnPhongShaderLitFragmentBrighterThanAmbient(t *testing.T) {
	f, lights := litFragment(t, 35)
	shader := newBlinnPhongShader(math3d.V3(0, 5, 0), scene.RGB(10, 10, 10), DefaultMaterial(), nil, lights)

	got, ok := shader.Shade(f)
	if !ok {
		t.Fatal("Shade rejected a directly-lit fragment")
	}
	if got.R <= 10 {
		t.Errorf("lit fragment R = %d, want brighter than the ambient-only floor of 10", got.R)
	}
}

func TestBlinnPhongShaderOutsideConeStaysAtAmbient(t *testing.T) {
	// A fragment far off the light's forward axis falls outside even a wide
	// cone, and should fall back to ambient-only (the world position puts it
	// well off-axis from the straight-down spotlight).
	light, err := NewPerspectiveLight(16, 16, math.Pi/2, 0.1, 100, scene.ColorWhite, 10, 0.01, 1, 2)
	if err != nil {
		t.Fatalf("NewPerspectiveLight: %v", err)
	}
	light.SetPosition(math3d.V3(0, 5, 0))
	light.SetRotation(math3d.QFromEuler(-math.Pi/2, 0, 0))
	dsm := NewDeepShadowMap(16, 16)
	dsm.Initialize()

	world := math3d.V3(20, 0, 20) // far off the cone axis
	f := Fragment{
		World:     world,
		Normal:    math3d.V3(0, 1, 0),
		Color:     scene.ColorWhite,
		NumLights: 1,
	}
	f.LightClip[0] = light.WorldToClip().MulVec4(math3d.V4FromV3(world, 1))

	ambient := scene.RGB(10, 10, 10)
	shader := newBlinnPhongShader(math3d.V3(0, 5, 0), ambient, DefaultMaterial(), nil, []shadingLight{{light: light, dsm: dsm}})
	got, ok := shader.Shade(f)
	if !ok {
		t.Fatal("Shade rejected fragment")
	}
	if got.R != 10 || got.G != 10 || got.B != 10 {
		t.Errorf("Shade outside cone = %v, want ambient-only (10,10,10)", got)
	}
}

func TestShadowAlphaShaderNoTexturePassesThroughColor(t *testing.T) {
	s := &shadowAlphaShader{}
	f := Fragment{Color: scene.RGBA(1, 2, 3, 200)}
	got, ok := s.Shade(f)
	if !ok || got != f.Color {
		t.Errorf("Shade = %v, %v; want (%v, true)", got, ok, f.Color)
	}
}

func TestShadowAlphaShaderSamplesTexture(t *testing.T) {
	tex := scene.NewTexture(1, 1)
	tex.SetPixel(0, 0, scene.RGBA(9, 9, 9, 128))
	s := &shadowAlphaShader{texture: tex}

	got, ok := s.Shade(Fragment{UV: math3d.V2(0.5, 0.5)})
	if !ok {
		t.Fatal("Shade rejected fragment")
	}
	if got.A != 128 {
		t.Errorf("Shade alpha = %d, want 128 (sampled from texture)", got.A)
	}
}

func TestBlendSourceOverOpaqueSrcReplacesDst(t *testing.T) {
	src := scene.RGBA(200, 0, 0, 255)
	dst := scene.RGB(0, 200, 0)
	got := blendSourceOver(src, dst)
	if got.R != 200 || got.G != 0 {
		t.Errorf("blendSourceOver(opaque) = %v, want src to fully replace dst", got)
	}
}

func TestBlendSourceOverTransparentSrcKeepsDst(t *testing.T) {
	src := scene.RGBA(200, 0, 0, 0)
	dst := scene.RGB(0, 200, 0)
	got := blendSourceOver(src, dst)
	if got.G != 200 {
		t.Errorf("blendSourceOver(transparent src) = %v, want dst unchanged", got)
	}
}

func TestColorToLinear(t *testing.T) {
	got := colorToLinear(scene.RGB(255, 0, 128))
	if math.Abs(got.X-1) > 1e-9 || got.Y != 0 {
		t.Errorf("colorToLinear = %v, want X=1 Y=0", got)
	}
}

func TestClamp01(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-1, 0}, {0, 0}, {0.5, 0.5}, {1, 1}, {2, 1},
	}
	for _, c := range cases {
		if got := clamp01(c.in); got != c.want {
			t.Errorf("clamp01(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
