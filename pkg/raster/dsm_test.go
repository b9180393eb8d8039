package raster

import "testing"

func TestVisibilityFunctionOpaqueOccluderBlocksBehind(t *testing.T) {
	f := newVisibilityFunction()
	f.add(0.5, 1.0) // fully opaque occluder at z=0.5
	f.initialize(0)

	if got := f.sample(0.6); got != 0 {
		t.Errorf("sample behind opaque occluder = %v, want 0", got)
	}
	if got := f.sample(0.4); got != 1 {
		t.Errorf("sample in front of opaque occluder = %v, want 1", got)
	}
}

func TestVisibilityFunctionTranslucentReducesVisibility(t *testing.T) {
	f := newVisibilityFunction()
	f.add(0.5, 0.5) // 50% opaque fragment
	f.initialize(0)

	if got := f.sample(0.4); got != 1 {
		t.Errorf("sample in front of translucent fragment = %v, want 1", got)
	}
	if got := f.sample(0.6); got != 0.5 {
		t.Errorf("sample behind translucent fragment = %v, want 0.5", got)
	}
}

func TestVisibilityFunctionMultipleTranslucentFragmentsCompound(t *testing.T) {
	f := newVisibilityFunction()
	f.add(0.3, 0.5)
	f.add(0.6, 0.5)
	f.initialize(0)

	// After both fragments, visibility should have compounded to 0.25.
	if got := f.sample(0.9); got < 0.24 || got > 0.26 {
		t.Errorf("sample past both fragments = %v, want ~0.25", got)
	}
}

func TestVisibilityFunctionTranslucentBehindOpaqueIgnored(t *testing.T) {
	f := newVisibilityFunction()
	f.add(0.3, 1.0)  // opaque occluder first
	f.add(0.6, 0.5)  // translucent fragment behind it: should be dropped
	f.initialize(0)

	if got := f.sample(0.9); got != 0 {
		t.Errorf("sample behind opaque occluder = %v, want 0 regardless of later fragments", got)
	}
}

func TestVisibilityFunctionCompressionPreservesEndpoints(t *testing.T) {
	f := newVisibilityFunction()
	for i := range 40 {
		f.add(float32(i)/40*0.9+0.05, 0.02)
	}
	f.initialize(0.05)

	if len(f.Points) == 0 {
		t.Fatal("compression produced no points")
	}
	if f.Points[0].Depth != 0 {
		t.Errorf("first point depth = %v, want 0 (sentinel preserved)", f.Points[0].Depth)
	}
	lastI := 39
	if want, got := float32(lastI)/40*0.9+0.05, f.Points[len(f.Points)-1].Depth; got != want {
		t.Errorf("last point depth = %v, want %v (deepest inserted point preserved)", got, want)
	}
	// Compression must never expand the point count.
	if len(f.Points) > 41 {
		t.Errorf("compressed point count %d exceeds uncompressed count", len(f.Points))
	}
}

func TestVisibilityFunctionLinearAndBinarySearchAgree(t *testing.T) {
	f := newVisibilityFunction()
	for i := range 60 {
		f.add(float32(i)/60*0.9+0.05, 0.3)
	}
	f.initialize(0) // epsilon 0 disables compression, forcing the binary-search path

	if len(f.Points) <= linearScanThreshold {
		t.Fatalf("expected more than %d points to exercise binary search, got %d", linearScanThreshold, len(f.Points))
	}

	for _, z := range []float32{0, 0.1, 0.5, 0.8, 0.95, 1} {
		got := f.sample(z)
		if got < 0 || got > 1 {
			t.Errorf("sample(%v) = %v, out of [0,1]", z, got)
		}
		// Reference: the linear scan sample uses at or below
		// linearScanThreshold points.
		want := f.Points[0].Visibility
		for _, p := range f.Points {
			if p.Depth > z {
				break
			}
			want = p.Visibility
		}
		if got != want {
			t.Errorf("sample(%v) = %v via binary search, linear scan gives %v", z, got, want)
		}
	}
}

// TestVisibilityFunctionBoundaryInsertionSequence reproduces the spec's
// literal DSM build scenario: inserting (z=0.2,a=0.5), (z=0.5,a=0.5),
// (z=0.9,a=1.0) at one pixel should, pre-compression, leave the points
// [(0,1), (0.2,0.5), (0.5,0.25), (0.9,0)] and sample 1/0.5/0.25/0 at
// z=0.1/0.3/0.6/0.95.
func TestVisibilityFunctionBoundaryInsertionSequence(t *testing.T) {
	f := newVisibilityFunction()
	f.add(0.2, 0.5)
	f.add(0.5, 0.5)
	f.add(0.9, 1.0)
	f.initialize(0)

	wantPoints := []VisibilityPoint{
		{Depth: 0, Visibility: 1},
		{Depth: 0.2, Visibility: 0.5},
		{Depth: 0.5, Visibility: 0.25},
		{Depth: 0.9, Visibility: 0},
	}
	if len(f.Points) != len(wantPoints) {
		t.Fatalf("Points = %v, want %v", f.Points, wantPoints)
	}
	for i, want := range wantPoints {
		got := f.Points[i]
		if got.Depth != want.Depth || got.Visibility != want.Visibility {
			t.Errorf("Points[%d] = %+v, want %+v", i, got, want)
		}
	}

	cases := []struct {
		z    float32
		want float32
	}{
		{0.1, 1},
		{0.3, 0.5},
		{0.6, 0.25},
		{0.95, 0},
	}
	for _, c := range cases {
		if got := f.sample(c.z); got != c.want {
			t.Errorf("sample(%v) = %v, want %v", c.z, got, c.want)
		}
	}
}

func TestDeepShadowMapAddInitializeSample(t *testing.T) {
	d := NewDeepShadowMapEpsilon(4, 4, 0)
	d.Add(1, 1, 0.5, 1.0)
	d.Initialize()

	if got := d.Sample(1, 1, 0.9); got != 0 {
		t.Errorf("Sample behind opaque occluder = %v, want 0", got)
	}
	if got := d.Sample(2, 2, 0.9); got != 1 {
		t.Errorf("Sample at an untouched pixel = %v, want full visibility", got)
	}
	if got := d.Sample(-1, 0, 0.5); got != 1 {
		t.Errorf("Sample out of range = %v, want full visibility", got)
	}
}

func TestDeepShadowMapMergeCombinesTileInsertions(t *testing.T) {
	main := NewDeepShadowMapEpsilon(8, 8, 0)
	tile := NewDeepShadowMapEpsilon(2, 2, 0)
	tile.Add(0, 0, 0.4, 1.0)

	main.Merge(tile, 3, 3)
	main.Initialize()

	if got := main.Sample(3, 3, 0.9); got != 0 {
		t.Errorf("Sample at merged pixel = %v, want 0 (opaque occluder merged in)", got)
	}
	if got := main.Sample(0, 0, 0.9); got != 1 {
		t.Errorf("Sample away from merged pixel = %v, want full visibility", got)
	}
}

func TestDeepShadowMapResetClearsState(t *testing.T) {
	d := NewDeepShadowMapEpsilon(2, 2, 0)
	d.Add(0, 0, 0.2, 1.0)
	d.Initialize()
	if got := d.Sample(0, 0, 0.5); got != 0 {
		t.Fatalf("precondition failed: Sample = %v, want 0", got)
	}

	d.Reset()
	d.Initialize()
	if got := d.Sample(0, 0, 0.5); got != 1 {
		t.Errorf("Sample after Reset = %v, want 1 (no occluder)", got)
	}
}
