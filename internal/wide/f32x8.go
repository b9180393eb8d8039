// Package wide provides fixed-width float32 lane batching for the
// rasterizer's inner loop, relying on the Go compiler's auto-vectorization
// of fixed-size array operations rather than any SIMD intrinsics.
package wide

// Width is the number of lanes processed per step of the rasterizer's inner
// loop; it must not exceed the tile edge length.
const Width = 8

// F32x8 holds 8 float32 lanes.
type F32x8 [Width]float32

// SplatF32 returns a lane vector with every element set to n.
func SplatF32(n float32) F32x8 {
	var r F32x8
	for i := range r {
		r[i] = n
	}
	return r
}

// LaneOffsets returns [0,1,...,Width-1] as float32, used to build a row of
// per-pixel x-offsets from a single broadcast base value.
func LaneOffsets() F32x8 {
	var r F32x8
	for i := range r {
		r[i] = float32(i)
	}
	return r
}

// Add performs element-wise addition.
func (v F32x8) Add(o F32x8) F32x8 {
	var r F32x8
	for i := range v {
		r[i] = v[i] + o[i]
	}
	return r
}

// Mul performs element-wise multiplication.
func (v F32x8) Mul(o F32x8) F32x8 {
	var r F32x8
	for i := range v {
		r[i] = v[i] * o[i]
	}
	return r
}

// MulAdd returns v + o*s (fused multiply-add shape, used to step
// broadcast(w_row) + offsets*dw/dx in one call).
func (v F32x8) MulAdd(o F32x8, s float32) F32x8 {
	var r F32x8
	for i := range v {
		r[i] = v[i] + o[i]*s
	}
	return r
}

// GE0 returns a boolean mask: true where the lane is >= 0.
func (v F32x8) GE0() [Width]bool {
	var m [Width]bool
	for i := range v {
		m[i] = v[i] >= 0
	}
	return m
}

// And returns the element-wise AND of boolean lane masks.
func And(a, b [Width]bool) [Width]bool {
	var m [Width]bool
	for i := range a {
		m[i] = a[i] && b[i]
	}
	return m
}

// AnySet reports whether any lane in the mask is true.
func AnySet(m [Width]bool) bool {
	for _, b := range m {
		if b {
			return true
		}
	}
	return false
}
