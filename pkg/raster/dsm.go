package raster

import (
	"math"
	"sort"
)

// DefaultCompressionEpsilon is the default visibility-space tolerance for
// DeepShadowMap compression: the lower of the two values historically seen
// for this constant, preferred for quality over compression ratio.
const DefaultCompressionEpsilon = 0.0125

// linearScanThreshold is the point-count cutoff below which Sample uses a
// linear scan instead of binary search.
const linearScanThreshold = 25

// VisibilityPoint is one sample of a per-pixel visibility-vs-depth
// function. Before VisibilityFunction.initialize, Visibility holds the
// transparency (1-alpha) of the translucent fragment that produced it;
// after, it holds cumulative visibility along the view ray.
type VisibilityPoint struct {
	Depth      float32
	Visibility float32
}

// VisibilityFunction is one shadow-map pixel's ordered visibility samples,
// always starting at (0,1). OpaqueDepth, when set, caps the function: no
// fragment beyond it can be visible.
type VisibilityFunction struct {
	Points      []VisibilityPoint
	OpaqueDepth float32
	HasOpaque   bool
}

func newVisibilityFunction() VisibilityFunction {
	return VisibilityFunction{Points: []VisibilityPoint{{Depth: 0, Visibility: 1}}}
}

// add inserts one fragment's contribution. Bounds checking happens at the
// DeepShadowMap level; this only encodes the per-pixel insertion rule.
func (f *VisibilityFunction) add(z, alpha float32) {
	switch {
	case alpha >= 1:
		if !f.HasOpaque || z < f.OpaqueDepth {
			f.OpaqueDepth = z
			f.HasOpaque = true
		}
	case alpha > 0:
		if f.HasOpaque && f.OpaqueDepth <= z {
			return // behind the opaque surface: cannot contribute
		}
		f.Points = append(f.Points, VisibilityPoint{Depth: z, Visibility: 1 - alpha})
	}
}

// merge folds another pixel's raw (pre-initialize) insertions into this
// one: OpaqueDepth by minimum, and all of src's points but its initial
// (0,1) sentinel.
func (f *VisibilityFunction) merge(src VisibilityFunction) {
	if src.HasOpaque && (!f.HasOpaque || src.OpaqueDepth < f.OpaqueDepth) {
		f.OpaqueDepth = src.OpaqueDepth
		f.HasOpaque = true
	}
	if len(src.Points) > 1 {
		f.Points = append(f.Points, src.Points[1:]...)
	}
}

// initialize finalizes the function: appends the terminal opaque point,
// sorts by depth, accumulates cumulative visibility, then compresses with
// the given tolerance.
func (f *VisibilityFunction) initialize(epsilon float32) {
	if f.HasOpaque {
		f.Points = append(f.Points, VisibilityPoint{Depth: f.OpaqueDepth, Visibility: 0})
	}
	sort.Slice(f.Points, func(i, j int) bool { return f.Points[i].Depth < f.Points[j].Depth })

	for i := 1; i < len(f.Points); i++ {
		v := f.Points[i-1].Visibility * f.Points[i].Visibility
		if v < 0 {
			v = 0
		}
		f.Points[i].Visibility = v
	}

	f.Points = compressVisibility(f.Points, epsilon)
}

// compressVisibility runs the incremental slope-interval simplification:
// starting from a base point, it keeps extending a feasible slope interval
// [mLo,mHi] as long as every intervening point stays within epsilon of some
// line through the base point; when the interval empties, the previous
// point becomes a breakpoint and the interval restarts from there.
func compressVisibility(points []VisibilityPoint, epsilon float32) []VisibilityPoint {
	if len(points) <= 1 {
		return points
	}

	out := make([]VisibilityPoint, 0, len(points))
	out = append(out, points[0])

	baseIdx := 0
	mLo, mHi := float32(math.Inf(-1)), float32(math.Inf(1))

	j := 1
	for j < len(points) {
		base := points[baseIdx]
		dz := points[j].Depth - base.Depth
		if dz <= 0 {
			j++
			continue
		}
		upper := (points[j].Visibility + epsilon - base.Visibility) / dz
		lower := (points[j].Visibility - epsilon - base.Visibility) / dz
		newLo, newHi := maxF32(mLo, lower), minF32(mHi, upper)

		if newLo > newHi {
			bp := points[j-1]
			slope := (mLo + mHi) / 2
			v := clamp01F32(base.Visibility + slope*(bp.Depth-base.Depth))
			out = append(out, VisibilityPoint{Depth: bp.Depth, Visibility: v})
			baseIdx = j - 1
			points[baseIdx].Visibility = v // the new base carries the compressed value
			mLo, mHi = float32(math.Inf(-1)), float32(math.Inf(1))
			continue
		}
		mLo, mHi = newLo, newHi
		j++
	}

	last := points[len(points)-1]
	if out[len(out)-1].Depth != last.Depth {
		out = append(out, last)
	}
	return out
}

// sample returns the piecewise-constant visibility at depth z: the
// visibility of the largest breakpoint whose depth <= z.
func (f *VisibilityFunction) sample(z float32) float32 {
	if f.HasOpaque && z >= f.OpaqueDepth {
		return 0
	}
	pts := f.Points
	if len(pts) <= linearScanThreshold {
		best := pts[0].Visibility
		for _, p := range pts {
			if p.Depth <= z {
				best = p.Visibility
			} else {
				break
			}
		}
		return best
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].Depth > z })
	if i == 0 {
		return pts[0].Visibility
	}
	return pts[i-1].Visibility
}

func maxF32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minF32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func clamp01F32(v float32) float32 {
	return maxF32(0, minF32(1, v))
}

// DeepShadowMap is a 2D grid of VisibilityFunctions for one light, plus the
// constant texel bias used to offset sampling depth against acne.
type DeepShadowMap struct {
	Width, Height int
	Epsilon       float32
	functions     []VisibilityFunction
	bias          float32
}

// NewDeepShadowMap allocates a W x H shadow map with the default
// compression epsilon.
func NewDeepShadowMap(width, height int) *DeepShadowMap {
	return NewDeepShadowMapEpsilon(width, height, DefaultCompressionEpsilon)
}

// NewDeepShadowMapEpsilon allocates a W x H shadow map with an explicit
// compression epsilon.
func NewDeepShadowMapEpsilon(width, height int, epsilon float32) *DeepShadowMap {
	d := &DeepShadowMap{
		Width:     width,
		Height:    height,
		Epsilon:   epsilon,
		functions: make([]VisibilityFunction, width*height),
		bias:      float32(max64(0.5/float64(width), 0.5/float64(height))),
	}
	d.Reset()
	return d
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Reset reinitializes every pixel to its starting (0,1)-only state, reusing
// the backing slice.
func (d *DeepShadowMap) Reset() {
	for i := range d.functions {
		d.functions[i] = newVisibilityFunction()
	}
}

func (d *DeepShadowMap) index(x, y int) (int, bool) {
	if x < 0 || x >= d.Width || y < 0 || y >= d.Height {
		return 0, false
	}
	return y*d.Width + x, true
}

// Add inserts a fragment's visibility contribution at pixel (x,y), silently
// ignoring out-of-range coordinates.
func (d *DeepShadowMap) Add(x, y int, z, alpha float32) {
	i, ok := d.index(x, y)
	if !ok {
		return
	}
	d.functions[i].add(z, alpha)
}

// Initialize finalizes every pixel's visibility function.
func (d *DeepShadowMap) Initialize() {
	for i := range d.functions {
		d.functions[i].initialize(d.Epsilon)
	}
}

// Sample returns the visibility at pixel (x,y) and depth z, biased by half
// a texel. Out-of-range pixels return full visibility (no shadow data to
// apply).
func (d *DeepShadowMap) Sample(x, y int, z float32) float32 {
	i, ok := d.index(x, y)
	if !ok {
		return 1
	}
	return d.functions[i].sample(z - d.bias)
}

// Merge folds a tile-local shadow map's raw (pre-Initialize) insertions
// into this map at the given pixel origin.
func (d *DeepShadowMap) Merge(tile *DeepShadowMap, originX, originY int) {
	for ty := range tile.Height {
		for tx := range tile.Width {
			srcI, ok := tile.index(tx, ty)
			if !ok {
				continue
			}
			dstI, ok := d.index(originX+tx, originY+ty)
			if !ok {
				continue
			}
			d.functions[dstI].merge(tile.functions[srcI])
		}
	}
}
