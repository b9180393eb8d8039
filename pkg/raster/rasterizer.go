package raster

import (
	"context"
	"math"

	"github.com/taigrr/duskraster/internal/parallel"
	"github.com/taigrr/duskraster/internal/tilegrid"
	"github.com/taigrr/duskraster/internal/wide"
	"github.com/taigrr/duskraster/pkg/math3d"
	"github.com/taigrr/duskraster/pkg/scene"
)

// Fragment is a single covered, perspective-correct pixel sample handed to
// a FragmentFunc: every attribute has already been recovered from its
// OverW form and divided by the interpolated 1/w.
type Fragment struct {
	X, Y       int
	Depth      float64 // NDC z in [0,1]
	World      math3d.Vec3
	Normal     math3d.Vec3
	UV         math3d.Vec2
	Color      scene.Color
	LightClip  [scene.MaxLights]math3d.Vec4
	NumLights  int
	Degenerate bool // true if perspective recovery was unstable (|invW| < 1e-6); only Color is meaningful
}

// FragmentFunc shades one fragment, returning the color to write and
// whether it survives (false discards it, e.g. an alpha-tested cutout).
type FragmentFunc func(f Fragment) (scene.Color, bool)

// DrawOptions configures one Tiler.Draw pass. Exactly one of FrameBuffer or
// ShadowMap should be set: the depth pre-pass and color passes target a
// FrameBuffer, the shadow pass accumulates into a ShadowMap. The color pass
// itself never takes a fixed blend-vs-overwrite flag: that decision is made
// per fragment from the shaded color's own alpha (see shadeFragmentPixel),
// since a single "opaque" mesh batch can still produce partially-covered
// edge fragments.
type DrawOptions struct {
	FrameBuffer  *FrameBuffer
	DepthTest    bool
	DepthOnly    bool // depth pre-pass: write depth only, no color, no shading
	ShadowMap    *DeepShadowMap
	BackfaceCull bool
	Shade        FragmentFunc
}

// Tiler bins triangles into screen tiles and rasterizes each tile
// concurrently via a persistent worker pool: the pool's goroutines are
// started once in NewTiler and live for the Tiler's lifetime, so a frame's
// Draw call only submits tile jobs rather than paying a goroutine-spawn cost
// per tile per frame. Tiles own disjoint pixel ranges, but each tile's
// fragments are still shaded into a tile-local scratch frameState (loaded
// from the shared FrameBuffer when the tile starts) and the pixels the tile
// wrote are copied back into the shared FrameBuffer after the tile
// finishes, the same scratch-then-merge shape the shadow pass uses for its
// DeepShadowMap tiles.
type Tiler struct {
	grid         *tilegrid.Grid
	pool         *parallel.WorkerPool
	dsmPool      dsmScratchPool
	frameScratch frameScratchPool
}

// NewTiler creates a tiler for a width x height canvas, backed by a
// persistent pool of workers goroutines (clamped to at least 1).
func NewTiler(width, height, workers int) *Tiler {
	if workers < 1 {
		workers = 1
	}
	return &Tiler{
		grid:         tilegrid.New(width, height),
		pool:         parallel.NewWorkerPool(workers),
		dsmPool:      newDSMScratchPool(),
		frameScratch: newFrameScratchPool(),
	}
}

// Resize re-binds the tiler to new canvas dimensions.
func (t *Tiler) Resize(width, height int) {
	t.grid.Resize(width, height)
}

// Close shuts down the tiler's worker pool. Draw must not be called after
// Close.
func (t *Tiler) Close() {
	t.pool.Close()
}

// preparedTri is a triangle's screen-space rasterization setup, computed
// once during binning and reused by every tile it overlaps.
type preparedTri struct {
	src              *scene.Triangle
	sx, sy           [3]float64
	depth            [3]float64
	A0, B0, C0       float64
	A1, B1, C1       float64
	A2, B2, C2       float64
	invArea          float64
	minX, minY       int
	maxX, maxY       int
}

// Draw clips is not performed here (the caller clips beforehand); it bins
// tris into tiles and rasterizes them concurrently per opts.
func (t *Tiler) Draw(ctx context.Context, tris []scene.Triangle, opts DrawOptions) error {
	prepared := make([]preparedTri, 0, len(tris))
	t.grid.ResetAll()

	width, height := 0, 0
	if opts.FrameBuffer != nil {
		width, height = opts.FrameBuffer.Width, opts.FrameBuffer.Height
	} else if opts.ShadowMap != nil {
		width, height = opts.ShadowMap.Width, opts.ShadowMap.Height
	}
	if width == 0 || height == 0 {
		return nil
	}

	for i := range tris {
		pt, ok := prepareTriangle(&tris[i], width, height, opts.BackfaceCull)
		if !ok {
			continue
		}
		idx := len(prepared)
		prepared = append(prepared, pt)

		tx0, ty0, tx1, ty1 := t.grid.TileRangeForRect(pt.minX, pt.minY, pt.maxX-pt.minX+1, pt.maxY-pt.minY+1)
		for ty := ty0; ty <= ty1; ty++ {
			for tx := tx0; tx <= tx1; tx++ {
				tile := t.grid.TileAt(tx, ty)
				if tile != nil {
					tile.TriIndices = append(tile.TriIndices, idx)
				}
			}
		}
	}

	tiles := t.grid.All()
	jobs := make([]func() error, 0, len(tiles))
	for _, tile := range tiles {
		tile := tile
		if len(tile.TriIndices) == 0 {
			continue
		}
		jobs = append(jobs, func() error {
			t.drawTile(tile, prepared, opts)
			return nil
		})
	}
	return t.pool.ExecuteAll(ctx, jobs)
}

// prepareTriangle computes one triangle's rasterization setup from its
// already screen-space vertices: prepareMesh's viewportTransform is the only
// place a perspective divide or NDC->pixel mapping happens, so this reads
// Clip.X/Y (pixel coordinates) and Clip.Z (NDC depth) as-is.
func prepareTriangle(tri *scene.Triangle, width, height int, backfaceCull bool) (preparedTri, bool) {
	var pt preparedTri
	pt.src = tri

	for i := range 3 {
		v := tri.V[i]
		pt.sx[i] = v.Clip.X
		pt.sy[i] = v.Clip.Y
		pt.depth[i] = v.Clip.Z
	}

	e1x, e1y := pt.sx[1]-pt.sx[0], pt.sy[1]-pt.sy[0]
	e2x, e2y := pt.sx[2]-pt.sx[0], pt.sy[2]-pt.sy[0]
	area2 := e1x*e2y - e1y*e2x
	if area2 == 0 {
		return pt, false
	}
	if backfaceCull && area2 < 0 {
		return pt, false
	}
	pt.invArea = 1.0 / area2

	pt.A0, pt.B0, pt.C0 = edgeCoeffsTopLeft(pt.sx[1], pt.sy[1], pt.sx[2], pt.sy[2])
	pt.A1, pt.B1, pt.C1 = edgeCoeffsTopLeft(pt.sx[2], pt.sy[2], pt.sx[0], pt.sy[0])
	pt.A2, pt.B2, pt.C2 = edgeCoeffsTopLeft(pt.sx[0], pt.sy[0], pt.sx[1], pt.sy[1])
	if area2 < 0 {
		// Clockwise winding (visible only with culling disabled): flip the
		// inside-test sign convention so w>=0 still means inside, and negate
		// invArea with it so the barycentrics stay positive and sum to 1.
		pt.A0, pt.B0, pt.C0 = -pt.A0, -pt.B0, -pt.C0
		pt.A1, pt.B1, pt.C1 = -pt.A1, -pt.B1, -pt.C1
		pt.A2, pt.B2, pt.C2 = -pt.A2, -pt.B2, -pt.C2
		pt.invArea = -pt.invArea
	}

	pt.minX = int(math.Max(0, math.Floor(min3(pt.sx[0], pt.sx[1], pt.sx[2]))))
	pt.maxX = int(math.Min(float64(width-1), math.Ceil(max3(pt.sx[0], pt.sx[1], pt.sx[2]))))
	pt.minY = int(math.Max(0, math.Floor(min3(pt.sy[0], pt.sy[1], pt.sy[2]))))
	pt.maxY = int(math.Min(float64(height-1), math.Ceil(max3(pt.sy[0], pt.sy[1], pt.sy[2]))))
	if pt.minX > pt.maxX || pt.minY > pt.maxY {
		return pt, false
	}
	return pt, true
}

// edgeCoeffsTopLeft is edgeCoeffs with the top-left fill rule folded into
// C: edges that are not a triangle's top or left edge get an infinitesimal
// negative bias, so a pixel exactly on a shared edge is rasterized by
// whichever triangle owns it as top-left and never by both or neither.
func edgeCoeffsTopLeft(x0, y0, x1, y1 float64) (A, B, C float64) {
	A = y0 - y1
	B = x1 - x0
	C = x0*y1 - x1*y0
	dx, dy := x1-x0, y1-y0
	isTopLeft := (dy == 0 && dx > 0) || dy < 0
	if !isTopLeft {
		C -= topLeftBias
	}
	return
}

const topLeftBias = 1e-9

func (t *Tiler) drawTile(tile *tilegrid.Tile, prepared []preparedTri, opts DrawOptions) {
	var scratch *DeepShadowMap
	if opts.ShadowMap != nil {
		scratch = t.dsmPool.get(tile.Width, tile.Height)
		defer t.dsmPool.put(scratch)
	}

	var fs *frameState
	if opts.FrameBuffer != nil {
		fs = t.frameScratch.get(opts.FrameBuffer, tile.X, tile.Y, tile.Width, tile.Height)
		defer t.frameScratch.put(fs)
	}

	for _, idx := range tile.TriIndices {
		pt := &prepared[idx]
		minX := maxInt(pt.minX, tile.X)
		maxX := minInt(pt.maxX, tile.X+tile.Width-1)
		minY := maxInt(pt.minY, tile.Y)
		maxY := minInt(pt.maxY, tile.Y+tile.Height-1)
		if minX > maxX || minY > maxY {
			continue
		}
		rasterizeTriangleInTile(pt, minX, minY, maxX, maxY, opts, scratch, fs, tile)
	}

	if scratch != nil {
		opts.ShadowMap.Merge(scratch, tile.X, tile.Y)
	}
	if fs != nil {
		fs.mergeInto(opts.FrameBuffer, tile.X, tile.Y)
	}
}

func rasterizeTriangleInTile(pt *preparedTri, minX, minY, maxX, maxY int, opts DrawOptions, scratch *DeepShadowMap, fs *frameState, tile *tilegrid.Tile) {
	a0, a1, a2 := float32(pt.A0), float32(pt.A1), float32(pt.A2)
	offsets := wide.LaneOffsets()

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		w0Row := edgeFuncRaster(pt.A0, pt.B0, pt.C0, float64(minX)+0.5, py)
		w1Row := edgeFuncRaster(pt.A1, pt.B1, pt.C1, float64(minX)+0.5, py)
		w2Row := edgeFuncRaster(pt.A2, pt.B2, pt.C2, float64(minX)+0.5, py)

		for xStart := minX; xStart <= maxX; xStart += wide.Width {
			dx := float32(xStart - minX)
			w0 := wide.SplatF32(float32(w0Row) + dx*a0).MulAdd(offsets, a0)
			w1 := wide.SplatF32(float32(w1Row) + dx*a1).MulAdd(offsets, a1)
			w2 := wide.SplatF32(float32(w2Row) + dx*a2).MulAdd(offsets, a2)
			mask := wide.And(wide.And(w0.GE0(), w1.GE0()), w2.GE0())
			if !wide.AnySet(mask) {
				continue
			}

			for lane := range wide.Width {
				x := xStart + lane
				if x > maxX {
					break
				}
				if !mask[lane] {
					continue
				}
				px := float64(x) + 0.5
				bw0 := edgeFuncRaster(pt.A0, pt.B0, pt.C0, px, py) * pt.invArea
				bw1 := edgeFuncRaster(pt.A1, pt.B1, pt.C1, px, py) * pt.invArea
				bw2 := edgeFuncRaster(pt.A2, pt.B2, pt.C2, px, py) * pt.invArea

				depth := bw0*pt.depth[0] + bw1*pt.depth[1] + bw2*pt.depth[2]
				shadeFragmentPixel(pt, x, y, depth, bw0, bw1, bw2, opts, scratch, fs, tile)
			}
		}
	}
}

func edgeFuncRaster(A, B, C, x, y float64) float64 {
	return A*x + B*y + C
}

func shadeFragmentPixel(pt *preparedTri, x, y int, depth, bw0, bw1, bw2 float64, opts DrawOptions, scratch *DeepShadowMap, fs *frameState, tile *tilegrid.Tile) {
	var lx, ly int
	if fs != nil {
		lx, ly = x-tile.X, y-tile.Y
		if opts.DepthTest && depth > fs.depthAt(lx, ly) {
			return
		}
		if opts.DepthOnly {
			fs.writeDepth(lx, ly, depth)
			return
		}
	}

	v0, v1, v2 := pt.src.V[0], pt.src.V[1], pt.src.V[2]
	invW := bw0*v0.InvW + bw1*v1.InvW + bw2*v2.InvW

	rawColor := scene.RGBA(
		uint8(bw0*float64(v0.Color.R)+bw1*float64(v1.Color.R)+bw2*float64(v2.Color.R)),
		uint8(bw0*float64(v0.Color.G)+bw1*float64(v1.Color.G)+bw2*float64(v2.Color.G)),
		uint8(bw0*float64(v0.Color.B)+bw1*float64(v1.Color.B)+bw2*float64(v2.Color.B)),
		uint8(bw0*float64(v0.Color.A)+bw1*float64(v1.Color.A)+bw2*float64(v2.Color.A)),
	)

	frag := Fragment{
		X:     x,
		Y:     y,
		Depth: depth,
		Color: rawColor,
	}

	if math.Abs(invW) < 1e-6 {
		// Degenerate perspective recovery: fall back to the unlit, raw
		// barycentric color rather than dividing by a near-zero invW.
		frag.Degenerate = true
	} else {
		oneOverInvW := 1.0 / invW
		worldOverW := v0.WorldPosOverW.Scale(bw0).Add(v1.WorldPosOverW.Scale(bw1)).Add(v2.WorldPosOverW.Scale(bw2))
		normalOverW := v0.NormalOverW.Scale(bw0).Add(v1.NormalOverW.Scale(bw1)).Add(v2.NormalOverW.Scale(bw2))
		uvOverW := v0.UVOverW.Scale(bw0).Add(v1.UVOverW.Scale(bw1)).Add(v2.UVOverW.Scale(bw2))

		frag.World = worldOverW.Scale(oneOverInvW)
		frag.Normal = normalOverW.Scale(oneOverInvW).Normalize()
		frag.UV = uvOverW.Scale(oneOverInvW)
		frag.NumLights = v0.NumLights
		for i := range frag.NumLights {
			l0, l1, l2 := v0.LightClipOverW[i].Scale(bw0), v1.LightClipOverW[i].Scale(bw1), v2.LightClipOverW[i].Scale(bw2)
			lOverW := math3d.V4(l0.X+l1.X+l2.X, l0.Y+l1.Y+l2.Y, l0.Z+l1.Z+l2.Z, l0.W+l1.W+l2.W)
			frag.LightClip[i] = lOverW.Scale(oneOverInvW)
		}
	}

	color, ok := shadeOrPassthrough(opts.Shade, frag)
	if !ok {
		return
	}

	switch {
	case scratch != nil:
		scratch.Add(x-tile.X, y-tile.Y, float32(depth), float32(color.A)/255)
	case fs != nil:
		if color.A >= OpaqueAlphaThreshold {
			fs.writeOpaque(lx, ly, color, depth)
		} else {
			fs.writeBlended(lx, ly, blendSourceOver(color, fs.color[fs.index(lx, ly)]))
		}
	}
}

func shadeOrPassthrough(shade FragmentFunc, f Fragment) (scene.Color, bool) {
	if shade == nil {
		return f.Color, true
	}
	return shade(f)
}

func min3(a, b, c float64) float64 { return math.Min(a, math.Min(b, c)) }
func max3(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
