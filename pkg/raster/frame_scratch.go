package raster

import (
	"sync"

	"github.com/taigrr/duskraster/internal/tilegrid"
	"github.com/taigrr/duskraster/pkg/scene"
)

// frameState is a tile-sized scratch copy of a FrameBuffer's color and
// depth planes. A tile's worker rasterizes entirely into its own frameState
// (loaded from the shared FrameBuffer at the start of the tile and merged
// back at the end), the same load-then-merge shape dsmScratchPool gives the
// shadow pass, so no tile ever holds a live pointer into the shared buffer
// across worker pool jobs. touched marks which scratch pixels a fragment
// actually wrote (passed the depth test), so mergeInto only copies back
// pixels this tile's rasterization pass changed.
type frameState struct {
	width, height int
	color         []scene.Color
	depth         []float64
	touched       []bool
}

func newFrameState() *frameState {
	return &frameState{
		color:   make([]scene.Color, tilegrid.Size*tilegrid.Size),
		depth:   make([]float64, tilegrid.Size*tilegrid.Size),
		touched: make([]bool, tilegrid.Size*tilegrid.Size),
	}
}

func (fs *frameState) index(x, y int) int { return y*fs.width + x }

// loadFrom copies the FrameBuffer region at (originX, originY) sized
// width x height into the scratch buffer and clears the touched mask.
func (fs *frameState) loadFrom(fb *FrameBuffer, originX, originY, width, height int) {
	fs.width, fs.height = width, height
	for y := range height {
		srcRow := (originY+y)*fb.Width + originX
		dstRow := y * width
		copy(fs.color[dstRow:dstRow+width], fb.Color[srcRow:srcRow+width])
		copy(fs.depth[dstRow:dstRow+width], fb.Depth[srcRow:srcRow+width])
		clear(fs.touched[dstRow : dstRow+width])
	}
}

// depthAt returns the scratch buffer's current depth at local coordinates,
// the value rasterizeTriangleInTile's depth test runs against.
func (fs *frameState) depthAt(x, y int) float64 {
	return fs.depth[fs.index(x, y)]
}

// writeDepth records a depth-only write (the depth pre-pass) at local
// coordinates, marking the pixel touched for the merge.
func (fs *frameState) writeDepth(x, y int, depth float64) {
	i := fs.index(x, y)
	fs.depth[i] = depth
	fs.touched[i] = true
}

// writeOpaque records an opaque fragment's color and depth at local
// coordinates.
func (fs *frameState) writeOpaque(x, y int, c scene.Color, depth float64) {
	i := fs.index(x, y)
	fs.color[i] = c
	fs.depth[i] = depth
	fs.touched[i] = true
}

// writeBlended records a translucent fragment's blended color at local
// coordinates, leaving depth untouched (only opaque fragments write depth;
// see shadeFragmentPixel).
func (fs *frameState) writeBlended(x, y int, c scene.Color) {
	i := fs.index(x, y)
	fs.color[i] = c
	fs.touched[i] = true
}

// mergeInto copies every touched scratch pixel back into fb at
// (originX, originY). Untouched pixels are left alone: the tile's
// rasterization pass never wrote them, so the depth test already decided
// they keep whatever the shared buffer held before this Draw call.
func (fs *frameState) mergeInto(fb *FrameBuffer, originX, originY int) {
	for y := range fs.height {
		dstRow := (originY+y)*fb.Width + originX
		srcRow := y * fs.width
		for x := range fs.width {
			si, di := srcRow+x, dstRow+x
			if !fs.touched[si] {
				continue
			}
			fb.Color[di] = fs.color[si]
			fb.Depth[di] = fs.depth[si]
		}
	}
}

// frameScratchPool recycles tile-sized frameStates across Draw calls and
// frames, avoiding a color+depth+touched slice allocation per tile per
// frame.
type frameScratchPool struct {
	pool sync.Pool
}

func newFrameScratchPool() frameScratchPool {
	return frameScratchPool{pool: sync.Pool{New: func() any { return newFrameState() }}}
}

func (p *frameScratchPool) get(fb *FrameBuffer, originX, originY, width, height int) *frameState {
	fs := p.pool.Get().(*frameState)
	fs.loadFrom(fb, originX, originY, width, height)
	return fs
}

func (p *frameScratchPool) put(fs *frameState) {
	p.pool.Put(fs)
}
