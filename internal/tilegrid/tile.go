// Package tilegrid provides the fixed-size screen-tile bookkeeping the
// rasterizer bins triangles into: tile bounds, row-major indexing, and
// pooled allocation so a frame's binning does not churn the allocator.
package tilegrid

// Size is the edge length of a square tile in pixels. It must be >= the
// lane width the rasterizer's inner loop processes per step.
const Size = 32

// Tile is one screen-space bin. TriIndices holds indices into the frame's
// batched triangle list, appended to as triangles are binned and cleared
// (not reallocated) at the start of each frame.
type Tile struct {
	TX, TY        int // tile-grid coordinates
	X, Y          int // pixel-space origin (TX*Size, TY*Size)
	Width, Height int // actual size; edge tiles may be smaller than Size
	TriIndices    []int
}

// Reset clears the tile's triangle list for reuse without releasing its
// backing array.
func (t *Tile) Reset() {
	t.TriIndices = t.TriIndices[:0]
}

// Bounds returns the tile's pixel-space rectangle.
func (t *Tile) Bounds() (x, y, w, h int) {
	return t.X, t.Y, t.Width, t.Height
}
