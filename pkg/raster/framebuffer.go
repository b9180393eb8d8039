package raster

import "github.com/taigrr/duskraster/pkg/scene"

// FrameBuffer is a row-major color and depth buffer pair. Depth stores NDC
// z in [0,1]; Clear and ClearDepth reset it to 1 (the far plane) so any
// fragment passes the first depth test. NewFrameBuffer and Resize leave both
// planes zeroed until Clear is called.
type FrameBuffer struct {
	Width, Height int
	Color         []scene.Color
	Depth         []float64
}

// NewFrameBuffer allocates a buffer for the given pixel dimensions.
func NewFrameBuffer(width, height int) *FrameBuffer {
	fb := &FrameBuffer{
		Width:  width,
		Height: height,
		Color:  make([]scene.Color, width*height),
		Depth:  make([]float64, width*height),
	}
	return fb
}

// Resize reallocates the buffer if the dimensions changed; a no-op
// otherwise.
func (fb *FrameBuffer) Resize(width, height int) {
	if width == fb.Width && height == fb.Height {
		return
	}
	fb.Width, fb.Height = width, height
	fb.Color = make([]scene.Color, width*height)
	fb.Depth = make([]float64, width*height)
}

// Clear fills the color buffer with bg and resets depth to the far plane.
func (fb *FrameBuffer) Clear(bg scene.Color) {
	for i := range fb.Color {
		fb.Color[i] = bg
	}
	fb.ClearDepth()
}

// ClearDepth resets every depth value to 1 (the far plane), using
// copy-doubling the way the teacher's Rasterizer.ClearDepth does.
func (fb *FrameBuffer) ClearDepth() {
	n := len(fb.Depth)
	if n == 0 {
		return
	}
	fb.Depth[0] = 1
	for i := 1; i < n; i *= 2 {
		copy(fb.Depth[i:], fb.Depth[:i])
	}
}

func (fb *FrameBuffer) index(x, y int) (int, bool) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return 0, false
	}
	return y*fb.Width + x, true
}

// SetPixel writes a color at (x, y). Out-of-range coordinates are ignored.
func (fb *FrameBuffer) SetPixel(x, y int, c scene.Color) {
	if i, ok := fb.index(x, y); ok {
		fb.Color[i] = c
	}
}

// GetPixel reads the color at (x, y), returning the zero color if out of
// range.
func (fb *FrameBuffer) GetPixel(x, y int) scene.Color {
	if i, ok := fb.index(x, y); ok {
		return fb.Color[i]
	}
	return scene.Color{}
}

// RGBA8 returns the buffer contents as tightly packed, row-major RGBA
// bytes, the form an image.NRGBA or PNG encoder expects.
func (fb *FrameBuffer) RGBA8() []byte {
	out := make([]byte, 0, len(fb.Color)*4)
	for _, c := range fb.Color {
		out = append(out, c.R, c.G, c.B, c.A)
	}
	return out
}
