package tilegrid

// Grid manages a flat, row-major slice of tiles covering a canvas of a
// given pixel size. Edge tiles are smaller than Size when the canvas isn't
// evenly divisible.
type Grid struct {
	tiles          []*Tile
	tilesX, tilesY int
	width, height  int
	pool           *TilePool
}

// New creates a tile grid covering width x height pixels.
func New(width, height int) *Grid {
	g := &Grid{pool: NewTilePool()}
	g.Resize(width, height)
	return g
}

// Resize reallocates the grid for new canvas dimensions. A no-op if the
// dimensions are unchanged.
func (g *Grid) Resize(width, height int) {
	if width == g.width && height == g.height {
		return
	}
	g.release()
	g.width, g.height = width, height
	if width <= 0 || height <= 0 {
		g.tiles, g.tilesX, g.tilesY = nil, 0, 0
		return
	}
	g.tilesX = (width + Size - 1) / Size
	g.tilesY = (height + Size - 1) / Size
	g.tiles = make([]*Tile, g.tilesX*g.tilesY)
	for ty := range g.tilesY {
		for tx := range g.tilesX {
			w, h := Size, Size
			if (tx+1)*Size > width {
				w = width - tx*Size
			}
			if (ty+1)*Size > height {
				h = height - ty*Size
			}
			tile := g.pool.Get(w, h)
			tile.TX, tile.TY = tx, ty
			tile.X, tile.Y = tx*Size, ty*Size
			g.tiles[ty*g.tilesX+tx] = tile
		}
	}
}

func (g *Grid) release() {
	for i, t := range g.tiles {
		if t != nil {
			g.pool.Put(t)
			g.tiles[i] = nil
		}
	}
}

// TilesX returns the number of tile columns.
func (g *Grid) TilesX() int { return g.tilesX }

// TilesY returns the number of tile rows.
func (g *Grid) TilesY() int { return g.tilesY }

// TileAt returns the tile at tile-grid coordinates (tx, ty), or nil if out
// of range.
func (g *Grid) TileAt(tx, ty int) *Tile {
	if tx < 0 || tx >= g.tilesX || ty < 0 || ty >= g.tilesY {
		return nil
	}
	return g.tiles[ty*g.tilesX+tx]
}

// All returns every tile in row-major order. The returned slice must not be
// modified or retained past the next Resize.
func (g *Grid) All() []*Tile {
	return g.tiles
}

// ResetAll clears every tile's triangle list for a new frame.
func (g *Grid) ResetAll() {
	for _, t := range g.tiles {
		t.Reset()
	}
}

// TileRangeForRect returns the inclusive tile-coordinate range [tx0,tx1] x
// [ty0,ty1] overlapping the pixel rectangle (x,y,w,h), clamped to the grid.
func (g *Grid) TileRangeForRect(x, y, w, h int) (tx0, ty0, tx1, ty1 int) {
	x0 := max(x, 0)
	y0 := max(y, 0)
	x1 := min(x+w, g.width)
	y1 := min(y+h, g.height)
	if x1 <= x0 || y1 <= y0 {
		return 0, 0, -1, -1
	}
	return x0 / Size, y0 / Size, (x1 - 1) / Size, (y1 - 1) / Size
}
