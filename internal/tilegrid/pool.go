package tilegrid

import "sync"

// TilePool recycles Tile values (specifically their TriIndices backing
// arrays) across frames and across grid resizes.
type TilePool struct {
	pool sync.Pool
}

// NewTilePool creates an empty pool.
func NewTilePool() *TilePool {
	return &TilePool{pool: sync.Pool{New: func() any { return &Tile{} }}}
}

// Get returns a Tile sized for (w, h), reusing a pooled instance when
// available.
func (p *TilePool) Get(w, h int) *Tile {
	t := p.pool.Get().(*Tile)
	t.Width, t.Height = w, h
	t.TriIndices = t.TriIndices[:0]
	return t
}

// Put returns a tile to the pool for reuse.
func (p *TilePool) Put(t *Tile) {
	p.pool.Put(t)
}
