package raster

import (
	"sync"

	"github.com/taigrr/duskraster/internal/tilegrid"
)

// dsmScratchPool recycles tile-sized DeepShadowMaps, one per worker
// goroutine's in-flight tile, so the shadow pass doesn't allocate a
// VisibilityFunction slice per tile per frame.
type dsmScratchPool struct {
	pool sync.Pool
}

func newDSMScratchPool() dsmScratchPool {
	return dsmScratchPool{pool: sync.Pool{New: func() any { return NewDeepShadowMap(tilegrid.Size, tilegrid.Size) }}}
}

func (p *dsmScratchPool) get(w, h int) *DeepShadowMap {
	d := p.pool.Get().(*DeepShadowMap)
	if d.Width != w || d.Height != h {
		d = NewDeepShadowMap(w, h)
	} else {
		d.Reset()
	}
	return d
}

func (p *dsmScratchPool) put(d *DeepShadowMap) {
	p.pool.Put(d)
}
