package capture

import (
	"image"
	"sync"
)

// bufferPool recycles *image.RGBA of identical bounds. Every surface owns its
// own pool, so buffers never cross export runs.
type bufferPool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex
}

func newBufferPool() *bufferPool {
	return &bufferPool{pools: make(map[image.Rectangle]*sync.Pool)}
}

func (p *bufferPool) get(rect image.Rectangle) *image.RGBA {
	p.mu.RLock()
	pool, exists := p.pools[rect]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[rect]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewRGBA(rect)
				},
			}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

func (p *bufferPool) put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[img.Rect]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}

// drain forgets every pooled buffer.
func (p *bufferPool) drain() {
	p.mu.Lock()
	p.pools = make(map[image.Rectangle]*sync.Pool)
	p.mu.Unlock()
}
