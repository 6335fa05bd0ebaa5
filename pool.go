package umledit

import (
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent JVMs; each one holds a few hundred MB.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for the JVM's own threads.
	cpuDivisor = 2
)

// RendererPool manages a pool of Renderer instances for parallel rendering.
// A Renderer serializes its own calls, so parallelism comes from holding
// several. Renderers are created lazily on first acquire.
type RendererPool struct {
	size    int
	factory func() *Renderer
	sem     chan *Renderer
	mu      sync.Mutex
	created int
	closed  bool
}

// NewRendererPool creates a pool with capacity for n renderers built by
// factory.
func NewRendererPool(n int, factory func() *Renderer) *RendererPool {
	if n < 1 {
		n = 1
	}
	if factory == nil {
		factory = func() *Renderer { return NewRenderer() }
	}

	return &RendererPool{
		size:    n,
		factory: factory,
		sem:     make(chan *Renderer, n),
	}
}

// Acquire gets a renderer from the pool, creating one if needed.
// Blocks if all renderers are in use.
func (p *RendererPool) Acquire() *Renderer {
	select {
	case r := <-p.sem:
		return r
	default:
	}

	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()
		return p.factory()
	}
	p.mu.Unlock()

	return <-p.sem
}

// Release returns a renderer to the pool. Renderers released after Close
// are dropped.
func (p *RendererPool) Release(r *Renderer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	// Never blocks: at most size renderers exist.
	p.sem <- r
}

// Close stops the pool. Renderers hold no resources between calls, so there
// is nothing else to release.
func (p *RendererPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return nil
}

// Size returns the pool capacity.
func (p *RendererPool) Size() int {
	return p.size
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is container-aware once automaxprocs has run
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
