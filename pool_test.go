package umledit

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Compile-time interface check.
var _ interface {
	Acquire() *Renderer
	Release(*Renderer)
	Size() int
	Close() error
} = (*RendererPool)(nil)

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	gomaxprocs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{
			name:    "explicit takes priority",
			workers: 4,
			want:    4,
		},
		{
			name:    "explicit=1 for sequential",
			workers: 1,
			want:    1,
		},
		{
			name:    "zero uses auto calculation",
			workers: 0,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
		{
			name:    "negative uses auto calculation",
			workers: -3,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ResolvePoolSize(tt.workers)
			if got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

func TestRendererPool_LazyCreation(t *testing.T) {
	t.Parallel()

	var created atomic.Int32
	pool := NewRendererPool(3, func() *Renderer {
		created.Add(1)
		return NewRenderer()
	})
	defer func() { _ = pool.Close() }()

	if created.Load() != 0 {
		t.Fatal("renderers created before Acquire")
	}

	r := pool.Acquire()
	pool.Release(r)
	again := pool.Acquire()
	pool.Release(again)

	if created.Load() != 1 {
		t.Errorf("created = %d, want 1 (reuse)", created.Load())
	}
	if r != again {
		t.Error("released renderer was not reused")
	}
}

func TestRendererPool_Bounded(t *testing.T) {
	t.Parallel()

	pool := NewRendererPool(2, nil)
	defer func() { _ = pool.Close() }()

	if pool.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", pool.Size())
	}

	a := pool.Acquire()
	b := pool.Acquire()

	acquired := make(chan *Renderer)
	go func() { acquired <- pool.Acquire() }()

	select {
	case <-acquired:
		t.Fatal("Acquire() did not block when the pool was exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	pool.Release(a)
	select {
	case got := <-acquired:
		if got != a {
			t.Error("blocked Acquire() got a different renderer")
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire() still blocked after Release")
	}
	pool.Release(b)
}

func TestRendererPool_MinimumSize(t *testing.T) {
	t.Parallel()

	if got := NewRendererPool(0, nil).Size(); got != 1 {
		t.Errorf("NewRendererPool(0).Size() = %d, want 1", got)
	}
}

func TestRendererPool_ParallelRendering(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{produce: true, delay: 20 * time.Millisecond}
	work := t.TempDir()
	pool := NewRendererPool(3, func() *Renderer {
		return NewRenderer(WithJar("/opt/plantuml.jar"), WithWorkDir(work), WithRunner(runner))
	})
	defer func() { _ = pool.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := pool.Acquire()
			defer pool.Release(r)
			if _, err := r.Render(context.Background(), testMarkup, FormatPNG); err != nil {
				t.Errorf("Render() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := runner.maxActive.Load(); got < 2 || got > 3 {
		t.Errorf("max concurrent renders = %d, want 2..3", got)
	}
}

func TestRendererPool_ReleaseAfterClose(t *testing.T) {
	t.Parallel()

	pool := NewRendererPool(1, nil)
	r := pool.Acquire()
	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Must not panic or block.
	pool.Release(r)
}
