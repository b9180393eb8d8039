// Package parallel provides a persistent worker pool for tile-granularity
// rendering work, so a render loop pays the cost of spinning up goroutines
// once per Tiler instead of once per Draw call.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool runs a fixed set of goroutines for the lifetime of the pool,
// each pulling jobs from one shared queue. ExecuteAll submits a batch of
// jobs and blocks until every one has run (or the context is canceled),
// mirroring the errgroup.WithContext fan-out it replaces, but without
// re-spawning goroutines on every call.
type WorkerPool struct {
	jobs chan func()

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewWorkerPool starts workers goroutines (GOMAXPROCS if workers <= 0) and
// returns a pool ready to accept work. The pool must be closed with Close.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &WorkerPool{jobs: make(chan func())}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

// ExecuteAll submits every job to the pool and waits for them all to
// finish, returning the first error reported by a job or by ctx. A job that
// observes a canceled context before running is skipped entirely.
func (p *WorkerPool) ExecuteAll(ctx context.Context, jobs []func() error) error {
	if len(jobs) == 0 {
		return nil
	}

	var (
		done     sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	done.Add(len(jobs))
	for _, job := range jobs {
		job := job
		wrapped := func() {
			defer done.Done()
			select {
			case <-ctx.Done():
				errOnce.Do(func() { firstErr = ctx.Err() })
				return
			default:
			}
			if err := job(); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}

		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if closed {
			done.Done()
			continue
		}
		p.jobs <- wrapped
	}
	done.Wait()
	return firstErr
}

// Close stops accepting new work and waits for every worker goroutine to
// exit. Close is idempotent.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
}
