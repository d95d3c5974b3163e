// Package work provides the fixed worker pool that backs both stage dispatch
// and per-entity query fan-out. Jobs are plain closures; structured fan-out
// goes through ParallelDo, which always runs work on the calling goroutine
// as well, so nested fan-outs onto a saturated pool degrade toward inline
// execution instead of deadlocking.
package work

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Pool is a fixed-size worker pool. The zero value is not usable; create
// pools with New. A Pool must be closed to release its workers.
type Pool struct {
	jobs    chan func()
	size    int
	onPanic func(any)

	workerWg  sync.WaitGroup
	closeOnce sync.Once

	active atomic.Int64
	peak   atomic.Int64

	logWriter io.Writer // nil = os.Stderr
}

// New creates a pool with the given number of workers. Sizes below one
// default to runtime.NumCPU.
func New(workers int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		jobs: make(chan func(), workers),
		size: workers,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.workerWg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

// Size returns the number of worker goroutines.
func (p *Pool) Size() int { return p.size }

// Peak returns the highest number of jobs observed running concurrently
// since the pool was created.
func (p *Pool) Peak() int64 { return p.peak.Load() }

// Submit enqueues a job, blocking while the queue is full. Submitting to a
// closed pool panics.
func (p *Pool) Submit(job func()) {
	p.jobs <- job
}

// TrySubmit enqueues a job without blocking. It returns false when every
// worker is busy and the queue is full; callers are expected to run the
// job themselves in that case.
func (p *Pool) TrySubmit(job func()) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// ParallelDo runs fn(i) for every i in [0, n), spreading indices across at
// most max concurrent executors. Helpers are recruited from the pool only
// when it has capacity; the calling goroutine always participates, so the
// call completes even when the pool is fully occupied. ParallelDo returns
// after every index has been processed.
//
// fn is expected to contain its own panic handling. A panic from a helper
// is routed to the pool's panic handler; a panic on the calling goroutine
// propagates after in-flight helpers drain.
func (p *Pool) ParallelDo(n, max int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if max > n {
		max = n
	}
	if max < 1 {
		max = 1
	}

	var next atomic.Int64
	loop := func() {
		for {
			i := next.Add(1) - 1
			if i >= int64(n) {
				return
			}
			fn(int(i))
		}
	}

	var helperWg sync.WaitGroup
	defer helperWg.Wait()
	for h := 0; h < max-1; h++ {
		helperWg.Add(1)
		if !p.TrySubmit(func() {
			defer helperWg.Done()
			loop()
		}) {
			helperWg.Done()
			break
		}
	}
	loop()
}

// Close stops accepting jobs, drains the queue, and waits for all workers
// to exit. Close is idempotent.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
		p.workerWg.Wait()
	})
}

func (p *Pool) run() {
	defer p.workerWg.Done()
	for job := range p.jobs {
		p.exec(job)
	}
}

// exec runs one job, tracking concurrency and isolating panics so a bad
// job never takes a worker down with it.
func (p *Pool) exec(job func()) {
	cur := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if cur <= peak || p.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	defer p.active.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			if p.onPanic != nil {
				p.onPanic(r)
				return
			}
			fmt.Fprintf(p.logger(), "work: job panic: %v\n%s", r, debug.Stack())
		}
	}()
	job()
}

// logger returns the effective log writer (os.Stderr if unset).
func (p *Pool) logger() io.Writer {
	if p.logWriter != nil {
		return p.logWriter
	}
	return os.Stderr
}
