package query

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/lodestone-games/stride/access"
	"github.com/lodestone-games/stride/work"
)

// Executor fans per-entity work across a fixed worker pool. One executor
// is safe for concurrent use by every system in a stage; the entity
// buffers behind it are pooled per call.
type Executor struct {
	pool    *work.Pool
	degree  int
	buffers sync.Pool
}

// Option configures an Executor.
type Option func(*Executor)

// WithDegree caps how many workers one query fans out across. Values
// below one fall back to the pool size.
func WithDegree(n int) Option {
	return func(x *Executor) { x.degree = n }
}

// NewExecutor creates an executor over the given pool. The default degree
// of parallelism is the pool size.
func NewExecutor(pool *work.Pool, opts ...Option) *Executor {
	x := &Executor{
		pool:   pool,
		degree: pool.Size(),
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.degree < 1 {
		x.degree = pool.Size()
	}
	x.buffers.New = func() any { return &buffer{} }
	return x
}

// Degree returns the configured fan-out width.
func (x *Executor) Degree() int { return x.degree }

// ForEachEntity visits every entity matching q without resolving any
// component refs. Dead handles left behind by the scan are skipped.
func (x *Executor) ForEachEntity(src Source, q access.Query, action func(e access.Entity)) error {
	n := src.CountMatching(q)
	if n == 0 {
		return nil
	}
	return x.run(src, q, n, action)
}

// run is the shared fan-out core: scan once, partition [0, n) into one
// contiguous range per worker, visit live entities. The buffer goes back
// to the pool on every path out, including an action panic.
func (x *Executor) run(src Source, q access.Query, n int, visit func(access.Entity)) error {
	buf := x.borrow(n)
	defer x.release(buf)

	ents := buf.entities[:n]
	n = src.ScanInto(q, ents)
	if n == 0 {
		return nil
	}
	ents = ents[:n]

	workers := x.workersFor(n)
	var firstPanic atomic.Pointer[PanicError]
	x.pool.ParallelDo(workers, workers, func(w int) {
		defer capturePanic(&firstPanic)
		lo, hi := rangeBounds(n, workers, w)
		for i := lo; i < hi; i++ {
			e := ents[i]
			if !src.IsAlive(e) {
				continue
			}
			visit(e)
		}
	})

	if pe := firstPanic.Load(); pe != nil {
		return pe
	}
	return nil
}

// workersFor clamps the fan-out width to the work available.
func (x *Executor) workersFor(n int) int {
	w := x.degree
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// rangeBounds returns worker w's contiguous slice of [0, n).
func rangeBounds(n, workers, w int) (lo, hi int) {
	lo = w * n / workers
	hi = (w + 1) * n / workers
	return lo, hi
}

// capturePanic records the first action panic; later ones are dropped.
func capturePanic(slot *atomic.Pointer[PanicError]) {
	if r := recover(); r != nil {
		slot.CompareAndSwap(nil, &PanicError{Value: r, Stack: debug.Stack()})
	}
}

// buffer is pooled entity scratch space. Capacity grows to the largest
// match count seen and never shrinks.
type buffer struct {
	entities []access.Entity
}

func (x *Executor) borrow(n int) *buffer {
	b := x.buffers.Get().(*buffer)
	if cap(b.entities) < n {
		b.entities = make([]access.Entity, growCap(cap(b.entities), n))
	}
	b.entities = b.entities[:cap(b.entities)]
	return b
}

func (x *Executor) release(b *buffer) {
	x.buffers.Put(b)
}

func growCap(cur, need int) int {
	if cur < 256 {
		cur = 256
	}
	for cur < need {
		cur *= 2
	}
	return cur
}
