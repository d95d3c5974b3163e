package query

import (
	"sync/atomic"

	"github.com/lodestone-games/stride/access"
	"github.com/lodestone-games/stride/work"
)

// ForEach visits every live entity matching q, handing the action a
// pointer to its T1 component. A zero-match query returns before any
// buffer or closure work happens.
func ForEach[T1 any](x *Executor, src Source, q access.Query, r1 Ref[T1], action func(e access.Entity, c1 *T1)) error {
	n := src.CountMatching(q)
	if n == 0 {
		return nil
	}
	return x.run(src, q, n, func(e access.Entity) {
		action(e, r1(e))
	})
}

// ForEach2 is ForEach over two component columns.
func ForEach2[T1, T2 any](x *Executor, src Source, q access.Query, r1 Ref[T1], r2 Ref[T2], action func(e access.Entity, c1 *T1, c2 *T2)) error {
	n := src.CountMatching(q)
	if n == 0 {
		return nil
	}
	return x.run(src, q, n, func(e access.Entity) {
		action(e, r1(e), r2(e))
	})
}

// ForEach3 is ForEach over three component columns.
func ForEach3[T1, T2, T3 any](x *Executor, src Source, q access.Query, r1 Ref[T1], r2 Ref[T2], r3 Ref[T3], action func(e access.Entity, c1 *T1, c2 *T2, c3 *T3)) error {
	n := src.CountMatching(q)
	if n == 0 {
		return nil
	}
	return x.run(src, q, n, func(e access.Entity) {
		action(e, r1(e), r2(e), r3(e))
	})
}

// ForEach4 is ForEach over four component columns.
func ForEach4[T1, T2, T3, T4 any](x *Executor, src Source, q access.Query, r1 Ref[T1], r2 Ref[T2], r3 Ref[T3], r4 Ref[T4], action func(e access.Entity, c1 *T1, c2 *T2, c3 *T3, c4 *T4)) error {
	n := src.CountMatching(q)
	if n == 0 {
		return nil
	}
	return x.run(src, q, n, func(e access.Entity) {
		action(e, r1(e), r2(e), r3(e), r4(e))
	})
}

// partial carries one worker's running accumulation. ok stays false
// until the worker has mapped its first entity, which lets Reduce work
// without asking the caller for an identity element.
type partial[A any] struct {
	value A
	ok    bool
}

// Reduce maps every live entity matching q and folds the results with
// combine. combine must be associative and commutative: entities are
// partitioned across workers and partial results merge in worker order,
// not entity order. The zero value of A is returned when nothing
// matches.
func Reduce[T1, A any](x *Executor, src Source, q access.Query, r1 Ref[T1], mapFn func(e access.Entity, c1 *T1) A, combine func(a, b A) A) (A, error) {
	var zero A
	n := src.CountMatching(q)
	if n == 0 {
		return zero, nil
	}

	buf := x.borrow(n)
	defer x.release(buf)

	ents := buf.entities[:n]
	n = src.ScanInto(q, ents)
	if n == 0 {
		return zero, nil
	}
	ents = ents[:n]

	workers := x.workersFor(n)
	var firstPanic atomic.Pointer[PanicError]
	total := work.MapReduce(x.pool, workers, func(w int) partial[A] {
		defer capturePanic(&firstPanic)
		var acc partial[A]
		lo, hi := rangeBounds(n, workers, w)
		for i := lo; i < hi; i++ {
			e := ents[i]
			if !src.IsAlive(e) {
				continue
			}
			v := mapFn(e, r1(e))
			if acc.ok {
				acc.value = combine(acc.value, v)
			} else {
				acc.value, acc.ok = v, true
			}
		}
		return acc
	}, func(a, b partial[A]) partial[A] {
		switch {
		case !a.ok:
			return b
		case !b.ok:
			return a
		default:
			return partial[A]{value: combine(a.value, b.value), ok: true}
		}
	})

	if pe := firstPanic.Load(); pe != nil {
		return zero, pe
	}
	if !total.ok {
		return zero, nil
	}
	return total.value, nil
}
