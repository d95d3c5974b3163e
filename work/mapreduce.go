package work

// MapReduce runs mapFn once per worker slot in [0, workers) across the pool
// and folds the per-worker results with reduceFn. Each slot writes only its
// own partial, so mapFn needs no synchronization of its own. reduceFn must
// be associative and commutative: the fold order over partials is fixed,
// but which indices land in which slot is not.
//
// workers values below one default to the pool size.
func MapReduce[A any](p *Pool, workers int, mapFn func(worker int) A, reduceFn func(a, b A) A) A {
	if workers < 1 {
		workers = p.Size()
	}
	partials := make([]A, workers)
	p.ParallelDo(workers, workers, func(w int) {
		partials[w] = mapFn(w)
	})
	acc := partials[0]
	for _, part := range partials[1:] {
		acc = reduceFn(acc, part)
	}
	return acc
}
