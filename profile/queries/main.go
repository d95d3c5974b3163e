// Profiling:
// go build ./profile/queries
// go tool pprof -http=":8000" -nodefraction=0.001 ./queries mem.pprof
//
// The allocation profile should show no per-call growth once the entity
// buffers reach steady state.

package main

import (
	"github.com/pkg/profile"

	"github.com/lodestone-games/stride/access"
	"github.com/lodestone-games/stride/internal/memstore"
	"github.com/lodestone-games/stride/query"
	"github.com/lodestone-games/stride/work"
)

const (
	posID access.ComponentID = iota
	velID
)

type position struct {
	X, Y float64
}

type velocity struct {
	X, Y float64
}

func main() {
	rounds := 50
	iters := 2000
	entities := 100000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	pool := work.New(0)
	defer pool.Close()
	exec := query.NewExecutor(pool)

	for range rounds {
		w := memstore.NewStore(numEntities)
		memstore.AddColumn[position](w, posID)
		memstore.AddColumn[velocity](w, velID)
		for i := 0; i < numEntities; i++ {
			w.Create(posID, velID)
		}

		pos := memstore.Ref[position](w, posID)
		vel := memstore.Ref[velocity](w, velID)
		q := access.NewQuery(posID, velID)

		for range iters {
			_ = query.ForEach2(exec, w, q, pos, vel, func(_ access.Entity, p *position, v *velocity) {
				p.X += v.X
				p.Y += v.Y
			})
			_, _ = query.Reduce(exec, w, q, pos, func(_ access.Entity, p *position) float64 {
				return p.X
			}, func(a, b float64) float64 {
				return a + b
			})
		}
	}
}
