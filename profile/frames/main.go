// Profiling:
// go build ./profile/frames
// go tool pprof -http=":8000" -nodefraction=0.001 ./frames cpu.pprof
//
// Profiles whole frames through the engine: stage dispatch, pool fan-out,
// and the query path together.

package main

import (
	"context"
	"time"

	"github.com/pkg/profile"

	"github.com/lodestone-games/stride"
	"github.com/lodestone-games/stride/access"
	"github.com/lodestone-games/stride/internal/memstore"
	"github.com/lodestone-games/stride/query"
)

const (
	posID access.ComponentID = iota
	velID
	hpID
)

type position struct {
	X, Y float64
}

type velocity struct {
	X, Y float64
}

type health struct {
	Current, Regen float64
}

func main() {
	frames := 5000
	entities := 50000
	p := profile.Start(profile.ProfilePath("."), profile.NoShutdownHook)
	run(frames, entities)
	p.Stop()
}

func run(frames, numEntities int) {
	w := memstore.NewStore(numEntities)
	memstore.AddColumn[position](w, posID)
	memstore.AddColumn[velocity](w, velID)
	memstore.AddColumn[health](w, hpID)
	for i := 0; i < numEntities; i++ {
		w.Create(posID, velID, hpID)
	}

	pos := memstore.Ref[position](w, posID)
	vel := memstore.Ref[velocity](w, velID)
	hp := memstore.Ref[health](w, hpID)

	moving := access.NewQuery(posID, velID)
	living := access.NewQuery(hpID)
	placed := access.NewQuery(posID)

	eng := stride.New[*memstore.Store]()
	defer eng.Close()

	_ = eng.Register("apply-forces", stride.NewFunc(
		access.WriteOnly(velID),
		func(ctx context.Context, w *memstore.Store, dt time.Duration) error {
			return query.ForEach(eng.Executor(), w, access.NewQuery(velID), vel, func(_ access.Entity, v *velocity) {
				v.Y -= 9.8 * dt.Seconds()
			})
		}), stride.WithPriority(5))

	_ = eng.Register("integrate", stride.NewFunc(
		access.NewSet([]access.ComponentID{velID}, []access.ComponentID{posID}),
		func(ctx context.Context, w *memstore.Store, dt time.Duration) error {
			step := dt.Seconds()
			return query.ForEach2(eng.Executor(), w, moving, pos, vel, func(_ access.Entity, p *position, v *velocity) {
				p.X += v.X * step
				p.Y += v.Y * step
			})
		}), stride.WithPriority(10))

	_ = eng.Register("regen", stride.NewFunc(
		access.WriteOnly(hpID),
		func(ctx context.Context, w *memstore.Store, dt time.Duration) error {
			return query.ForEach(eng.Executor(), w, living, hp, func(_ access.Entity, h *health) {
				h.Current += h.Regen * dt.Seconds()
			})
		}), stride.WithPriority(10))

	_ = eng.Register("bounds", stride.NewFunc(
		access.ReadOnly(posID),
		func(ctx context.Context, w *memstore.Store, dt time.Duration) error {
			_, err := query.Reduce(eng.Executor(), w, placed, pos, func(_ access.Entity, p *position) float64 {
				return p.Y
			}, func(a, b float64) float64 {
				if a < b {
					return a
				}
				return b
			})
			return err
		}), stride.WithPriority(20))

	_ = eng.RebuildPlan()

	ctx := context.Background()
	dt := 16 * time.Millisecond
	for range frames {
		_ = eng.Update(ctx, w, dt)
	}
}
