package stride

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/lodestone-games/stride/access"
	"github.com/lodestone-games/stride/internal/memstore"
	"github.com/lodestone-games/stride/query"
)

type benchVec struct{ X, Y float64 }

// BenchmarkEngineFrame drives a three-system physics frame, the shape the
// engine runs in practice: a write stage, a dependent integrate stage, and
// a read-only reduce.
func BenchmarkEngineFrame(b *testing.B) {
	sizes := []int{1000, 10000, 100000}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("%dK", size/1000), func(b *testing.B) {
			store := memstore.NewStore(size)
			memstore.AddColumn[benchVec](store, posID)
			memstore.AddColumn[benchVec](store, velID)
			pos := memstore.Ref[benchVec](store, posID)
			vel := memstore.Ref[benchVec](store, velID)
			for i := 0; i < size; i++ {
				store.Create(posID, velID)
			}

			e := New[*memstore.Store](WithLogger(io.Discard))
			defer e.Close()
			reg := func(name string, set access.Set, prio int, fn func(ctx context.Context, w *memstore.Store, dt time.Duration) error) {
				if err := e.Register(name, NewFunc(set, fn), WithPriority(prio)); err != nil {
					b.Fatalf("Register(%q): %v", name, err)
				}
			}

			moving := access.NewQuery(posID, velID)
			reg("apply-forces", access.WriteOnly(velID), 5,
				func(ctx context.Context, w *memstore.Store, dt time.Duration) error {
					return query.ForEach(e.Executor(), w, access.NewQuery(velID), vel,
						func(en access.Entity, v *benchVec) {
							v.Y -= 9.8 * dt.Seconds()
						})
				})
			reg("integrate", access.NewSet([]access.ComponentID{velID}, []access.ComponentID{posID}), 10,
				func(ctx context.Context, w *memstore.Store, dt time.Duration) error {
					return query.ForEach2(e.Executor(), w, moving, pos, vel,
						func(en access.Entity, p, v *benchVec) {
							p.X += v.X * dt.Seconds()
							p.Y += v.Y * dt.Seconds()
						})
				})
			reg("bounds", access.ReadOnly(posID), 20,
				func(ctx context.Context, w *memstore.Store, dt time.Duration) error {
					_, err := query.Reduce(e.Executor(), w, access.NewQuery(posID), pos,
						func(en access.Entity, p *benchVec) float64 { return p.Y },
						func(a, b float64) float64 {
							if a < b {
								return a
							}
							return b
						})
					return err
				})
			if err := e.RebuildPlan(); err != nil {
				b.Fatalf("RebuildPlan: %v", err)
			}

			ctx := context.Background()
			dt := 16 * time.Millisecond
			for b.Loop() {
				if err := e.Update(ctx, store, dt); err != nil {
					b.Fatalf("Update: %v", err)
				}
			}
			b.ReportAllocs()
		})
	}
}

// BenchmarkEngineFrameSequential is the same frame with parallel dispatch
// off, the baseline any fan-out win is measured against.
func BenchmarkEngineFrameSequential(b *testing.B) {
	const size = 10000

	store := memstore.NewStore(size)
	memstore.AddColumn[benchVec](store, posID)
	memstore.AddColumn[benchVec](store, velID)
	pos := memstore.Ref[benchVec](store, posID)
	vel := memstore.Ref[benchVec](store, velID)
	for i := 0; i < size; i++ {
		store.Create(posID, velID)
	}

	e := New[*memstore.Store](WithParallel(false), WithWorkers(1), WithLogger(io.Discard))
	defer e.Close()
	if err := e.Register("integrate",
		NewFunc(access.NewSet([]access.ComponentID{velID}, []access.ComponentID{posID}),
			func(ctx context.Context, w *memstore.Store, dt time.Duration) error {
				return query.ForEach2(e.Executor(), w, access.NewQuery(posID, velID), pos, vel,
					func(en access.Entity, p, v *benchVec) {
						p.X += v.X * dt.Seconds()
					})
			})); err != nil {
		b.Fatalf("Register: %v", err)
	}
	if err := e.RebuildPlan(); err != nil {
		b.Fatalf("RebuildPlan: %v", err)
	}

	ctx := context.Background()
	dt := 16 * time.Millisecond
	for b.Loop() {
		if err := e.Update(ctx, store, dt); err != nil {
			b.Fatalf("Update: %v", err)
		}
	}
	b.ReportAllocs()
}
