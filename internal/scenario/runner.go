package scenario

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lodestone-games/stride"
	"github.com/lodestone-games/stride/access"
	"github.com/lodestone-games/stride/internal/memstore"
	"github.com/lodestone-games/stride/telemetry"
)

// payload is the synthetic component every scenario column holds: four
// floats, a typical small simulation component.
type payload struct {
	A, B, C, D float64
}

// RunOptions configures a measured scenario run.
type RunOptions struct {
	Frames   int
	Workers  int
	Parallel bool
	Logw     io.Writer
	Emitter  *telemetry.Emitter
}

// RunResult carries measured frame statistics and the engine's
// per-system samples.
type RunResult struct {
	Frames  int
	Total   time.Duration
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples map[string]stride.Sample
	Plan    string
}

// Run executes the scenario against an in-memory store. Every entity
// carries every declared component; each system visits its matched
// entity count and burns its per-entity cost, so the measured frames
// reflect the staged plan under real pool dispatch.
func (s *Scenario) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if opts.Frames < 1 {
		opts.Frames = 1
	}
	workers := opts.Workers
	if workers < 1 {
		workers = s.EffectiveWorkers()
	}

	store := memstore.NewStore(s.Entities)
	ids := make([]access.ComponentID, len(s.Components))
	for i, c := range s.Components {
		memstore.AddColumn[payload](store, c.ID)
		ids[i] = c.ID
	}
	for i := 0; i < s.Entities; i++ {
		store.Create(ids...)
	}

	eng := stride.New[*memstore.Store](
		stride.WithWorkers(workers),
		stride.WithParallel(opts.Parallel),
		stride.WithLogger(opts.Logw),
		stride.WithTelemetry(opts.Emitter),
	)
	defer eng.Close()

	n := s.Entities
	for i := range s.Systems {
		sys := &s.Systems[i]
		m, err := sys.Matches(n)
		if err != nil {
			return nil, fmt.Errorf("system %s: %w", sys.Name, err)
		}
		c, err := sys.CostNS(n, workers)
		if err != nil {
			return nil, fmt.Errorf("system %s: %w", sys.Name, err)
		}
		limit := uint32(m)
		perEntity := time.Duration(c)
		q := access.NewQuery(sys.Access.Touches().IDs()...)

		fn := stride.NewFunc(sys.Access, func(ctx context.Context, w *memstore.Store, dt time.Duration) error {
			return eng.Executor().ForEachEntity(w, q, func(e access.Entity) {
				if e.ID >= limit {
					return
				}
				burn(perEntity)
			})
		})
		regOpts := []stride.RegisterOption{stride.WithPriority(sys.Priority)}
		if sys.Exclusive {
			regOpts = append(regOpts, stride.Exclusive())
		}
		if err := eng.Register(sys.Name, fn, regOpts...); err != nil {
			return nil, err
		}
	}
	if err := eng.RebuildPlan(); err != nil {
		return nil, err
	}

	res := &RunResult{Frames: opts.Frames}
	const dt = 16 * time.Millisecond
	for f := 0; f < opts.Frames; f++ {
		start := time.Now()
		if err := eng.Update(ctx, store, dt); err != nil {
			return nil, err
		}
		d := time.Since(start)
		res.Total += d
		if f == 0 || d < res.Min {
			res.Min = d
		}
		if d > res.Max {
			res.Max = d
		}
	}
	res.Avg = res.Total / time.Duration(opts.Frames)
	res.Samples = eng.Samples()
	res.Plan = eng.PlanDescription()
	return res, nil
}

// burn spins for roughly d. Synthetic system cost, not a sleep: workers
// must stay busy the way real per-entity work keeps them busy.
func burn(d time.Duration) {
	if d <= 0 {
		return
	}
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}
