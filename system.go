// Package stride schedules entity-component systems across worker
// goroutines. Systems declare a static read/write component footprint;
// the engine compiles registrations into a staged execution plan where
// systems in the same stage never conflict, then drives each frame
// stage by stage, fanning non-conflicting systems onto a shared worker
// pool.
//
// The engine is generic over the caller's world type. It never inspects
// the world; it only hands it to systems, so any storage layout works as
// long as systems honor the footprints they declare.
package stride

import (
	"context"
	"time"

	"github.com/lodestone-games/stride/access"
)

// System is one unit of per-frame simulation logic.
//
// Access declares the system's complete component footprint. The engine
// reads it at every plan rebuild and trusts it from then on: a system
// that touches components outside its declared set breaks the isolation
// the plan guarantees.
//
// Update advances the system by dt. Systems sharing a stage run
// concurrently, so Update must only touch the world through the declared
// footprint. The context is the one passed to Engine.Update; systems
// doing their own blocking work should honor it.
type System[W any] interface {
	Access() access.Set
	Update(ctx context.Context, world W, dt time.Duration) error
}

// Func adapts a plain function to the System interface.
type Func[W any] struct {
	set access.Set
	fn  func(ctx context.Context, world W, dt time.Duration) error
}

// NewFunc wraps fn as a System with the given footprint.
func NewFunc[W any](set access.Set, fn func(ctx context.Context, world W, dt time.Duration) error) *Func[W] {
	return &Func[W]{set: set, fn: fn}
}

// Access returns the footprint the function was wrapped with.
func (f *Func[W]) Access() access.Set { return f.set }

// Update invokes the wrapped function.
func (f *Func[W]) Update(ctx context.Context, world W, dt time.Duration) error {
	return f.fn(ctx, world, dt)
}

// RegisterOption adjusts how one system is scheduled.
type RegisterOption func(*registration)

type registration struct {
	priority  int
	exclusive bool
}

// WithPriority sets the system's scheduling priority. Lower values run
// earlier; systems sharing a priority run in registration order. The
// default is zero.
func WithPriority(p int) RegisterOption {
	return func(r *registration) { r.priority = p }
}

// Exclusive marks the system as a scheduling barrier: it gets a stage of
// its own and nothing runs beside it, regardless of footprint.
func Exclusive() RegisterOption {
	return func(r *registration) { r.exclusive = true }
}
