package stride

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lodestone-games/stride/query"
	"github.com/lodestone-games/stride/schedule"
	"github.com/lodestone-games/stride/telemetry"
	"github.com/lodestone-games/stride/work"
)

// State reports where the engine is in its lifecycle.
type State int32

const (
	// Unconfigured means no plan has been built yet; Update fails.
	Unconfigured State = iota
	// PlanBuilt means a plan is published and frames may run.
	PlanBuilt
	// Running means a frame is in flight right now.
	Running
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case PlanBuilt:
		return "plan-built"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Engine compiles registered systems into a staged plan and drives them
// frame by frame. Registration and rebuilds are mutex-guarded; frames
// read an immutable published snapshot, so a rebuild never disturbs a
// frame already in flight.
//
// One goroutine drives frames. Registration, rebuilds, and a second
// Update overlapping a frame fail fast with ErrUpdateRunning rather
// than blocking.
type Engine[W any] struct {
	mu        sync.Mutex
	systems   map[string]*systemEntry[W]
	nextOrder int

	published atomic.Pointer[frame[W]]
	updating  atomic.Bool
	version   atomic.Uint64
	frames    atomic.Uint64

	pool     *work.Pool
	ownsPool bool
	exec     *query.Executor
	parallel bool
	samples  *sampleTable
	emitter  *telemetry.Emitter
	onError  func(*SystemError)
	logw     io.Writer
}

// systemEntry is the engine's record of one registration. The plan
// snapshot holds pointers to entries, so a published plan keeps running
// the systems it was built from even after an unregister.
type systemEntry[W any] struct {
	name      string
	sys       System[W]
	priority  int
	exclusive bool
	order     int
}

// stageRun is one stage of the published snapshot with system handles
// resolved.
type stageRun[W any] struct {
	number    int
	exclusive bool
	systems   []*systemEntry[W]
}

// frame is the immutable compiled form of a plan. Update loads one
// frame pointer and works off it for the whole tick.
type frame[W any] struct {
	plan    *schedule.Plan
	stages  []stageRun[W]
	version uint64
}

// New creates an engine for world type W. Without WithPool the engine
// creates and owns a worker pool sized by WithWorkers.
func New[W any](opts ...Option) *Engine[W] {
	s := settings{parallel: true}
	for _, opt := range opts {
		opt(&s)
	}

	e := &Engine[W]{
		systems:  make(map[string]*systemEntry[W]),
		parallel: s.parallel,
		samples:  newSampleTable(),
		emitter:  s.emitter,
		onError:  s.onError,
		logw:     s.logw,
	}
	if s.pool != nil {
		e.pool = s.pool
	} else {
		e.pool = work.New(s.workers, work.WithLogger(s.logw))
		e.ownsPool = true
	}
	e.exec = query.NewExecutor(e.pool)
	return e
}

// Close releases the worker pool when the engine owns it. Shared pools
// and telemetry emitters belong to the caller and stay open.
func (e *Engine[W]) Close() {
	if e.ownsPool {
		e.pool.Close()
	}
}

// Register adds a system under a unique name. The name is the system's
// identity for unregistering, plan output, and samples. Registration
// does not touch the published plan; call RebuildPlan to schedule the
// new system.
func (e *Engine[W]) Register(name string, sys System[W], opts ...RegisterOption) error {
	if e.updating.Load() {
		return fmt.Errorf("%w: cannot register %q mid-frame", ErrUpdateRunning, name)
	}
	if name == "" {
		return ErrEmptyName
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.systems[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSystem, name)
	}

	var reg registration
	for _, opt := range opts {
		opt(&reg)
	}
	e.systems[name] = &systemEntry[W]{
		name:      name,
		sys:       sys,
		priority:  reg.priority,
		exclusive: reg.exclusive,
		order:     e.nextOrder,
	}
	e.nextOrder++
	return nil
}

// Unregister removes a system by name. The published plan is a snapshot:
// it keeps running the old system set until the next RebuildPlan.
func (e *Engine[W]) Unregister(name string) error {
	if e.updating.Load() {
		return fmt.Errorf("%w: cannot unregister %q mid-frame", ErrUpdateRunning, name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.systems[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSystem, name)
	}
	delete(e.systems, name)
	return nil
}

// RebuildPlan compiles the current registrations into a new plan and
// publishes it atomically. Every system's Access is re-read here, so a
// system whose footprint changed since the last rebuild is re-staged.
// Rebuilding with zero systems publishes an empty plan; Update then
// succeeds as a no-op.
func (e *Engine[W]) RebuildPlan() error {
	if e.updating.Load() {
		return fmt.Errorf("%w: cannot rebuild plan mid-frame", ErrUpdateRunning)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	nodes := make([]schedule.Node, 0, len(e.systems))
	entries := make(map[string]*systemEntry[W], len(e.systems))
	for name, ent := range e.systems {
		nodes = append(nodes, schedule.Node{
			Name:      name,
			Access:    ent.sys.Access(),
			Priority:  ent.priority,
			Exclusive: ent.exclusive,
			Order:     ent.order,
		})
		entries[name] = ent
	}

	g, err := schedule.BuildGraph(nodes)
	if err != nil {
		return err
	}
	plan := g.Plan()
	plan.Version = e.version.Add(1)

	f := &frame[W]{plan: plan, version: plan.Version}
	for _, st := range plan.Stages {
		run := stageRun[W]{number: st.Number, exclusive: st.Exclusive}
		for _, n := range st.Nodes {
			run.systems = append(run.systems, entries[n.Name])
		}
		f.stages = append(f.stages, run)
	}
	e.published.Store(f)

	e.logf("plan v%d published: %d stages, %d systems, max width %d",
		plan.Version, plan.Len(), plan.SystemCount(), plan.Width())
	e.emit(telemetry.Event{
		Kind: telemetry.KindPlanRebuilt,
		Data: map[string]any{
			"version": plan.Version,
			"stages":  plan.Len(),
			"systems": plan.SystemCount(),
			"width":   plan.Width(),
		},
	})
	return nil
}

// Update runs one frame against the published plan. Stages run in plan
// order; systems inside a stage fan out across the pool unless parallel
// dispatch is disabled. System failures are isolated: they are sampled,
// logged, and handed to the error handler, and the frame carries on.
// Update itself fails only for lifecycle reasons (no plan, overlapping
// frame) or when ctx is done at a stage boundary; a frame never stops
// mid-stage.
func (e *Engine[W]) Update(ctx context.Context, world W, dt time.Duration) error {
	f := e.published.Load()
	if f == nil {
		return ErrNoPlan
	}
	if !e.updating.CompareAndSwap(false, true) {
		return ErrUpdateRunning
	}
	defer e.updating.Store(false)

	frameNo := e.frames.Add(1)
	frameStart := time.Now()
	for i := range f.stages {
		st := &f.stages[i]
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("frame %d halted before stage %d: %w", frameNo, st.number, err)
		}
		stageStart := time.Now()
		e.runStage(ctx, st, world, dt, frameNo)
		e.emit(telemetry.Event{
			Kind:     telemetry.KindStageDone,
			Frame:    frameNo,
			Stage:    st.number,
			Duration: time.Since(stageStart),
		})
	}
	e.emit(telemetry.Event{
		Kind:     telemetry.KindFrameDone,
		Frame:    frameNo,
		Duration: time.Since(frameStart),
	})
	return nil
}

// runStage executes every system in one stage. Fan-out goes through the
// pool with the frame goroutine participating, so a stage always makes
// progress even on a saturated pool.
func (e *Engine[W]) runStage(ctx context.Context, st *stageRun[W], world W, dt time.Duration, frameNo uint64) {
	n := len(st.systems)
	if e.parallel && n > 1 {
		e.pool.ParallelDo(n, n, func(i int) {
			e.runSystem(ctx, st.systems[i], st.number, world, dt, frameNo)
		})
		return
	}
	for _, ent := range st.systems {
		e.runSystem(ctx, ent, st.number, world, dt, frameNo)
	}
}

// runSystem times one system invocation and routes any failure.
func (e *Engine[W]) runSystem(ctx context.Context, ent *systemEntry[W], stage int, world W, dt time.Duration, frameNo uint64) {
	start := time.Now()
	err := e.callSystem(ctx, ent, world, dt)
	elapsed := time.Since(start)
	e.samples.record(ent.name, elapsed, err != nil)
	if err == nil {
		return
	}

	serr := &SystemError{System: ent.name, Stage: stage, Frame: frameNo, Elapsed: elapsed, Err: err}
	e.logf("%v", serr)
	e.emit(telemetry.Event{
		Kind:     telemetry.KindSystemError,
		Frame:    frameNo,
		Stage:    stage,
		System:   ent.name,
		Duration: elapsed,
		Error:    err.Error(),
	})
	if e.onError != nil {
		e.onError(serr)
	}
}

// callSystem isolates one system invocation, converting a panic into an
// error so a bad system cannot take the frame down.
func (e *Engine[W]) callSystem(ctx context.Context, ent *systemEntry[W], world W, dt time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			e.logf("system %s panic: %v\n%s", ent.name, r, debug.Stack())
		}
	}()
	return ent.sys.Update(ctx, world, dt)
}

// State reports the engine's lifecycle state.
func (e *Engine[W]) State() State {
	if e.updating.Load() {
		return Running
	}
	if e.published.Load() == nil {
		return Unconfigured
	}
	return PlanBuilt
}

// Version returns the published plan's version, or zero before the
// first rebuild.
func (e *Engine[W]) Version() uint64 {
	if f := e.published.Load(); f != nil {
		return f.version
	}
	return 0
}

// Frames returns how many frames have started.
func (e *Engine[W]) Frames() uint64 { return e.frames.Load() }

// PlanDescription renders the published plan for humans.
func (e *Engine[W]) PlanDescription() string {
	if f := e.published.Load(); f != nil {
		return f.plan.Describe()
	}
	return (*schedule.Plan)(nil).Describe()
}

// Systems returns the registered system names, sorted.
func (e *Engine[W]) Systems() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.systems))
	for name := range e.systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Samples returns a deep copy of the per-system timing table.
func (e *Engine[W]) Samples() map[string]Sample {
	return e.samples.snapshot()
}

// ResetSamples clears the timing table.
func (e *Engine[W]) ResetSamples() {
	e.samples.reset()
}

// Executor returns the query executor systems use to fan per-entity
// work onto the engine's pool.
func (e *Engine[W]) Executor() *query.Executor { return e.exec }

// Pool returns the engine's worker pool for ad hoc job submission.
func (e *Engine[W]) Pool() *work.Pool { return e.pool }

func (e *Engine[W]) emit(evt telemetry.Event) {
	if err := e.emitter.Emit(evt); err != nil {
		e.logf("telemetry: %v", err)
	}
}

func (e *Engine[W]) logf(format string, args ...any) {
	fmt.Fprintf(e.logger(), "stride: "+format+"\n", args...)
}

// logger returns the effective log writer (os.Stderr if unset).
func (e *Engine[W]) logger() io.Writer {
	if e.logw != nil {
		return e.logw
	}
	return os.Stderr
}
