package stride

import (
	"io"

	"github.com/lodestone-games/stride/telemetry"
	"github.com/lodestone-games/stride/work"
)

// settings collects engine construction knobs. Options stay non-generic
// so call sites never spell out the world type twice.
type settings struct {
	workers  int
	parallel bool
	logw     io.Writer
	emitter  *telemetry.Emitter
	pool     *work.Pool
	onError  func(*SystemError)
}

// Option configures an Engine at construction time.
type Option func(*settings)

// WithWorkers sets the worker pool size. Values below one default to the
// number of CPUs. Ignored when WithPool supplies a pool.
func WithWorkers(n int) Option {
	return func(s *settings) { s.workers = n }
}

// WithParallel toggles concurrent stage dispatch. When disabled the
// engine runs every stage on the calling goroutine in plan order, which
// is useful for debugging and for bisecting data races.
func WithParallel(enabled bool) Option {
	return func(s *settings) { s.parallel = enabled }
}

// WithLogger sets the log output writer. Nil defaults to os.Stderr.
func WithLogger(w io.Writer) Option {
	return func(s *settings) { s.logw = w }
}

// WithTelemetry attaches a telemetry emitter. The engine records plan
// rebuilds, stage and frame completions, and system errors. The caller
// owns the emitter and closes it after the engine.
func WithTelemetry(em *telemetry.Emitter) Option {
	return func(s *settings) { s.emitter = em }
}

// WithPool shares an existing worker pool instead of creating one. The
// caller owns the pool; Engine.Close will not close it.
func WithPool(p *work.Pool) Option {
	return func(s *settings) { s.pool = p }
}

// WithErrorHandler sets a callback invoked for every system failure.
// The handler may be called from worker goroutines and must be safe for
// concurrent use. Failures are logged and sampled whether or not a
// handler is set.
func WithErrorHandler(fn func(*SystemError)) Option {
	return func(s *settings) { s.onError = fn }
}
