package work

import "io"

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the writer for panic reports from pool-run jobs.
// Nil defaults to os.Stderr.
func WithLogger(w io.Writer) Option {
	return func(p *Pool) { p.logWriter = w }
}

// WithPanicHandler routes recovered job panics to h instead of logging
// them. The handler runs on the worker goroutine that recovered.
func WithPanicHandler(h func(recovered any)) Option {
	return func(p *Pool) { p.onPanic = h }
}
