// Package query executes one system's entity iteration as a data-parallel
// fan-out. The storage engine enumerates matching entities into a pooled
// buffer once, single-threaded; the index range is then partitioned across
// the worker pool and the caller's action runs per entity. The only
// ordering guarantee is that every matching entity is visited exactly once.
//
// The hot path stays off the heap: entity buffers are pooled and grow
// without ever shrinking, and a query that matches nothing returns before
// touching the pool at all.
package query

import (
	"fmt"

	"github.com/lodestone-games/stride/access"
)

// Source is the storage engine as the executor sees it. CountMatching and
// ScanInto are called once per query from a single goroutine; IsAlive must
// be safe to call from worker goroutines while the scan result is walked.
type Source interface {
	// CountMatching returns the number of entities currently matching q.
	CountMatching(q access.Query) int
	// ScanInto fills buf with matching entity handles and returns how many
	// it wrote. The buffer is at least CountMatching(q) long.
	ScanInto(q access.Query, buf []access.Entity) int
	// IsAlive reports whether the handle still names a live entity.
	IsAlive(e access.Entity) bool
}

// Ref resolves an entity handle to that entity's component of type T.
// Storage engines provide constructors; the executor only invokes them
// for entities that passed the IsAlive check.
type Ref[T any] func(e access.Entity) *T

// PanicError wraps a panic raised by a per-entity action. The buffer is
// returned to the pool and sibling ranges run to completion; the first
// recovered panic is reported.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("query action panicked: %v", e.Value)
}
