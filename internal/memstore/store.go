// Package memstore is a flat-array entity store backing the tests, the
// scenario runner, and the profiling harnesses. It is deliberately
// simple: one slice per component type indexed by entity ID, a free
// list for recycled slots, and a version counter that invalidates stale
// handles. It is not a production storage engine.
package memstore

import (
	"fmt"

	"github.com/lodestone-games/stride/access"
	"github.com/lodestone-games/stride/blit"
	"github.com/lodestone-games/stride/query"
)

// Store holds entities in dense arrays indexed by entity ID. All
// mutating methods are single-goroutine; the query.Source methods
// follow the read contracts documented on that interface.
type Store struct {
	alive    []bool
	versions []uint32
	masks    []access.Mask
	columns  [256]column
	free     []uint32
	live     int
}

// column lets the store grow typed component slices without knowing
// their element types.
type column interface {
	grow(n int)
}

type col[T any] struct {
	data []T
}

func (c *col[T]) grow(n int) {
	if len(c.data) >= n {
		return
	}
	next := make([]T, n)
	copy(next, c.data)
	c.data = next
}

// NewStore returns a store with room for capacity entities before the
// first grow.
func NewStore(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		alive:    make([]bool, 0, capacity),
		versions: make([]uint32, 0, capacity),
		masks:    make([]access.Mask, 0, capacity),
	}
}

// AddColumn registers a component slice of type T under id. Component
// types must be plain data: columns whose values alias shared memory
// would defeat the parallel isolation the store exists to exercise, so
// AddColumn panics on one. Registering the same id twice replaces the
// column and drops its data.
func AddColumn[T any](s *Store, id access.ComponentID) {
	if diags := blit.Check[T](); blit.HasErrors(diags) {
		first := blit.Filter(diags, blit.SeverityError)[0]
		panic(fmt.Sprintf("memstore: component %d: %s", id, first))
	}
	c := &col[T]{}
	c.grow(len(s.alive))
	s.columns[id] = c
}

// Ref returns an accessor for the T column registered under id. It
// panics when the column is missing or holds a different type, which in
// practice means the store was wired up wrong.
func Ref[T any](s *Store, id access.ComponentID) query.Ref[T] {
	c, ok := s.columns[id].(*col[T])
	if !ok {
		panic(fmt.Sprintf("memstore: component %d is not a %T column", id, *new(T)))
	}
	return func(e access.Entity) *T {
		return &c.data[e.ID]
	}
}

// Create allocates an entity composed of the given component IDs,
// recycling a destroyed slot when one is available.
func (s *Store) Create(ids ...access.ComponentID) access.Entity {
	var slot uint32
	if n := len(s.free); n > 0 {
		slot = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		slot = uint32(len(s.alive))
		s.alive = append(s.alive, false)
		s.versions = append(s.versions, 0)
		s.masks = append(s.masks, access.Mask{})
		for _, c := range s.columns {
			if c != nil {
				c.grow(len(s.alive))
			}
		}
	}
	s.alive[slot] = true
	s.masks[slot] = access.MaskOf(ids...)
	s.live++
	return access.Entity{ID: slot, Version: s.versions[slot]}
}

// Destroy removes the entity and invalidates every handle to it. It
// reports whether the handle was live.
func (s *Store) Destroy(e access.Entity) bool {
	if !s.IsAlive(e) {
		return false
	}
	s.alive[e.ID] = false
	s.versions[e.ID]++
	s.masks[e.ID] = access.Mask{}
	s.free = append(s.free, e.ID)
	s.live--
	return true
}

// Len returns the number of live entities.
func (s *Store) Len() int { return s.live }

// CountMatching reports how many live entities match q.
func (s *Store) CountMatching(q access.Query) int {
	n := 0
	for i := range s.alive {
		if s.alive[i] && q.Matches(s.masks[i]) {
			n++
		}
	}
	return n
}

// ScanInto fills buf with handles for live entities matching q, in slot
// order, and returns how many it wrote.
func (s *Store) ScanInto(q access.Query, buf []access.Entity) int {
	n := 0
	for i := range s.alive {
		if n == len(buf) {
			break
		}
		if s.alive[i] && q.Matches(s.masks[i]) {
			buf[n] = access.Entity{ID: uint32(i), Version: s.versions[i]}
			n++
		}
	}
	return n
}

// IsAlive reports whether the handle still names a live entity.
func (s *Store) IsAlive(e access.Entity) bool {
	return int(e.ID) < len(s.alive) && s.alive[e.ID] && s.versions[e.ID] == e.Version
}
