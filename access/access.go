// Package access defines the shared vocabulary between the execution engine
// and an entity-component storage engine: component identifiers, 256-bit
// component masks, per-system read/write footprints, entity handles, and
// composition queries. The storage engine assigns component IDs; everything
// here is plain data safe to copy and share across goroutines.
package access

import "strings"

// ComponentID identifies a registered component type. IDs are assigned by
// the storage engine, are dense, and fit in a 256-slot mask.
type ComponentID = uint8

// Set is the immutable read/write footprint a system declares over component
// types. Declaring a type as both read and written collapses to write-only:
// writes dominate, which errs toward more conservative scheduling.
type Set struct {
	reads  Mask
	writes Mask
}

// NewSet builds a footprint from read and written component IDs.
// Any ID present in both lists is kept only in the write mask.
func NewSet(reads, writes []ComponentID) Set {
	var s Set
	for _, id := range writes {
		s.writes.Set(id)
	}
	for _, id := range reads {
		if !s.writes.Has(id) {
			s.reads.Set(id)
		}
	}
	return s
}

// ReadOnly builds a footprint that only reads the given component IDs.
func ReadOnly(ids ...ComponentID) Set {
	return NewSet(ids, nil)
}

// WriteOnly builds a footprint that only writes the given component IDs.
func WriteOnly(ids ...ComponentID) Set {
	return NewSet(nil, ids)
}

// Reads returns the mask of component types read but not written.
func (s Set) Reads() Mask { return s.reads }

// Writes returns the mask of component types written.
func (s Set) Writes() Mask { return s.writes }

// Touches returns the union of read and written component types.
func (s Set) Touches() Mask { return s.reads.Union(s.writes) }

// IsEmpty reports whether the footprint declares no component types at all.
func (s Set) IsEmpty() bool { return s.reads.IsEmpty() && s.writes.IsEmpty() }

// ConflictsWith reports whether two footprints cannot run concurrently:
// either side writes a type the other reads or writes. Two readers of the
// same type never conflict; two writers of disjoint types never conflict.
func (s Set) ConflictsWith(o Set) bool {
	return s.writes.Intersects(o.Touches()) || o.writes.Intersects(s.Touches())
}

// String renders the footprint as "r:{1 4} w:{2}" for logs and plan output.
func (s Set) String() string {
	var b strings.Builder
	b.WriteString("r:")
	writeIDSet(&b, s.reads)
	b.WriteString(" w:")
	writeIDSet(&b, s.writes)
	return b.String()
}

func writeIDSet(b *strings.Builder, m Mask) {
	ids := m.IDs()
	b.WriteByte('{')
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeUint(b, uint64(id))
	}
	b.WriteByte('}')
}

// writeUint appends a decimal uint without the fmt machinery; footprint
// strings show up in per-frame logs.
func writeUint(b *strings.Builder, v uint64) {
	if v >= 10 {
		writeUint(b, v/10)
	}
	b.WriteByte(byte('0' + v%10))
}
