package access

import (
	"math/bits"
	"strings"
)

// Mask is a 256-bit component set, one bit per ComponentID. The zero value
// is the empty set. Masks are compared, merged, and intersected with plain
// word operations so footprint math stays off the heap.
type Mask [4]uint64

// MaskOf returns a mask with the given component IDs set.
func MaskOf(ids ...ComponentID) Mask {
	var m Mask
	for _, id := range ids {
		m.Set(id)
	}
	return m
}

// Set enables the bit for the given component ID.
func (m *Mask) Set(id ComponentID) {
	m[id>>6] |= 1 << (id & 63)
}

// Unset disables the bit for the given component ID.
func (m *Mask) Unset(id ComponentID) {
	m[id>>6] &^= 1 << (id & 63)
}

// Has reports whether the bit for the given component ID is set.
func (m Mask) Has(id ComponentID) bool {
	return m[id>>6]&(1<<(id&63)) != 0
}

// Intersects reports whether the two masks share any component.
func (m Mask) Intersects(o Mask) bool {
	return m[0]&o[0] != 0 ||
		m[1]&o[1] != 0 ||
		m[2]&o[2] != 0 ||
		m[3]&o[3] != 0
}

// ContainsAll reports whether every component in sub is also in m.
func (m Mask) ContainsAll(sub Mask) bool {
	return m[0]&sub[0] == sub[0] &&
		m[1]&sub[1] == sub[1] &&
		m[2]&sub[2] == sub[2] &&
		m[3]&sub[3] == sub[3]
}

// Union returns the set union of two masks.
func (m Mask) Union(o Mask) Mask {
	return Mask{m[0] | o[0], m[1] | o[1], m[2] | o[2], m[3] | o[3]}
}

// Intersect returns the set intersection of two masks.
func (m Mask) Intersect(o Mask) Mask {
	return Mask{m[0] & o[0], m[1] & o[1], m[2] & o[2], m[3] & o[3]}
}

// IsEmpty reports whether no component is set.
func (m Mask) IsEmpty() bool {
	return m[0]|m[1]|m[2]|m[3] == 0
}

// Count returns the number of components set.
func (m Mask) Count() int {
	return bits.OnesCount64(m[0]) +
		bits.OnesCount64(m[1]) +
		bits.OnesCount64(m[2]) +
		bits.OnesCount64(m[3])
}

// IDs returns the component IDs set in the mask in ascending order.
func (m Mask) IDs() []ComponentID {
	ids := make([]ComponentID, 0, m.Count())
	for w := 0; w < 4; w++ {
		word := m[w]
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			ids = append(ids, ComponentID(w<<6+bit))
			word &= word - 1
		}
	}
	return ids
}

// String renders the mask as "{0 5 17}" for logs and diagnostics.
func (m Mask) String() string {
	var b strings.Builder
	writeIDSet(&b, m)
	return b.String()
}
