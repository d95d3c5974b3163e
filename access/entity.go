package access

// Entity is a storage handle: a dense slot index plus a version tag that
// distinguishes the current occupant from recycled slots. The engine never
// interprets the ID; it only carries handles between the storage engine's
// scan and the per-entity callbacks.
type Entity struct {
	ID      uint32
	Version uint32
}

// Query selects entities by composition: an entity matches when its
// component mask contains all of Include and none of Exclude. Evaluation
// happens inside the storage engine; the engine only builds and forwards
// the masks.
type Query struct {
	Include Mask
	Exclude Mask
}

// NewQuery returns a query matching entities that have all given components.
func NewQuery(ids ...ComponentID) Query {
	return Query{Include: MaskOf(ids...)}
}

// Without returns a copy of the query that additionally rejects entities
// carrying any of the given components.
func (q Query) Without(ids ...ComponentID) Query {
	for _, id := range ids {
		q.Exclude.Set(id)
	}
	return q
}

// Matches reports whether a composition mask satisfies the query. Storage
// engines may use their own matching; this is the reference predicate.
func (q Query) Matches(composition Mask) bool {
	return composition.ContainsAll(q.Include) && !composition.Intersects(q.Exclude)
}
