// Package schedule builds conflict graphs over registered systems and turns
// them into staged execution plans. Two systems conflict when one writes a
// component type the other touches; conflicting systems are ordered by
// priority (lower first, registration order breaking ties) and never share
// a stage. Because priority plus registration order is a strict total order,
// the precedence relation is acyclic by construction and no cycle detection
// is ever needed.
package schedule

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lodestone-games/stride/access"
)

// ErrEmptyName is returned when a node has no name.
var ErrEmptyName = errors.New("empty system name")

// ErrDuplicateName is returned when two nodes share a name.
var ErrDuplicateName = errors.New("duplicate system name")

// Node is one registered system as the planner sees it: a name, a declared
// component footprint, and its place in the total order.
type Node struct {
	Name      string
	Access    access.Set
	Priority  int  // lower priority runs in an earlier or equal stage
	Exclusive bool // never shares a stage with any other system
	Order     int  // registration sequence, tiebreaker within a priority
}

// before reports whether a precedes b in the strict total order.
func before(a, b Node) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.Order < b.Order
}

// Graph is the conflict graph over a fixed set of nodes. Nodes are held in
// total order; edges always point from earlier to later, so predecessor
// lists fully describe the precedence relation.
type Graph struct {
	nodes []Node
	// preds[i] holds indices of nodes ordered before i whose footprints
	// conflict with node i's.
	preds [][]int
	edges int
}

// BuildGraph validates the nodes and computes all conflict edges. The pair
// scan is O(N²) in the number of systems, which stays trivial at the tens
// of systems a simulation registers.
func BuildGraph(nodes []Node) (*Graph, error) {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.Name == "" {
			return nil, ErrEmptyName
		}
		if seen[n.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, n.Name)
		}
		seen[n.Name] = true
	}

	ordered := make([]Node, len(nodes))
	copy(ordered, nodes)
	sort.Slice(ordered, func(i, j int) bool { return before(ordered[i], ordered[j]) })

	g := &Graph{
		nodes: ordered,
		preds: make([][]int, len(ordered)),
	}
	for i := 1; i < len(ordered); i++ {
		for j := 0; j < i; j++ {
			if ordered[i].Access.ConflictsWith(ordered[j].Access) {
				g.preds[i] = append(g.preds[i], j)
				g.edges++
			}
		}
	}
	return g, nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Edges returns the number of conflict pairs.
func (g *Graph) Edges() int { return g.edges }

// Nodes returns the nodes in total order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Conflicts returns the names of all systems whose footprints conflict with
// the named system, sorted by total order. Returns nil for unknown names.
func (g *Graph) Conflicts(name string) []string {
	idx := -1
	for i, n := range g.nodes {
		if n.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	var out []string
	for i, n := range g.nodes {
		if i == idx {
			continue
		}
		if n.Access.ConflictsWith(g.nodes[idx].Access) {
			out = append(out, n.Name)
		}
	}
	return out
}
