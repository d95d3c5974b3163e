package schedule

// Stage is a group of systems safe to run concurrently: no two members
// conflict, and an exclusive system always sits in a stage of size one.
type Stage struct {
	Number    int // 1-based position in the plan
	Nodes     []Node
	Exclusive bool
}

// Plan is the ordered stage list for one frame. It is an immutable value
// produced by a pure function of the graph; the engine publishes a plan by
// swapping an atomic pointer, so no frame ever observes a half-built plan.
// Version is stamped by the publisher and is zero on a freshly built plan.
type Plan struct {
	Stages  []Stage
	Version uint64
}

// Plan walks the total order once and cuts stages greedily: a system joins
// the open stage unless it conflicts with a member, in which case the open
// stage is sealed and a new one started. Exclusive systems seal the open
// stage and take a singleton stage of their own. Every stage is therefore a
// contiguous run of the total order, so a system never lands in an earlier
// stage than a lower-priority system — the barrier between stages is what
// gives priorities their ordering meaning.
//
// Equivalently: each node's stage depth is the larger of its predecessor's
// depth and one past the deepest conflicting predecessor. Identical input
// always yields an identical plan; there is nothing to randomize and
// nothing to detect cycles in.
func (g *Graph) Plan() *Plan {
	p := &Plan{}

	var open []Node
	start := 0 // index into g.nodes where the open stage begins

	seal := func(exclusive bool) {
		if len(open) == 0 {
			return
		}
		p.Stages = append(p.Stages, Stage{
			Number:    len(p.Stages) + 1,
			Nodes:     open,
			Exclusive: exclusive,
		})
		open = nil
	}

	for i, n := range g.nodes {
		if n.Exclusive {
			seal(false)
			open = []Node{n}
			seal(true)
			start = i + 1
			continue
		}
		for _, j := range g.preds[i] {
			if j >= start {
				seal(false)
				start = i
				break
			}
		}
		open = append(open, n)
	}
	seal(false)

	return p
}

// Len returns the number of stages.
func (p *Plan) Len() int { return len(p.Stages) }

// SystemCount returns the total number of systems across all stages.
func (p *Plan) SystemCount() int {
	total := 0
	for _, s := range p.Stages {
		total += len(s.Nodes)
	}
	return total
}

// Width returns the size of the largest stage, the upper bound on how many
// systems ever run concurrently.
func (p *Plan) Width() int {
	w := 0
	for _, s := range p.Stages {
		if len(s.Nodes) > w {
			w = len(s.Nodes)
		}
	}
	return w
}
