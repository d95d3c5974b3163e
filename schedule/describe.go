package schedule

import (
	"fmt"
	"strings"
)

// Describe renders the plan as a stable, human-readable stage listing.
// The output is deterministic for identical plans, so tests and tools can
// diff it directly.
func (p *Plan) Describe() string {
	if p == nil || len(p.Stages) == 0 {
		return "execution plan: empty\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "execution plan: %d stages, %d systems, max width %d\n",
		p.Len(), p.SystemCount(), p.Width())
	for _, s := range p.Stages {
		b.WriteString("  stage ")
		fmt.Fprintf(&b, "%d", s.Number)
		if s.Exclusive {
			b.WriteString(" (exclusive)")
		}
		b.WriteString(": ")
		for i, n := range s.Nodes {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s (priority %d, %s)", n.Name, n.Priority, n.Access)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
