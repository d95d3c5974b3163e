package scenario

import (
	"time"

	"github.com/lodestone-games/stride/schedule"
)

// Estimate is a cost-model projection of one frame of the scenario.
// Sequential assumes one system at a time on one worker; Staged assumes
// each stage's total work spreads evenly across the workers.
type Estimate struct {
	Workers    int
	Sequential time.Duration
	Staged     time.Duration
	Speedup    float64
	Stages     []StageEstimate
}

// StageEstimate is the projected wall time of one stage.
type StageEstimate struct {
	Number    int
	Exclusive bool
	Systems   []string
	Span      time.Duration
}

// Nodes converts the scenario's systems into scheduler nodes.
func (s *Scenario) Nodes() []schedule.Node {
	nodes := make([]schedule.Node, len(s.Systems))
	for i, sys := range s.Systems {
		nodes[i] = schedule.Node{
			Name:      sys.Name,
			Access:    sys.Access,
			Priority:  sys.Priority,
			Exclusive: sys.Exclusive,
			Order:     sys.Order,
		}
	}
	return nodes
}

// Plan stages the scenario's systems.
func (s *Scenario) Plan() (*schedule.Plan, error) {
	g, err := schedule.BuildGraph(s.Nodes())
	if err != nil {
		return nil, err
	}
	return g.Plan(), nil
}

// Estimate projects frame times for the given worker count. Workers
// below one fall back to the scenario's effective worker count.
func (s *Scenario) Estimate(workers int) (*Estimate, error) {
	if workers < 1 {
		workers = s.EffectiveWorkers()
	}
	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*System, len(s.Systems))
	for i := range s.Systems {
		byName[s.Systems[i].Name] = &s.Systems[i]
	}

	est := &Estimate{Workers: workers}
	n := s.Entities
	for _, stage := range plan.Stages {
		var work float64
		se := StageEstimate{Number: stage.Number, Exclusive: stage.Exclusive}
		for _, node := range stage.Nodes {
			sys := byName[node.Name]
			m, err := sys.Matches(n)
			if err != nil {
				return nil, err
			}
			c, err := sys.CostNS(n, workers)
			if err != nil {
				return nil, err
			}
			work += float64(m) * c
			se.Systems = append(se.Systems, node.Name)
		}
		se.Span = time.Duration(work / float64(workers))
		est.Sequential += time.Duration(work)
		est.Staged += se.Span
		est.Stages = append(est.Stages, se)
	}

	if est.Staged > 0 {
		est.Speedup = float64(est.Sequential) / float64(est.Staged)
	} else {
		est.Speedup = 1
	}
	return est, nil
}
