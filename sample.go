package stride

import (
	"sync"
	"time"
)

// Sample accumulates timing for one system across frames. Samples are
// keyed by system name and survive plan rebuilds, so a system keeps its
// history when its priority or footprint changes.
type Sample struct {
	Count  uint64
	Errors uint64
	Last   time.Duration
	Max    time.Duration
	Total  time.Duration
}

// Avg returns the mean duration across recorded runs.
func (s Sample) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// sampleTable guards the per-system samples. Systems in one stage record
// concurrently.
type sampleTable struct {
	mu      sync.Mutex
	systems map[string]*Sample
}

func newSampleTable() *sampleTable {
	return &sampleTable{systems: make(map[string]*Sample)}
}

func (t *sampleTable) record(name string, d time.Duration, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.systems[name]
	if s == nil {
		s = &Sample{}
		t.systems[name] = s
	}
	s.Count++
	if failed {
		s.Errors++
	}
	s.Last = d
	if d > s.Max {
		s.Max = d
	}
	s.Total += d
}

// snapshot returns a deep copy safe to read while frames keep running.
func (t *sampleTable) snapshot() map[string]Sample {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]Sample, len(t.systems))
	for name, s := range t.systems {
		out[name] = *s
	}
	return out
}

func (t *sampleTable) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.systems = make(map[string]*Sample)
}
