// Package scenario loads TOML workload manifests for the stride CLI.
// A scenario names a set of component types and a set of systems with
// read/write footprints, priorities, and cost expressions; the CLI
// stages it, estimates frame times, and can run it against an in-memory
// store with synthetic per-entity work.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"

	"github.com/lodestone-games/stride/access"
)

// Sentinel errors for scenario loading and validation.
var (
	// ErrNoScenario indicates the scenario file does not exist.
	ErrNoScenario = errors.New("scenario file not found")
	// ErrMissingField indicates a required field (e.g. name) is empty.
	ErrMissingField = errors.New("required field missing")
	// ErrDuplicateComponent indicates two components share a name.
	ErrDuplicateComponent = errors.New("duplicate component name")
	// ErrDuplicateSystem indicates two systems share a name.
	ErrDuplicateSystem = errors.New("duplicate system name")
	// ErrUnknownComponent indicates a system references an undeclared component.
	ErrUnknownComponent = errors.New("unknown component name")
	// ErrTooManyComponents indicates the manifest exceeds the 256-component mask.
	ErrTooManyComponents = errors.New("too many components")
	// ErrBadExpression indicates a cost or matches expression failed to compile.
	ErrBadExpression = errors.New("invalid expression")
)

// ValidationError records a manifest problem with source context.
type ValidationError struct {
	File   string
	System string
	Field  string
	Err    error
}

// Error returns a human-readable string including file and system context.
func (e *ValidationError) Error() string {
	if e.System != "" {
		return e.File + ": system " + e.System + ": " + e.Err.Error()
	}
	return e.File + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Manifest mirrors the TOML scenario file.
type Manifest struct {
	Scenario   Meta            `toml:"scenario"`
	Components []ComponentSpec `toml:"components"`
	Systems    []SystemSpec    `toml:"systems"`
}

// Meta is the [scenario] header table.
type Meta struct {
	Name       string `toml:"name"`
	Entities   int    `toml:"entities"`
	MaxWorkers int    `toml:"max_workers"`
}

// ComponentSpec declares one component type. Component IDs are assigned
// densely in declaration order.
type ComponentSpec struct {
	Name string `toml:"name"`
}

// SystemSpec declares one system. Cost is a per-entity nanosecond
// expression over n (entity count) and workers; matches is an entity
// count expression over n. Both default to free/full ("0" and "n").
type SystemSpec struct {
	Name      string   `toml:"name"`
	Reads     []string `toml:"reads"`
	Writes    []string `toml:"writes"`
	Priority  int      `toml:"priority"`
	Exclusive bool     `toml:"exclusive"`
	Cost      string   `toml:"cost"`
	Matches   string   `toml:"matches"`
}

// Scenario is a loaded and resolved manifest: component names bound to
// IDs, footprints built, expressions compiled.
type Scenario struct {
	Name       string
	Entities   int
	MaxWorkers int
	Components []Component
	Systems    []System
}

// Component binds a declared component name to its assigned ID.
type Component struct {
	Name string
	ID   access.ComponentID
}

// System is a resolved system declaration.
type System struct {
	Name      string
	Access    access.Set
	Priority  int
	Exclusive bool
	Order     int

	cost    *vm.Program
	matches *vm.Program
}

// Matches evaluates the system's match-count expression for n entities,
// clamped to [0, n].
func (s *System) Matches(n int) (int, error) {
	out, err := expr.Run(s.matches, exprEnv(n, 1))
	if err != nil {
		return 0, fmt.Errorf("%w: matches: %v", ErrBadExpression, err)
	}
	m, err := cast.ToIntE(out)
	if err != nil {
		return 0, fmt.Errorf("%w: matches yields %T, want a number", ErrBadExpression, out)
	}
	if m < 0 {
		m = 0
	}
	if m > n {
		m = n
	}
	return m, nil
}

// CostNS evaluates the system's per-entity cost expression in
// nanoseconds, clamped to non-negative.
func (s *System) CostNS(n, workers int) (float64, error) {
	out, err := expr.Run(s.cost, exprEnv(n, workers))
	if err != nil {
		return 0, fmt.Errorf("%w: cost: %v", ErrBadExpression, err)
	}
	c, err := cast.ToFloat64E(out)
	if err != nil {
		return 0, fmt.Errorf("%w: cost yields %T, want a number", ErrBadExpression, out)
	}
	if c < 0 {
		c = 0
	}
	return c, nil
}

// EffectiveWorkers returns the manifest's worker override, or one worker
// per CPU when the manifest does not set one.
func (s *Scenario) EffectiveWorkers() int {
	if s.MaxWorkers > 0 {
		return s.MaxWorkers
	}
	return runtime.NumCPU()
}

// Load reads and resolves the scenario file at path. It returns the
// first problem it finds.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoScenario
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return resolve(filepath.Base(path), &m)
}

func resolve(file string, m *Manifest) (*Scenario, error) {
	if m.Scenario.Name == "" {
		return nil, &ValidationError{File: file, Field: "scenario.name",
			Err: fmt.Errorf("%w: scenario.name", ErrMissingField)}
	}
	if m.Scenario.Entities <= 0 {
		return nil, &ValidationError{File: file, Field: "scenario.entities",
			Err: fmt.Errorf("scenario.entities must be > 0, got %d", m.Scenario.Entities)}
	}
	if m.Scenario.MaxWorkers < 0 {
		return nil, &ValidationError{File: file, Field: "scenario.max_workers",
			Err: fmt.Errorf("scenario.max_workers must be >= 0, got %d", m.Scenario.MaxWorkers)}
	}
	if len(m.Components) > 256 {
		return nil, &ValidationError{File: file, Field: "components",
			Err: fmt.Errorf("%w: %d declared, mask holds 256", ErrTooManyComponents, len(m.Components))}
	}

	s := &Scenario{
		Name:       m.Scenario.Name,
		Entities:   m.Scenario.Entities,
		MaxWorkers: m.Scenario.MaxWorkers,
	}

	ids := make(map[string]access.ComponentID, len(m.Components))
	for i, c := range m.Components {
		if c.Name == "" {
			return nil, &ValidationError{File: file, Field: "components.name",
				Err: fmt.Errorf("%w: components[%d].name", ErrMissingField, i)}
		}
		if _, ok := ids[c.Name]; ok {
			return nil, &ValidationError{File: file, Field: "components.name",
				Err: fmt.Errorf("%w: %q", ErrDuplicateComponent, c.Name)}
		}
		id := access.ComponentID(i)
		ids[c.Name] = id
		s.Components = append(s.Components, Component{Name: c.Name, ID: id})
	}

	seen := make(map[string]bool, len(m.Systems))
	for i, spec := range m.Systems {
		if spec.Name == "" {
			return nil, &ValidationError{File: file, Field: "systems.name",
				Err: fmt.Errorf("%w: systems[%d].name", ErrMissingField, i)}
		}
		if seen[spec.Name] {
			return nil, &ValidationError{File: file, System: spec.Name,
				Err: fmt.Errorf("%w: %q", ErrDuplicateSystem, spec.Name)}
		}
		seen[spec.Name] = true

		reads, err := lookupIDs(ids, spec.Reads)
		if err != nil {
			return nil, &ValidationError{File: file, System: spec.Name, Field: "reads", Err: err}
		}
		writes, err := lookupIDs(ids, spec.Writes)
		if err != nil {
			return nil, &ValidationError{File: file, System: spec.Name, Field: "writes", Err: err}
		}

		costSrc := spec.Cost
		if costSrc == "" {
			costSrc = "0"
		}
		cost, err := compileExpr(costSrc)
		if err != nil {
			return nil, &ValidationError{File: file, System: spec.Name, Field: "cost",
				Err: fmt.Errorf("%w: %q: %v", ErrBadExpression, costSrc, err)}
		}
		matchSrc := spec.Matches
		if matchSrc == "" {
			matchSrc = "n"
		}
		matches, err := compileExpr(matchSrc)
		if err != nil {
			return nil, &ValidationError{File: file, System: spec.Name, Field: "matches",
				Err: fmt.Errorf("%w: %q: %v", ErrBadExpression, matchSrc, err)}
		}

		s.Systems = append(s.Systems, System{
			Name:      spec.Name,
			Access:    access.NewSet(reads, writes),
			Priority:  spec.Priority,
			Exclusive: spec.Exclusive,
			Order:     i,
			cost:      cost,
			matches:   matches,
		})
	}
	return s, nil
}

func lookupIDs(ids map[string]access.ComponentID, names []string) ([]access.ComponentID, error) {
	out := make([]access.ComponentID, 0, len(names))
	for _, name := range names {
		id, ok := ids[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
		}
		out = append(out, id)
	}
	return out, nil
}

// compileExpr compiles src and probe-runs it once so bad identifiers
// surface at load time, not mid-simulation.
func compileExpr(src string) (*vm.Program, error) {
	prog, err := expr.Compile(src, expr.Env(exprEnv(0, 0)))
	if err != nil {
		return nil, err
	}
	if _, err := expr.Run(prog, exprEnv(1, 1)); err != nil {
		return nil, err
	}
	return prog, nil
}

func exprEnv(n, workers int) map[string]any {
	return map[string]any{"n": n, "workers": workers}
}
