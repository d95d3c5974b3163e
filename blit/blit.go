// Package blit validates that component types are plain data, safe to
// copy between goroutines without aliasing shared mutable state. The
// engine's isolation guarantee rests on declared footprints plus
// plain-data components: a component holding a pointer, slice, or map
// can smuggle shared state across systems the planner believes are
// disjoint.
package blit

import (
	"fmt"
	"reflect"
)

// Severity ranks how bad a diagnostic is.
type Severity int

const (
	// SeverityWarning flags a field that is probably fine but deserves a
	// look, such as a uintptr handle or a copied sync primitive.
	SeverityWarning Severity = iota
	// SeverityError flags a field that aliases shared memory when the
	// component is copied.
	SeverityError
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Diagnostic names one field that is not plain data.
type Diagnostic struct {
	Path     string // dotted field path from the root type; empty for the root itself
	Type     string // the offending field's type
	Severity Severity
	Reason   string
}

// String renders the diagnostic for logs and panics.
func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s: %s: %s", d.Severity, d.Type, d.Reason)
	}
	return fmt.Sprintf("%s: %s (%s): %s", d.Severity, d.Path, d.Type, d.Reason)
}

// Check validates the component type T. See Validate.
func Check[T any]() []Diagnostic {
	return Validate(reflect.TypeOf((*T)(nil)).Elem())
}

// Validate walks t and returns a diagnostic for every field that could
// alias shared mutable state when a value of t is copied across
// goroutines. A nil result means t is plain data.
func Validate(t reflect.Type) []Diagnostic {
	var diags []Diagnostic
	walk(t, "", &diags)
	return diags
}

// HasErrors reports whether any diagnostic is error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Filter returns the diagnostics at exactly the given severity.
func Filter(diags []Diagnostic, sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

func walk(t reflect.Type, path string, diags *[]Diagnostic) {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		// Plain value kinds.
	case reflect.Uintptr:
		add(diags, path, t, SeverityWarning, "uintptr usually smuggles a pointer past the type system")
	case reflect.Pointer, reflect.UnsafePointer:
		add(diags, path, t, SeverityError, "pointer aliases memory outside the component")
	case reflect.Slice:
		add(diags, path, t, SeverityError, "slice copies share one backing array")
	case reflect.Map:
		add(diags, path, t, SeverityError, "map copies mutate one shared table")
	case reflect.Chan:
		add(diags, path, t, SeverityError, "channel copies share one queue")
	case reflect.Func:
		add(diags, path, t, SeverityError, "func value may close over shared state")
	case reflect.Interface:
		add(diags, path, t, SeverityError, "interface value hides an arbitrary reference")
	case reflect.String:
		add(diags, path, t, SeverityError, "string header references shared backing bytes")
	case reflect.Array:
		// Fixed arrays copy by value; only the element type matters.
		walk(t.Elem(), path+"[]", diags)
	case reflect.Struct:
		if pkg := t.PkgPath(); pkg == "sync" || pkg == "sync/atomic" {
			add(diags, path, t, SeverityWarning, "sync primitives must not be copied after first use")
			return
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			walk(f.Type, join(path, f.Name), diags)
		}
	default:
		add(diags, path, t, SeverityError, "kind cannot be shown to be plain data")
	}
}

func add(diags *[]Diagnostic, path string, t reflect.Type, sev Severity, reason string) {
	*diags = append(*diags, Diagnostic{Path: path, Type: t.String(), Severity: sev, Reason: reason})
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
