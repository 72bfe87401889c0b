package fieldref

import (
	"fmt"
	"regexp"
	"strconv"
)

var refRegex = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_-]*)(?:\.([A-Za-z0-9_]+)|\[(\d+)\])?$`)

// Ref is a parsed source reference.
type Ref struct {
	Field string
	// Component is a component name or 1-based number, empty for the
	// whole field.
	Component string
}

// Parse parses "name", "name.component" or "name[index]".
func Parse(raw string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("field reference cannot be empty")
	}
	m := refRegex.FindStringSubmatch(raw)
	if m == nil {
		return Ref{}, fmt.Errorf("invalid field reference %q", raw)
	}
	r := Ref{Field: m[1], Component: m[2]}
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil || n < 1 {
			return Ref{}, fmt.Errorf("invalid component index in %q", raw)
		}
		r.Component = m[3]
	}
	return r, nil
}

// HasComponent reports whether r selects a single component.
func (r Ref) HasComponent() bool { return r.Component != "" }

// String renders r in the dotted form.
func (r Ref) String() string {
	if r.Component == "" {
		return r.Field
	}
	return r.Field + "." + r.Component
}
