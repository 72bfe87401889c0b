package fieldops

import (
	"slices"

	"github.com/vk/fieldgrid/internal/field"
)

// Module creates fields in one manager. It is a small value: the option
// methods return modified copies, so a base Module can be shared.
type Module struct {
	manager          *field.Manager
	name             string
	managed          bool
	coordinateSystem *field.CoordinateSystem
	componentNames   []string
}

// NewModule returns a factory for fields of m.
func NewModule(m *field.Manager) Module {
	return Module{manager: m}
}

func (mod Module) Manager() *field.Manager { return mod.manager }

// Named sets the name of the next field created; empty gives "temp" names.
func (mod Module) Named(name string) Module {
	mod.name = name
	return mod
}

// Managed sets whether created fields outlive their last external reference.
func (mod Module) Managed(managed bool) Module {
	mod.managed = managed
	return mod
}

// WithCoordinateSystem overrides the coordinate system otherwise inherited
// from the first source.
func (mod Module) WithCoordinateSystem(cs field.CoordinateSystem) Module {
	mod.coordinateSystem = &cs
	return mod
}

func (mod Module) WithComponentNames(names ...string) Module {
	mod.componentNames = slices.Clone(names)
	return mod
}

func (mod Module) create(core field.Core, components int, sources ...*field.Field) (*field.Field, error) {
	return mod.manager.Create(mod.definition(core, components, sources...))
}

func (mod Module) definition(core field.Core, components int, sources ...*field.Field) field.Definition {
	cs := field.CoordinateSystem{Type: field.RectangularCartesian}
	switch {
	case mod.coordinateSystem != nil:
		cs = *mod.coordinateSystem
	case len(sources) > 0:
		cs = sources[0].CoordinateSystem()
	}
	return field.Definition{
		Name:             mod.name,
		Core:             core,
		Sources:          sources,
		Components:       components,
		ComponentNames:   mod.componentNames,
		CoordinateSystem: cs,
		Managed:          mod.managed,
	}
}

func checkSources(op string, sources ...*field.Field) error {
	for i, s := range sources {
		if s == nil {
			return field.InvalidArgumentf("%s: source %d is nil", op, i+1)
		}
	}
	return nil
}

// broadcastCount returns the result component count of an operation on
// fields with na and nb components, where a single component stretches to
// match the other.
func broadcastCount(op string, na, nb int) (int, error) {
	switch {
	case na == nb:
		return na, nil
	case na == 1:
		return nb, nil
	case nb == 1:
		return na, nil
	}
	return 0, field.InvalidArgumentf("%s: component counts %d and %d do not match", op, na, nb)
}

// at maps result component i onto a possibly broadcast operand of n
// components.
func at(n, i int) int {
	if n == 1 {
		return 0
	}
	return i
}
