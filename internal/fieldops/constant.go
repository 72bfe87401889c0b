package fieldops

import (
	"slices"

	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/location"
)

type constantCore struct {
	field.Base
	values []float64
}

func (*constantCore) Type() field.Type { return field.TypeConstant }

func (*constantCore) IsDefinedAt(*field.Cache, *field.Field) bool { return true }

func (k *constantCore) Evaluate(_ *field.Cache, _ *field.Field, vc *field.ValueCache) error {
	copy(vc.Values, k.values)
	return nil
}

func (*constantCore) DerivativeTreeOrder(*field.Field, *field.Derivative) int { return 0 }

func (k *constantCore) Compare(other field.Core) bool {
	o, ok := other.(*constantCore)
	return ok && slices.Equal(k.values, o.values)
}

func (k *constantCore) Copy() field.Core {
	return &constantCore{values: slices.Clone(k.values)}
}

// Assign replaces the constant values; the location is irrelevant.
func (k *constantCore) Assign(_ *field.Cache, _ *field.Field, values []float64) error {
	copy(k.values, values)
	return nil
}

// Constant creates a field with fixed values at every location.
func (mod Module) Constant(values ...float64) (*field.Field, error) {
	if len(values) == 0 {
		return nil, field.InvalidArgumentf("constant: no values")
	}
	return mod.create(&constantCore{values: slices.Clone(values)}, len(values))
}

type timeValueCore struct {
	field.Base
}

func (timeValueCore) Type() field.Type { return field.TypeTimeValue }

func (timeValueCore) IsDefinedAt(*field.Cache, *field.Field) bool { return true }

func (timeValueCore) Evaluate(c *field.Cache, _ *field.Field, vc *field.ValueCache) error {
	vc.Values[0] = c.Time()
	return nil
}

func (timeValueCore) DerivativeTreeOrder(*field.Field, *field.Derivative) int { return 0 }

func (timeValueCore) Compare(other field.Core) bool {
	_, ok := other.(timeValueCore)
	return ok
}

func (timeValueCore) Copy() field.Core { return timeValueCore{} }

// TimeValue creates a scalar field returning the location's time.
func (mod Module) TimeValue() (*field.Field, error) {
	return mod.create(timeValueCore{}, 1)
}

type xiCore struct {
	field.Base
}

func (xiCore) Type() field.Type { return field.TypeXi }

func (xiCore) IsDefinedAt(c *field.Cache, _ *field.Field) bool {
	return c.Location().Kind() == location.KindElementXi
}

func (xiCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	loc := c.Location()
	if loc.Kind() != location.KindElementXi {
		return field.NotDefinedf("field %q: xi needs an element location", f.Name())
	}
	for i := range vc.Values {
		vc.Values[i] = 0
	}
	copy(vc.Values, loc.Xi())
	return nil
}

func (xiCore) EvaluateDerivative(_ *field.Cache, _ *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	out := vc.Derivative(d).Values
	for i := range out {
		out[i] = 0
	}
	terms := d.TermCount()
	for comp := 0; comp < min(vc.Components(), d.Dimension()); comp++ {
		out[comp*terms+comp] = 1
	}
	return nil
}

func (xiCore) DerivativeTreeOrder(*field.Field, *field.Derivative) int { return 1 }

func (xiCore) Compare(other field.Core) bool {
	_, ok := other.(xiCore)
	return ok
}

func (xiCore) Copy() field.Core { return xiCore{} }

// Xi creates a 3 component field of the element chart coordinates, padded
// with zeros below dimension 3.
func (mod Module) Xi() (*field.Field, error) {
	return mod.create(xiCore{}, 3)
}

// cmissNumberCore is the identifier of the node or element at the location.
type cmissNumberCore struct {
	field.Base
}

func (cmissNumberCore) Type() field.Type { return field.TypeCmissNumber }

func (cmissNumberCore) IsDefinedAt(c *field.Cache, _ *field.Field) bool {
	k := c.Location().Kind()
	return k == location.KindNode || k == location.KindElementXi
}

func (cmissNumberCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	loc := c.Location()
	switch loc.Kind() {
	case location.KindNode:
		vc.Values[0] = float64(loc.Node().Identifier())
	case location.KindElementXi:
		vc.Values[0] = float64(loc.Element().Identifier())
	default:
		return field.NotDefinedf("field %q: no node or element at %s", f.Name(), loc)
	}
	return nil
}

func (cmissNumberCore) DerivativeTreeOrder(*field.Field, *field.Derivative) int { return 0 }

func (cmissNumberCore) Compare(other field.Core) bool {
	_, ok := other.(cmissNumberCore)
	return ok
}

func (cmissNumberCore) Copy() field.Core { return cmissNumberCore{} }

// CmissNumber creates the identifier of the node or element being evaluated.
func (mod Module) CmissNumber() (*field.Field, error) {
	return mod.create(cmissNumberCore{}, 1)
}
