package fieldops

import (
	"github.com/vk/fieldgrid/internal/domain"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/location"
)

// finiteElementCore reads a domain.FieldStore: node values at node
// locations and interpolated values and xi derivatives in elements.
type finiteElementCore struct {
	field.Base
	store domain.FieldStore
}

func (*finiteElementCore) Type() field.Type { return field.TypeFiniteElement }

func (k *finiteElementCore) IsDefinedAt(c *field.Cache, _ *field.Field) bool {
	loc := c.Location()
	switch loc.Kind() {
	case location.KindElementXi:
		return k.store.DefinedInElement(loc.Element())
	case location.KindNode:
		return k.store.DefinedAtNode(loc.Node())
	}
	return false
}

func (k *finiteElementCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	loc := c.Location()
	var err error
	switch loc.Kind() {
	case location.KindElementXi:
		err = k.store.ElementValues(loc.Element(), loc.Xi(), loc.Time(), nil, vc.Values)
	case location.KindNode:
		err = k.store.NodeValues(loc.Node(), loc.Time(), vc.Values)
	default:
		return field.NotDefinedf("field %q: finite element fields need an element or node location", f.Name())
	}
	if err != nil {
		return field.NotDefinedf("field %q: %v", f.Name(), err)
	}
	return nil
}

func (k *finiteElementCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	loc := c.Location()
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	n := f.ComponentCount()
	tmp := make([]float64, n)
	for t := 0; t < terms; t++ {
		if err := k.store.ElementValues(loc.Element(), loc.Xi(), loc.Time(), d.Indices(t), tmp); err != nil {
			return field.NotDefinedf("field %q: %v", f.Name(), err)
		}
		for comp, v := range tmp {
			out[comp*terms+t] = v
		}
	}
	return nil
}

func (*finiteElementCore) DerivativeTreeOrder(*field.Field, *field.Derivative) int { return unlimited }

func (k *finiteElementCore) Compare(other field.Core) bool {
	o, ok := other.(*finiteElementCore)
	return ok && o.store == k.store
}

func (k *finiteElementCore) Copy() field.Core { return &finiteElementCore{store: k.store} }

// Assign stores values at the current node.
func (k *finiteElementCore) Assign(c *field.Cache, f *field.Field, values []float64) error {
	loc := c.Location()
	if loc.Kind() != location.KindNode {
		return field.InvalidArgumentf("assign %q: finite element values are assigned at nodes, have %s",
			f.Name(), loc.Kind())
	}
	if err := k.store.SetNodeValues(loc.Node(), loc.Time(), values); err != nil {
		return field.InvalidArgumentf("assign %q: %v", f.Name(), err)
	}
	return nil
}

// Store returns the parameters behind a finite element field.
func (k *finiteElementCore) Store() domain.FieldStore { return k.store }

// FiniteElement creates a field interpolating store.
func (mod Module) FiniteElement(store domain.FieldStore) (*field.Field, error) {
	if store == nil {
		return nil, field.InvalidArgumentf("finite_element: store is nil")
	}
	return mod.create(&finiteElementCore{store: store}, store.ComponentCount())
}
