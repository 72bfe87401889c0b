package fieldops

import (
	"slices"

	"github.com/vk/fieldgrid/internal/field"
)

// compositeCore copies selected source components: output component i is
// component components[i] of source sources[i].
type compositeCore struct {
	field.Base
	sources    []int
	components []int
}

func (*compositeCore) Type() field.Type { return field.TypeComposite }

func (k *compositeCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	for i := range vc.Values {
		src, err := c.Values(f.Source(k.sources[i]))
		if err != nil {
			return err
		}
		vc.Values[i] = src.Values[k.components[i]]
	}
	return nil
}

func (k *compositeCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for i := 0; i < f.ComponentCount(); i++ {
		src, err := c.DerivativeValues(f.Source(k.sources[i]), d)
		if err != nil {
			return err
		}
		copyTerms(out, i, src.Values, k.components[i], terms)
	}
	return nil
}

func (k *compositeCore) Compare(other field.Core) bool {
	o, ok := other.(*compositeCore)
	return ok && slices.Equal(k.sources, o.sources) && slices.Equal(k.components, o.components)
}

func (k *compositeCore) Copy() field.Core {
	return &compositeCore{sources: slices.Clone(k.sources), components: slices.Clone(k.components)}
}

// SourceComponent reports which source and component feed output i.
func (k *compositeCore) SourceComponent(i int) (source, component int) {
	return k.sources[i], k.components[i]
}

// Component creates a field of the listed 0-based components of src.
func (mod Module) Component(src *field.Field, components ...int) (*field.Field, error) {
	if err := checkSources("component", src); err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, field.InvalidArgumentf("component: no components listed")
	}
	for _, comp := range components {
		if comp < 0 || comp >= src.ComponentCount() {
			return nil, field.InvalidArgumentf("component: %d out of range 1..%d of %q",
				comp+1, src.ComponentCount(), src.Name())
		}
	}
	core := &compositeCore{sources: make([]int, len(components)), components: slices.Clone(components)}
	return mod.create(core, len(components), src)
}

// Concatenate creates a field of every component of each source in turn.
func (mod Module) Concatenate(sources ...*field.Field) (*field.Field, error) {
	if len(sources) == 0 {
		return nil, field.InvalidArgumentf("concatenate: no sources")
	}
	if err := checkSources("concatenate", sources...); err != nil {
		return nil, err
	}
	core := &compositeCore{}
	for s, src := range sources {
		for comp := 0; comp < src.ComponentCount(); comp++ {
			core.sources = append(core.sources, s)
			core.components = append(core.components, comp)
		}
	}
	return mod.create(core, len(core.components), sources...)
}

// Identity creates a field with the same values as src.
func (mod Module) Identity(src *field.Field) (*field.Field, error) {
	return mod.Concatenate(src)
}

// FindComponent resolves "name" or "name.component" in the module's region.
// A component reference returns a component field, reusing an existing one
// when present. The caller owns one reference to the result.
func (mod Module) FindComponent(ref string) (*field.Field, error) {
	var out *field.Field
	err := mod.manager.Update(func(tx field.Txn) error {
		f, comp, err := tx.FindByNameComponent(ref)
		if err != nil {
			return err
		}
		if comp < 0 {
			out = f.Access()
			return nil
		}
		want := &compositeCore{sources: []int{0}, components: []int{comp}}
		existing, ok := tx.FindField(func(g *field.Field) bool {
			return g.SourceCount() == 1 && g.Source(0) == f && g.Core().Compare(want)
		})
		if ok {
			out = existing.Access()
			return nil
		}
		out, err = tx.Create(mod.definition(want, 1, f))
		return err
	})
	return out, err
}
