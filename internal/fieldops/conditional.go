package fieldops

import (
	"github.com/vk/fieldgrid/internal/field"
)

// ifCore picks, per component, the true source where the condition is
// nonzero and the false source elsewhere.
type ifCore struct {
	field.Base
}

func (*ifCore) Type() field.Type { return field.TypeIf }

func (*ifCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	cond, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	// Both branches are evaluated: the field is undefined wherever either is.
	whenTrue, err := c.Values(f.Source(1))
	if err != nil {
		return err
	}
	whenFalse, err := c.Values(f.Source(2))
	if err != nil {
		return err
	}
	for i := range vc.Values {
		if cond.Values[at(len(cond.Values), i)] != 0 {
			vc.Values[i] = whenTrue.Values[i]
		} else {
			vc.Values[i] = whenFalse.Values[i]
		}
	}
	return nil
}

func (*ifCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	cond, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for i := 0; i < f.ComponentCount(); i++ {
		branch := f.Source(2)
		if cond.Values[at(len(cond.Values), i)] != 0 {
			branch = f.Source(1)
		}
		dv, err := c.DerivativeValues(branch, d)
		if err != nil {
			return err
		}
		copyTerms(out, i, dv.Values, i, terms)
	}
	return nil
}

// DerivativeTreeOrder ignores the condition, which is piecewise constant.
func (*ifCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	return max(sourceTreeOrder(f, 1, d), sourceTreeOrder(f, 2, d))
}

func (*ifCore) Compare(other field.Core) bool {
	_, ok := other.(*ifCore)
	return ok
}

func (*ifCore) Copy() field.Core { return &ifCore{} }

// If creates a conditional field. cond has one component or as many as the
// branches, which must match each other.
func (mod Module) If(cond, whenTrue, whenFalse *field.Field) (*field.Field, error) {
	if err := checkSources("if", cond, whenTrue, whenFalse); err != nil {
		return nil, err
	}
	n := whenTrue.ComponentCount()
	if whenFalse.ComponentCount() != n {
		return nil, field.InvalidArgumentf("if: branches have %d and %d components", n, whenFalse.ComponentCount())
	}
	if cond.ComponentCount() != 1 && cond.ComponentCount() != n {
		return nil, field.InvalidArgumentf("if: condition has %d components, branches %d", cond.ComponentCount(), n)
	}
	return mod.create(&ifCore{}, n, cond, whenTrue, whenFalse)
}

// logicalCore gives 1 for true and 0 for false, componentwise.
type logicalCore struct {
	field.Base
	t field.Type
}

func truth(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var logicalKernels = map[field.Type]func(u, v float64) bool{
	field.TypeAnd:         func(u, v float64) bool { return u != 0 && v != 0 },
	field.TypeOr:          func(u, v float64) bool { return u != 0 || v != 0 },
	field.TypeXor:         func(u, v float64) bool { return (u != 0) != (v != 0) },
	field.TypeEqualTo:     func(u, v float64) bool { return u == v },
	field.TypeGreaterThan: func(u, v float64) bool { return u > v },
	field.TypeLessThan:    func(u, v float64) bool { return u < v },
}

func (k *logicalCore) Type() field.Type { return k.t }

func (k *logicalCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	if k.t == field.TypeNot {
		src, err := c.Values(f.Source(0))
		if err != nil {
			return err
		}
		for i, u := range src.Values {
			vc.Values[i] = truth(u == 0)
		}
		return nil
	}
	a, b, err := twoValues(c, f)
	if err != nil {
		return err
	}
	op := logicalKernels[k.t]
	for i := range vc.Values {
		vc.Values[i] = truth(op(a[at(len(a), i)], b[at(len(b), i)]))
	}
	return nil
}

func (*logicalCore) DerivativeTreeOrder(*field.Field, *field.Derivative) int { return 0 }

func (k *logicalCore) Compare(other field.Core) bool {
	o, ok := other.(*logicalCore)
	return ok && o.t == k.t
}

func (k *logicalCore) Copy() field.Core { return &logicalCore{t: k.t} }

// Logical creates and, or, xor, equal_to, greater_than or less_than of a
// and b.
func (mod Module) Logical(t field.Type, a, b *field.Field) (*field.Field, error) {
	if _, ok := logicalKernels[t]; !ok {
		return nil, field.InvalidArgumentf("%s is not a binary logical operator", t)
	}
	if err := checkSources(t.String(), a, b); err != nil {
		return nil, err
	}
	n, err := broadcastCount(t.String(), a.ComponentCount(), b.ComponentCount())
	if err != nil {
		return nil, err
	}
	return mod.create(&logicalCore{t: t}, n, a, b)
}

// Not creates the componentwise logical negation of src.
func (mod Module) Not(src *field.Field) (*field.Field, error) {
	if err := checkSources("not", src); err != nil {
		return nil, err
	}
	return mod.create(&logicalCore{t: field.TypeNot}, src.ComponentCount(), src)
}
