package fieldops

import (
	"math"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/vk/fieldgrid/internal/field"
)

// addCore computes w1*a + w2*b.
type addCore struct {
	field.Base
	w1, w2 float64
}

func (*addCore) Type() field.Type { return field.TypeAdd }

func (k *addCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	a, b, err := twoValues(c, f)
	if err != nil {
		return err
	}
	for i := range vc.Values {
		vc.Values[i] = k.w1*a[at(len(a), i)] + k.w2*b[at(len(b), i)]
	}
	return nil
}

func (k *addCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	da, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return err
	}
	db, err := c.DerivativeValues(f.Source(1), d)
	if err != nil {
		return err
	}
	na, nb := f.Source(0).ComponentCount(), f.Source(1).ComponentCount()
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for comp := 0; comp < f.ComponentCount(); comp++ {
		ia, ib := at(na, comp)*terms, at(nb, comp)*terms
		for t := 0; t < terms; t++ {
			out[comp*terms+t] = k.w1*da.Values[ia+t] + k.w2*db.Values[ib+t]
		}
	}
	return nil
}

func (k *addCore) Compare(other field.Core) bool {
	o, ok := other.(*addCore)
	return ok && k.w1 == o.w1 && k.w2 == o.w2
}

func (k *addCore) Copy() field.Core { return &addCore{w1: k.w1, w2: k.w2} }

func twoValues(c *field.Cache, f *field.Field) (a, b []float64, err error) {
	va, err := c.Values(f.Source(0))
	if err != nil {
		return nil, nil, err
	}
	vb, err := c.Values(f.Source(1))
	if err != nil {
		return nil, nil, err
	}
	return va.Values, vb.Values, nil
}

// WeightedAdd creates w1*a + w2*b.
func (mod Module) WeightedAdd(a *field.Field, w1 float64, b *field.Field, w2 float64) (*field.Field, error) {
	if err := checkSources("add", a, b); err != nil {
		return nil, err
	}
	n, err := broadcastCount("add", a.ComponentCount(), b.ComponentCount())
	if err != nil {
		return nil, err
	}
	return mod.create(&addCore{w1: w1, w2: w2}, n, a, b)
}

func (mod Module) Add(a, b *field.Field) (*field.Field, error) {
	return mod.WeightedAdd(a, 1, b, 1)
}

func (mod Module) Subtract(a, b *field.Field) (*field.Field, error) {
	return mod.WeightedAdd(a, 1, b, -1)
}

// scaleCore multiplies each component by a fixed factor; offsetCore adds a
// fixed offset.
type scaleCore struct {
	field.Base
	factors []float64
}

func (*scaleCore) Type() field.Type { return field.TypeScale }

func (k *scaleCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	for i := range vc.Values {
		vc.Values[i] = k.factors[i] * src.Values[i]
	}
	return nil
}

func (k *scaleCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	src, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return err
	}
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for i := range out {
		out[i] = k.factors[i/terms] * src.Values[i]
	}
	return nil
}

func (k *scaleCore) Compare(other field.Core) bool {
	o, ok := other.(*scaleCore)
	return ok && slices.Equal(k.factors, o.factors)
}

func (k *scaleCore) Copy() field.Core { return &scaleCore{factors: slices.Clone(k.factors)} }

// Assign sets the scale factors.
func (k *scaleCore) Assign(_ *field.Cache, _ *field.Field, values []float64) error {
	copy(k.factors, values)
	return nil
}

// Scale multiplies component i of src by factors[i].
func (mod Module) Scale(src *field.Field, factors ...float64) (*field.Field, error) {
	if err := checkSources("scale", src); err != nil {
		return nil, err
	}
	if len(factors) != src.ComponentCount() {
		return nil, field.InvalidArgumentf("scale: %d factors for %d components", len(factors), src.ComponentCount())
	}
	return mod.create(&scaleCore{factors: slices.Clone(factors)}, src.ComponentCount(), src)
}

type offsetCore struct {
	field.Base
	offsets []float64
}

func (*offsetCore) Type() field.Type { return field.TypeOffset }

func (k *offsetCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	for i := range vc.Values {
		vc.Values[i] = src.Values[i] + k.offsets[i]
	}
	return nil
}

func (k *offsetCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	src, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return err
	}
	copy(vc.Derivative(d).Values, src.Values)
	return nil
}

func (k *offsetCore) Compare(other field.Core) bool {
	o, ok := other.(*offsetCore)
	return ok && slices.Equal(k.offsets, o.offsets)
}

func (k *offsetCore) Copy() field.Core { return &offsetCore{offsets: slices.Clone(k.offsets)} }

func (k *offsetCore) Assign(_ *field.Cache, _ *field.Field, values []float64) error {
	copy(k.offsets, values)
	return nil
}

// Offset adds offsets[i] to component i of src.
func (mod Module) Offset(src *field.Field, offsets ...float64) (*field.Field, error) {
	if err := checkSources("offset", src); err != nil {
		return nil, err
	}
	if len(offsets) != src.ComponentCount() {
		return nil, field.InvalidArgumentf("offset: %d offsets for %d components", len(offsets), src.ComponentCount())
	}
	return mod.create(&offsetCore{offsets: slices.Clone(offsets)}, src.ComponentCount(), src)
}

// binaryCore covers the componentwise functions of two fields that differ
// only in their scalar kernel.
type binaryCore struct {
	field.Base
	t field.Type
}

type binaryKernel struct {
	eval     func(u, v float64) (float64, error)
	partials func(u, v float64) (partials2, error)
	maxOrder int
	product  bool
}

var binaryKernels = map[field.Type]binaryKernel{
	field.TypeMultiply: {
		eval: func(u, v float64) (float64, error) { return u * v, nil },
		partials: func(u, v float64) (partials2, error) {
			return partials2{fu: v, fv: u, fuv: 1}, nil
		},
		maxOrder: 2,
		product:  true,
	},
	field.TypeDivide: {
		eval: func(u, v float64) (float64, error) {
			if v == 0 {
				return 0, field.NotDefinedf("division by zero")
			}
			return u / v, nil
		},
		partials: func(u, v float64) (partials2, error) {
			if v == 0 {
				return partials2{}, field.NotDefinedf("division by zero")
			}
			return partials2{fu: 1 / v, fv: -u / (v * v)}, nil
		},
		maxOrder: 1,
	},
	field.TypePower: {
		eval: func(u, v float64) (float64, error) {
			p := math.Pow(u, v)
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return 0, field.NotDefinedf("%g to the power %g", u, v)
			}
			return p, nil
		},
		partials: func(u, v float64) (partials2, error) {
			p := partials2{fu: v * math.Pow(u, v-1)}
			if u > 0 {
				p.fv = math.Pow(u, v) * math.Log(u)
			}
			if math.IsNaN(p.fu) || math.IsInf(p.fu, 0) {
				return p, field.NotDefinedf("derivative of %g to the power %g", u, v)
			}
			return p, nil
		},
		maxOrder: 1,
	},
	field.TypeAtan2: {
		eval: func(u, v float64) (float64, error) { return math.Atan2(u, v), nil },
		partials: func(u, v float64) (partials2, error) {
			r2 := u*u + v*v
			if r2 == 0 {
				return partials2{}, field.NotDefinedf("atan2 derivative at origin")
			}
			return partials2{fu: v / r2, fv: -u / r2}, nil
		},
		maxOrder: 1,
	},
}

func (k *binaryCore) Type() field.Type { return k.t }

func (k *binaryCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	a, b, err := twoValues(c, f)
	if err != nil {
		return err
	}
	kernel := binaryKernels[k.t]
	for i := range vc.Values {
		v, err := kernel.eval(a[at(len(a), i)], b[at(len(b), i)])
		if err != nil {
			return errors.Wrapf(err, "field %q component %d", f.Name(), i+1)
		}
		vc.Values[i] = v
	}
	return nil
}

func (k *binaryCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	kernel := binaryKernels[k.t]
	return binaryChain(c, f, vc, d, kernel.maxOrder, kernel.partials)
}

func (k *binaryCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	if binaryKernels[k.t].product {
		return productTreeOrder(f, d)
	}
	if k.t == field.TypeDivide && sourceTreeOrder(f, 1, d) == 0 {
		return sourceTreeOrder(f, 0, d)
	}
	return nonlinearTreeOrder(f, d)
}

func (k *binaryCore) Compare(other field.Core) bool {
	o, ok := other.(*binaryCore)
	return ok && o.t == k.t
}

func (k *binaryCore) Copy() field.Core { return &binaryCore{t: k.t} }

func (mod Module) binary(t field.Type, a, b *field.Field) (*field.Field, error) {
	if err := checkSources(t.String(), a, b); err != nil {
		return nil, err
	}
	n, err := broadcastCount(t.String(), a.ComponentCount(), b.ComponentCount())
	if err != nil {
		return nil, err
	}
	return mod.create(&binaryCore{t: t}, n, a, b)
}

// Multiply creates the componentwise product a*b.
func (mod Module) Multiply(a, b *field.Field) (*field.Field, error) {
	return mod.binary(field.TypeMultiply, a, b)
}

// Divide creates the componentwise quotient a/b. Evaluation fails where a
// denominator component is exactly zero.
func (mod Module) Divide(a, b *field.Field) (*field.Field, error) {
	return mod.binary(field.TypeDivide, a, b)
}

// Power creates a^b componentwise.
func (mod Module) Power(a, b *field.Field) (*field.Field, error) {
	return mod.binary(field.TypePower, a, b)
}

// Atan2 creates atan2(a, b) componentwise.
func (mod Module) Atan2(a, b *field.Field) (*field.Field, error) {
	return mod.binary(field.TypeAtan2, a, b)
}

// clampCore limits a by b from below (minimum) or above (maximum).
type clampCore struct {
	field.Base
	t field.Type
}

func (k *clampCore) Type() field.Type { return k.t }

// useLimit reports whether the limit replaces the value.
func (k *clampCore) useLimit(u, limit float64) bool {
	if k.t == field.TypeClampMinimum {
		return u < limit
	}
	return u > limit
}

func (k *clampCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	a, b, err := twoValues(c, f)
	if err != nil {
		return err
	}
	for i := range vc.Values {
		u, limit := a[at(len(a), i)], b[at(len(b), i)]
		if k.useLimit(u, limit) {
			vc.Values[i] = limit
		} else {
			vc.Values[i] = u
		}
	}
	return nil
}

func (k *clampCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	a, b, err := twoValues(c, f)
	if err != nil {
		return err
	}
	da, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return err
	}
	db, err := c.DerivativeValues(f.Source(1), d)
	if err != nil {
		return err
	}
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for comp := 0; comp < f.ComponentCount(); comp++ {
		ia, ib := at(len(a), comp), at(len(b), comp)
		if k.useLimit(a[ia], b[ib]) {
			copyTerms(out, comp, db.Values, ib, terms)
		} else {
			copyTerms(out, comp, da.Values, ia, terms)
		}
	}
	return nil
}

func (k *clampCore) Compare(other field.Core) bool {
	o, ok := other.(*clampCore)
	return ok && o.t == k.t
}

func (k *clampCore) Copy() field.Core { return &clampCore{t: k.t} }

// ClampMinimum creates max(a, limit) componentwise.
func (mod Module) ClampMinimum(a, limit *field.Field) (*field.Field, error) {
	return mod.clamp(field.TypeClampMinimum, a, limit)
}

// ClampMaximum creates min(a, limit) componentwise.
func (mod Module) ClampMaximum(a, limit *field.Field) (*field.Field, error) {
	return mod.clamp(field.TypeClampMaximum, a, limit)
}

func (mod Module) clamp(t field.Type, a, limit *field.Field) (*field.Field, error) {
	if err := checkSources(t.String(), a, limit); err != nil {
		return nil, err
	}
	if limit.ComponentCount() != 1 && limit.ComponentCount() != a.ComponentCount() {
		return nil, field.InvalidArgumentf("%s: limit has %d components, field has %d",
			t, limit.ComponentCount(), a.ComponentCount())
	}
	return mod.create(&clampCore{t: t}, a.ComponentCount(), a, limit)
}
