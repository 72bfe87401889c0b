package fieldops

import (
	"math"
	"slices"

	"github.com/vk/fieldgrid/internal/field"
)

type dotProductCore struct {
	field.Base
}

func (*dotProductCore) Type() field.Type { return field.TypeDotProduct }

func (*dotProductCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	a, b, err := twoValues(c, f)
	if err != nil {
		return err
	}
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	vc.Values[0] = sum
	return nil
}

func (*dotProductCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	if d.Order() > 1 {
		return field.UnsupportedDerivativef("field %q of type dot_product: order %d", f.Name(), d.Order())
	}
	a, b, err := twoValues(c, f)
	if err != nil {
		return err
	}
	da, db, err := twoDerivatives(c, f, d)
	if err != nil {
		return err
	}
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for t := 0; t < terms; t++ {
		sum := 0.0
		for i := range a {
			sum += da[i*terms+t]*b[i] + a[i]*db[i*terms+t]
		}
		out[t] = sum
	}
	return nil
}

func (*dotProductCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	return productTreeOrder(f, d)
}

func (*dotProductCore) Compare(other field.Core) bool {
	_, ok := other.(*dotProductCore)
	return ok
}

func (*dotProductCore) Copy() field.Core { return &dotProductCore{} }

func twoDerivatives(c *field.Cache, f *field.Field, d *field.Derivative) (da, db []float64, err error) {
	a, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return nil, nil, err
	}
	b, err := c.DerivativeValues(f.Source(1), d)
	if err != nil {
		return nil, nil, err
	}
	return a.Values, b.Values, nil
}

// DotProduct creates the scalar product of two fields of equal size.
func (mod Module) DotProduct(a, b *field.Field) (*field.Field, error) {
	if err := checkSources("dot_product", a, b); err != nil {
		return nil, err
	}
	if a.ComponentCount() != b.ComponentCount() {
		return nil, field.InvalidArgumentf("dot_product: %d and %d components", a.ComponentCount(), b.ComponentCount())
	}
	return mod.create(&dotProductCore{}, 1, a, b)
}

type crossProductCore struct {
	field.Base
}

func (*crossProductCore) Type() field.Type { return field.TypeCrossProduct }

func cross(a, b []float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func (*crossProductCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	a, b, err := twoValues(c, f)
	if err != nil {
		return err
	}
	r := cross(a, b)
	copy(vc.Values, r[:])
	return nil
}

func (*crossProductCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	if d.Order() > 1 {
		return field.UnsupportedDerivativef("field %q of type cross_product: order %d", f.Name(), d.Order())
	}
	a, b, err := twoValues(c, f)
	if err != nil {
		return err
	}
	da, db, err := twoDerivatives(c, f, d)
	if err != nil {
		return err
	}
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for t := 0; t < terms; t++ {
		dat := []float64{da[t], da[terms+t], da[2*terms+t]}
		dbt := []float64{db[t], db[terms+t], db[2*terms+t]}
		p, q := cross(dat, b), cross(a, dbt)
		for i := 0; i < 3; i++ {
			out[i*terms+t] = p[i] + q[i]
		}
	}
	return nil
}

func (*crossProductCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	return productTreeOrder(f, d)
}

func (*crossProductCore) Compare(other field.Core) bool {
	_, ok := other.(*crossProductCore)
	return ok
}

func (*crossProductCore) Copy() field.Core { return &crossProductCore{} }

// CrossProduct creates a × b for 3 component fields.
func (mod Module) CrossProduct(a, b *field.Field) (*field.Field, error) {
	if err := checkSources("cross_product", a, b); err != nil {
		return nil, err
	}
	if a.ComponentCount() != 3 || b.ComponentCount() != 3 {
		return nil, field.InvalidArgumentf("cross_product: needs two 3 component fields, have %d and %d",
			a.ComponentCount(), b.ComponentCount())
	}
	return mod.create(&crossProductCore{}, 3, a, b)
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// magnitudeCore and normaliseCore share a source of any size.
type magnitudeCore struct {
	field.Base
}

func (*magnitudeCore) Type() field.Type { return field.TypeMagnitude }

func (*magnitudeCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	vc.Values[0] = norm(src.Values)
	return nil
}

func (*magnitudeCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	if d.Order() > 1 {
		return field.UnsupportedDerivativef("field %q of type magnitude: order %d", f.Name(), d.Order())
	}
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	ds, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return err
	}
	m := norm(src.Values)
	if m == 0 {
		return field.NotDefinedf("field %q: magnitude is not differentiable at zero", f.Name())
	}
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for t := 0; t < terms; t++ {
		sum := 0.0
		for i, x := range src.Values {
			sum += x * ds.Values[i*terms+t]
		}
		out[t] = sum / m
	}
	return nil
}

func (*magnitudeCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	return nonlinearTreeOrder(f, d)
}

func (*magnitudeCore) Compare(other field.Core) bool {
	_, ok := other.(*magnitudeCore)
	return ok
}

func (*magnitudeCore) Copy() field.Core { return &magnitudeCore{} }

func (mod Module) Magnitude(src *field.Field) (*field.Field, error) {
	if err := checkSources("magnitude", src); err != nil {
		return nil, err
	}
	return mod.create(&magnitudeCore{}, 1, src)
}

type normaliseCore struct {
	field.Base
}

func (*normaliseCore) Type() field.Type { return field.TypeNormalise }

func (*normaliseCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	m := norm(src.Values)
	if m == 0 {
		return field.NotDefinedf("field %q: cannot normalise a zero vector", f.Name())
	}
	for i, x := range src.Values {
		vc.Values[i] = x / m
	}
	return nil
}

func (*normaliseCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	if d.Order() > 1 {
		return field.UnsupportedDerivativef("field %q of type normalise: order %d", f.Name(), d.Order())
	}
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	ds, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return err
	}
	m := norm(src.Values)
	if m == 0 {
		return field.NotDefinedf("field %q: cannot normalise a zero vector", f.Name())
	}
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for t := 0; t < terms; t++ {
		// d(x/|x|) = (dx - n (n.dx)) / |x|
		ndx := 0.0
		for i, x := range src.Values {
			ndx += x / m * ds.Values[i*terms+t]
		}
		for i, x := range src.Values {
			out[i*terms+t] = (ds.Values[i*terms+t] - x/m*ndx) / m
		}
	}
	return nil
}

func (*normaliseCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	return nonlinearTreeOrder(f, d)
}

func (*normaliseCore) Compare(other field.Core) bool {
	_, ok := other.(*normaliseCore)
	return ok
}

func (*normaliseCore) Copy() field.Core { return &normaliseCore{} }

// Normalise creates the unit vector along src. It is undefined where src is
// zero.
func (mod Module) Normalise(src *field.Field) (*field.Field, error) {
	if err := checkSources("normalise", src); err != nil {
		return nil, err
	}
	return mod.create(&normaliseCore{}, src.ComponentCount(), src)
}

type sumComponentsCore struct {
	field.Base
	weights []float64
}

func (*sumComponentsCore) Type() field.Type { return field.TypeSumComponents }

func (k *sumComponentsCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	sum := 0.0
	for i, x := range src.Values {
		sum += k.weights[i] * x
	}
	vc.Values[0] = sum
	return nil
}

func (k *sumComponentsCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	ds, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return err
	}
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for t := 0; t < terms; t++ {
		sum := 0.0
		for i, w := range k.weights {
			sum += w * ds.Values[i*terms+t]
		}
		out[t] = sum
	}
	return nil
}

func (k *sumComponentsCore) Compare(other field.Core) bool {
	o, ok := other.(*sumComponentsCore)
	return ok && slices.Equal(k.weights, o.weights)
}

func (k *sumComponentsCore) Copy() field.Core {
	return &sumComponentsCore{weights: slices.Clone(k.weights)}
}

// SumComponents creates the weighted sum of src's components. With no
// weights every component has weight one.
func (mod Module) SumComponents(src *field.Field, weights ...float64) (*field.Field, error) {
	if err := checkSources("sum_components", src); err != nil {
		return nil, err
	}
	n := src.ComponentCount()
	if len(weights) == 0 {
		weights = make([]float64, n)
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != n {
		return nil, field.InvalidArgumentf("sum_components: %d weights for %d components", len(weights), n)
	}
	return mod.create(&sumComponentsCore{weights: slices.Clone(weights)}, 1, src)
}
