package fieldops

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/vk/fieldgrid/internal/field"
)

// toRC converts x in cs to rectangular cartesian and returns the jacobian
// d(rc)/d(x).
func toRC(cs field.CoordinateSystem, x [3]float64) ([3]float64, *mat.Dense) {
	a := cs.Focus
	switch cs.Type {
	case field.CylindricalPolar:
		r, th, z := x[0], x[1], x[2]
		s, c := math.Sincos(th)
		return [3]float64{r * c, r * s, z}, mat.NewDense(3, 3, []float64{
			c, -r * s, 0,
			s, r * c, 0,
			0, 0, 1,
		})
	case field.SphericalPolar:
		r, th, ph := x[0], x[1], x[2]
		st, ct := math.Sincos(th)
		sp, cp := math.Sincos(ph)
		return [3]float64{r * ct * cp, r * st * cp, r * sp}, mat.NewDense(3, 3, []float64{
			ct * cp, -r * st * cp, -r * ct * sp,
			st * cp, r * ct * cp, -r * st * sp,
			sp, 0, r * cp,
		})
	case field.ProlateSpheroidal:
		sl, cl := math.Sinh(x[0]), math.Cosh(x[0])
		sm, cm := math.Sincos(x[1])
		st, ct := math.Sincos(x[2])
		return [3]float64{a * cl * cm, a * sl * sm * ct, a * sl * sm * st}, mat.NewDense(3, 3, []float64{
			a * sl * cm, -a * cl * sm, 0,
			a * cl * sm * ct, a * sl * cm * ct, -a * sl * sm * st,
			a * cl * sm * st, a * sl * cm * st, a * sl * sm * ct,
		})
	case field.OblateSpheroidal:
		sl, cl := math.Sinh(x[0]), math.Cosh(x[0])
		sm, cm := math.Sincos(x[1])
		st, ct := math.Sincos(x[2])
		return [3]float64{a * cl * cm * ct, a * sl * sm, a * cl * cm * st}, mat.NewDense(3, 3, []float64{
			a * sl * cm * ct, -a * cl * sm * ct, -a * cl * cm * st,
			a * cl * sm, a * sl * cm, 0,
			a * sl * cm * st, -a * cl * sm * st, a * cl * cm * ct,
		})
	}
	return x, mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// fromRC converts rectangular cartesian rc to cs.
func fromRC(cs field.CoordinateSystem, rc [3]float64) [3]float64 {
	x, y, z := rc[0], rc[1], rc[2]
	a := cs.Focus
	switch cs.Type {
	case field.CylindricalPolar:
		return [3]float64{math.Hypot(x, y), math.Atan2(y, x), z}
	case field.SphericalPolar:
		r := math.Sqrt(x*x + y*y + z*z)
		phi := 0.0
		if r > 0 {
			phi = math.Asin(z / r)
		}
		return [3]float64{r, math.Atan2(y, x), phi}
	case field.ProlateSpheroidal:
		rho := math.Hypot(y, z)
		r1, r2 := math.Hypot(x+a, rho), math.Hypot(x-a, rho)
		return [3]float64{
			math.Acosh(math.Max(1, (r1+r2)/(2*a))),
			math.Acos(clampUnit((r1 - r2) / (2 * a))),
			math.Atan2(z, y),
		}
	case field.OblateSpheroidal:
		rho := math.Hypot(x, z)
		d1, d2 := math.Hypot(rho+a, y), math.Hypot(rho-a, y)
		mu := math.Acos(clampUnit((d1 - d2) / (2 * a)))
		if y < 0 {
			mu = -mu
		}
		return [3]float64{math.Acosh(math.Max(1, (d1+d2)/(2*a))), mu, math.Atan2(z, x)}
	}
	return rc
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func pad3(values []float64) [3]float64 {
	var x [3]float64
	copy(x[:], values)
	return x
}

func checkPositionSystem(op string, cs field.CoordinateSystem) error {
	switch cs.Type {
	case field.Fibre:
		return field.InvalidArgumentf("%s: fibre is not a position coordinate system", op)
	case field.ProlateSpheroidal, field.OblateSpheroidal:
		if cs.Focus <= 0 {
			return field.InvalidArgumentf("%s: %s needs a positive focus", op, cs.Type)
		}
	}
	return nil
}

// fromRCJacobian returns d(y)/d(rc) at y = fromRC(cs, rc).
func fromRCJacobian(f *field.Field, cs field.CoordinateSystem, y [3]float64) (*mat.Dense, error) {
	_, j := toRC(cs, y)
	var inv mat.Dense
	if err := inv.Inverse(j); err != nil {
		return nil, field.NotDefinedf("field %q: %s is singular here", f.Name(), cs.Type)
	}
	return &inv, nil
}

// coordinateTransformationCore converts its source from the source's
// coordinate system into the field's own.
type coordinateTransformationCore struct {
	field.Base
}

func (*coordinateTransformationCore) Type() field.Type { return field.TypeCoordinateTransformation }

func (*coordinateTransformationCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	rc, _ := toRC(f.Source(0).CoordinateSystem(), pad3(src.Values))
	y := fromRC(f.CoordinateSystem(), rc)
	copy(vc.Values, y[:])
	return nil
}

func (*coordinateTransformationCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	if d.Order() > 1 {
		return field.UnsupportedDerivativef("field %q of type coordinate_transformation: order %d", f.Name(), d.Order())
	}
	s := f.Source(0)
	src, err := c.Values(s)
	if err != nil {
		return err
	}
	ds, err := c.DerivativeValues(s, d)
	if err != nil {
		return err
	}
	rc, toJ := toRC(s.CoordinateSystem(), pad3(src.Values))
	y := fromRC(f.CoordinateSystem(), rc)
	fromJ, err := fromRCJacobian(f, f.CoordinateSystem(), y)
	if err != nil {
		return err
	}
	var j mat.Dense
	j.Mul(fromJ, toJ)
	n := s.ComponentCount()
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for t := 0; t < terms; t++ {
		for i := 0; i < 3; i++ {
			sum := 0.0
			for k := 0; k < n; k++ {
				sum += j.At(i, k) * ds.Values[k*terms+t]
			}
			out[i*terms+t] = sum
		}
	}
	return nil
}

func (*coordinateTransformationCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	return nonlinearTreeOrder(f, d)
}

func (*coordinateTransformationCore) Compare(other field.Core) bool {
	_, ok := other.(*coordinateTransformationCore)
	return ok
}

func (*coordinateTransformationCore) Copy() field.Core { return &coordinateTransformationCore{} }

// CoordinateTransformation creates src converted into the module's
// coordinate system, rectangular cartesian unless set.
func (mod Module) CoordinateTransformation(src *field.Field) (*field.Field, error) {
	if err := checkSources("coordinate_transformation", src); err != nil {
		return nil, err
	}
	if src.ComponentCount() > 3 {
		return nil, field.InvalidArgumentf("coordinate_transformation: source has %d components, at most 3 allowed",
			src.ComponentCount())
	}
	target := field.CoordinateSystem{Type: field.RectangularCartesian}
	if mod.coordinateSystem != nil {
		target = *mod.coordinateSystem
	}
	for _, cs := range []field.CoordinateSystem{src.CoordinateSystem(), target} {
		if err := checkPositionSystem("coordinate_transformation", cs); err != nil {
			return nil, err
		}
	}
	return mod.WithCoordinateSystem(target).create(&coordinateTransformationCore{}, 3, src)
}

// vectorCoordinateTransformationCore converts one to three 3 component
// tangent vectors from the vector source's coordinate system into the
// field's own, at the position given by the coordinate source.
type vectorCoordinateTransformationCore struct {
	field.Base
}

func (*vectorCoordinateTransformationCore) Type() field.Type {
	return field.TypeVectorCoordinateTransformation
}

func (*vectorCoordinateTransformationCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	vec, coords := f.Source(0), f.Source(1)
	v, x, err := twoValues(c, f)
	if err != nil {
		return err
	}
	rc, _ := toRC(coords.CoordinateSystem(), pad3(x))
	_, vecJ := toRC(vec.CoordinateSystem(), fromRC(vec.CoordinateSystem(), rc))
	target := f.CoordinateSystem()
	targetJ, err := fromRCJacobian(f, target, fromRC(target, rc))
	if err != nil {
		return err
	}
	var j mat.Dense
	j.Mul(targetJ, vecJ)
	for base := 0; base < len(v); base += 3 {
		var out mat.VecDense
		out.MulVec(&j, mat.NewVecDense(3, []float64{v[base], v[base+1], v[base+2]}))
		for i := 0; i < 3; i++ {
			vc.Values[base+i] = out.AtVec(i)
		}
	}
	return nil
}

func (*vectorCoordinateTransformationCore) Compare(other field.Core) bool {
	_, ok := other.(*vectorCoordinateTransformationCore)
	return ok
}

func (*vectorCoordinateTransformationCore) Copy() field.Core {
	return &vectorCoordinateTransformationCore{}
}

// VectorCoordinateTransformation creates vectors converted into the
// module's coordinate system at the position coords.
func (mod Module) VectorCoordinateTransformation(vectors, coords *field.Field) (*field.Field, error) {
	const op = "vector_coordinate_transformation"
	if err := checkSources(op, vectors, coords); err != nil {
		return nil, err
	}
	n := vectors.ComponentCount()
	if n%3 != 0 || n > 9 {
		return nil, field.InvalidArgumentf("%s: %d components is not 1 to 3 vectors of 3", op, n)
	}
	if coords.ComponentCount() > 3 {
		return nil, field.InvalidArgumentf("%s: coordinates have %d components", op, coords.ComponentCount())
	}
	target := field.CoordinateSystem{Type: field.RectangularCartesian}
	if mod.coordinateSystem != nil {
		target = *mod.coordinateSystem
	}
	for _, cs := range []field.CoordinateSystem{vectors.CoordinateSystem(), coords.CoordinateSystem(), target} {
		if err := checkPositionSystem(op, cs); err != nil {
			return nil, err
		}
	}
	return mod.WithCoordinateSystem(target).create(&vectorCoordinateTransformationCore{}, n, vectors, coords)
}
