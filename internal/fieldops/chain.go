package fieldops

import (
	"github.com/vk/fieldgrid/internal/field"
)

// unlimited is the tree order of fields whose derivatives never vanish.
const unlimited = field.MaxDerivativeOrder

func sourceTreeOrder(f *field.Field, i int, d *field.Derivative) int {
	s := f.Source(i)
	return s.Core().DerivativeTreeOrder(s, d)
}

// nonlinearTreeOrder is the tree order of a smooth nonlinear function of
// the sources: nonzero at every order unless the sources are constant.
func nonlinearTreeOrder(f *field.Field, d *field.Derivative) int {
	for i := 0; i < f.SourceCount(); i++ {
		if sourceTreeOrder(f, i, d) > 0 {
			return unlimited
		}
	}
	return 0
}

// productTreeOrder is the tree order of a product of the sources.
func productTreeOrder(f *field.Field, d *field.Derivative) int {
	sum := 0
	for i := 0; i < f.SourceCount(); i++ {
		sum += sourceTreeOrder(f, i, d)
	}
	return min(sum, unlimited)
}

// firstAndSecond returns the source's first derivative and, for order 2
// requests, its second derivative.
func firstAndSecond(c *field.Cache, src *field.Field, d *field.Derivative) (d1, d2 []float64, err error) {
	if d.Order() == 1 {
		dc, err := c.DerivativeValues(src, d)
		if err != nil {
			return nil, nil, err
		}
		return dc.Values, nil, nil
	}
	lo, err := c.DerivativeValues(src, d.Lower())
	if err != nil {
		return nil, nil, err
	}
	hi, err := c.DerivativeValues(src, d)
	if err != nil {
		return nil, nil, err
	}
	return lo.Values, hi.Values, nil
}

// unaryChain differentiates out = g(u) componentwise up to order 2, given
// the first and second derivatives of g at each component's u.
func unaryChain(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative,
	g func(u float64) (g1, g2 float64, err error)) error {
	if d.Order() > 2 {
		return field.UnsupportedDerivativef("field %q of type %s: order %d", f.Name(), f.Type(), d.Order())
	}
	src := f.Source(0)
	u, err := c.Values(src)
	if err != nil {
		return err
	}
	du, d2u, err := firstAndSecond(c, src, d)
	if err != nil {
		return err
	}
	out := vc.Derivative(d).Values
	dim, terms := d.Dimension(), d.TermCount()
	for comp := 0; comp < f.ComponentCount(); comp++ {
		g1, g2, err := g(u.Values[comp])
		if err != nil {
			return err
		}
		base := comp * terms
		if d.Order() == 1 {
			for t := 0; t < terms; t++ {
				out[base+t] = g1 * du[base+t]
			}
			continue
		}
		for t := 0; t < terms; t++ {
			i, j := d.Split(t)
			out[base+t] = g2*du[comp*dim+i]*du[comp*dim+j] + g1*d2u[base+t]
		}
	}
	return nil
}

// partials2 holds the first and second partial derivatives of a function
// of two scalars.
type partials2 struct {
	fu, fv, fuu, fuv, fvv float64
}

// binaryChain differentiates out = g(u, v) componentwise up to maxOrder
// (at most 2), broadcasting single component operands.
func binaryChain(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative, maxOrder int,
	g func(u, v float64) (partials2, error)) error {
	if d.Order() > maxOrder || d.Order() > 2 {
		return field.UnsupportedDerivativef("field %q of type %s: order %d", f.Name(), f.Type(), d.Order())
	}
	a, b := f.Source(0), f.Source(1)
	na, nb := a.ComponentCount(), b.ComponentCount()
	u, err := c.Values(a)
	if err != nil {
		return err
	}
	v, err := c.Values(b)
	if err != nil {
		return err
	}
	du, d2u, err := firstAndSecond(c, a, d)
	if err != nil {
		return err
	}
	dv, d2v, err := firstAndSecond(c, b, d)
	if err != nil {
		return err
	}
	out := vc.Derivative(d).Values
	dim, terms := d.Dimension(), d.TermCount()
	for comp := 0; comp < f.ComponentCount(); comp++ {
		ia, ib := at(na, comp), at(nb, comp)
		p, err := g(u.Values[ia], v.Values[ib])
		if err != nil {
			return err
		}
		base := comp * terms
		if d.Order() == 1 {
			for t := 0; t < terms; t++ {
				out[base+t] = p.fu*du[ia*terms+t] + p.fv*dv[ib*terms+t]
			}
			continue
		}
		for t := 0; t < terms; t++ {
			i, j := d.Split(t)
			ui, uj := du[ia*dim+i], du[ia*dim+j]
			vi, vj := dv[ib*dim+i], dv[ib*dim+j]
			out[base+t] = p.fuu*ui*uj + p.fuv*(ui*vj+uj*vi) + p.fvv*vi*vj +
				p.fu*d2u[ia*terms+t] + p.fv*d2v[ib*terms+t]
		}
	}
	return nil
}

// copyTerms copies every term of component from of src into component to
// of dst.
func copyTerms(dst []float64, to int, src []float64, from, terms int) {
	copy(dst[to*terms:(to+1)*terms], src[from*terms:(from+1)*terms])
}
