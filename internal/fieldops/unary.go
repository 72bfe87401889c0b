package fieldops

import (
	"math"

	"github.com/vk/fieldgrid/internal/field"
)

// unaryKernel is a smooth scalar function with its first two derivatives.
// inDomain rejects arguments where the function or its derivatives do not
// exist.
type unaryKernel struct {
	eval     func(u float64) float64
	deriv    func(u float64) (d1, d2 float64)
	inDomain func(u float64) bool
	// smoothAt rejects arguments where only the derivatives do not exist.
	smoothAt func(u float64) bool
}

func always(float64) bool { return true }

var unaryKernels = map[field.Type]unaryKernel{
	field.TypeSqrt: {
		eval: math.Sqrt,
		deriv: func(u float64) (float64, float64) {
			s := math.Sqrt(u)
			return 0.5 / s, -0.25 / (u * s)
		},
		inDomain: func(u float64) bool { return u >= 0 },
		smoothAt: func(u float64) bool { return u > 0 },
	},
	field.TypeLog: {
		eval:     math.Log,
		deriv:    func(u float64) (float64, float64) { return 1 / u, -1 / (u * u) },
		inDomain: func(u float64) bool { return u > 0 },
		smoothAt: always,
	},
	field.TypeExp: {
		eval: math.Exp,
		deriv: func(u float64) (float64, float64) {
			e := math.Exp(u)
			return e, e
		},
		inDomain: always,
		smoothAt: always,
	},
	field.TypeAbs: {
		eval: math.Abs,
		deriv: func(u float64) (float64, float64) {
			if u < 0 {
				return -1, 0
			}
			return 1, 0
		},
		inDomain: always,
		smoothAt: always,
	},
	field.TypeSin: {
		eval:     math.Sin,
		deriv:    func(u float64) (float64, float64) { return math.Cos(u), -math.Sin(u) },
		inDomain: always,
		smoothAt: always,
	},
	field.TypeCos: {
		eval:     math.Cos,
		deriv:    func(u float64) (float64, float64) { return -math.Sin(u), -math.Cos(u) },
		inDomain: always,
		smoothAt: always,
	},
	field.TypeTan: {
		eval: math.Tan,
		deriv: func(u float64) (float64, float64) {
			t := math.Tan(u)
			sec2 := 1 + t*t
			return sec2, 2 * t * sec2
		},
		inDomain: func(u float64) bool { return math.Cos(u) != 0 },
		smoothAt: always,
	},
	field.TypeAsin: {
		eval: math.Asin,
		deriv: func(u float64) (float64, float64) {
			r := 1 - u*u
			return 1 / math.Sqrt(r), u / (r * math.Sqrt(r))
		},
		inDomain: func(u float64) bool { return u >= -1 && u <= 1 },
		smoothAt: func(u float64) bool { return u > -1 && u < 1 },
	},
	field.TypeAcos: {
		eval: math.Acos,
		deriv: func(u float64) (float64, float64) {
			r := 1 - u*u
			return -1 / math.Sqrt(r), -u / (r * math.Sqrt(r))
		},
		inDomain: func(u float64) bool { return u >= -1 && u <= 1 },
		smoothAt: func(u float64) bool { return u > -1 && u < 1 },
	},
	field.TypeAtan: {
		eval: math.Atan,
		deriv: func(u float64) (float64, float64) {
			r := 1 + u*u
			return 1 / r, -2 * u / (r * r)
		},
		inDomain: always,
		smoothAt: always,
	},
}

type unaryCore struct {
	field.Base
	t field.Type
}

func (k *unaryCore) Type() field.Type { return k.t }

func (k *unaryCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	kernel := unaryKernels[k.t]
	for i, u := range src.Values {
		if !kernel.inDomain(u) {
			return field.NotDefinedf("field %q: %s(%g) component %d", f.Name(), k.t, u, i+1)
		}
		vc.Values[i] = kernel.eval(u)
	}
	return nil
}

func (k *unaryCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	kernel := unaryKernels[k.t]
	return unaryChain(c, f, vc, d, func(u float64) (float64, float64, error) {
		if !kernel.inDomain(u) || !kernel.smoothAt(u) {
			return 0, 0, field.NotDefinedf("field %q: %s is not differentiable at %g", f.Name(), k.t, u)
		}
		d1, d2 := kernel.deriv(u)
		return d1, d2, nil
	})
}

func (k *unaryCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	return nonlinearTreeOrder(f, d)
}

func (k *unaryCore) Compare(other field.Core) bool {
	o, ok := other.(*unaryCore)
	return ok && o.t == k.t
}

func (k *unaryCore) Copy() field.Core { return &unaryCore{t: k.t} }

// Unary creates one of the componentwise functions: sqrt, log, exp, abs,
// sin, cos, tan, asin, acos or atan.
func (mod Module) Unary(t field.Type, src *field.Field) (*field.Field, error) {
	if _, ok := unaryKernels[t]; !ok {
		return nil, field.InvalidArgumentf("%s is not a unary function", t)
	}
	if err := checkSources(t.String(), src); err != nil {
		return nil, err
	}
	return mod.create(&unaryCore{t: t}, src.ComponentCount(), src)
}

func (mod Module) Sqrt(src *field.Field) (*field.Field, error) { return mod.Unary(field.TypeSqrt, src) }
func (mod Module) Log(src *field.Field) (*field.Field, error)  { return mod.Unary(field.TypeLog, src) }
func (mod Module) Exp(src *field.Field) (*field.Field, error)  { return mod.Unary(field.TypeExp, src) }
func (mod Module) Abs(src *field.Field) (*field.Field, error)  { return mod.Unary(field.TypeAbs, src) }
func (mod Module) Sin(src *field.Field) (*field.Field, error)  { return mod.Unary(field.TypeSin, src) }
func (mod Module) Cos(src *field.Field) (*field.Field, error)  { return mod.Unary(field.TypeCos, src) }
func (mod Module) Tan(src *field.Field) (*field.Field, error)  { return mod.Unary(field.TypeTan, src) }
func (mod Module) Asin(src *field.Field) (*field.Field, error) { return mod.Unary(field.TypeAsin, src) }
func (mod Module) Acos(src *field.Field) (*field.Field, error) { return mod.Unary(field.TypeAcos, src) }
func (mod Module) Atan(src *field.Field) (*field.Field, error) { return mod.Unary(field.TypeAtan, src) }
