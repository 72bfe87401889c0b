package fieldops

import (
	"math"

	"github.com/vk/fieldgrid/internal/domain"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/location"
)

// nodesetOperator folds per-component values over the defined nodes.
type nodesetOperator struct {
	init   float64
	fold   func(acc, v float64) float64
	finish func(acc float64, count int) float64
}

var nodesetOperators = map[field.Type]nodesetOperator{
	field.TypeNodesetSum: {
		fold: func(acc, v float64) float64 { return acc + v },
	},
	field.TypeNodesetMean: {
		fold:   func(acc, v float64) float64 { return acc + v },
		finish: func(acc float64, n int) float64 { return acc / float64(n) },
	},
	field.TypeNodesetSumSquares: {
		fold: func(acc, v float64) float64 { return acc + v*v },
	},
	field.TypeNodesetMeanSquares: {
		fold:   func(acc, v float64) float64 { return acc + v*v },
		finish: func(acc float64, n int) float64 { return acc / float64(n) },
	},
	field.TypeNodesetMinimum: {
		init: math.Inf(1),
		fold: math.Min,
	},
	field.TypeNodesetMaximum: {
		init: math.Inf(-1),
		fold: math.Max,
	},
}

// nodesetCore reduces its source over every node of a nodeset at which
// the source is defined. Its value does not depend on the location it is
// evaluated at, only on the time.
type nodesetCore struct {
	field.Base
	t       field.Type
	nodeset domain.Nodeset
}

func (k *nodesetCore) Type() field.Type { return k.t }

// IsDefinedAt holds wherever the source is defined on at least one node.
func (k *nodesetCore) IsDefinedAt(c *field.Cache, f *field.Field) bool {
	extra := c.ExtraCache(f)
	for _, node := range k.nodeset.Nodes() {
		if extra.SetLocation(location.AtNode(node, nil).WithTime(c.Time())) != nil {
			return false
		}
		if extra.IsDefined(f.Source(0)) {
			return true
		}
	}
	return false
}

func (k *nodesetCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	op := nodesetOperators[k.t]
	for i := range vc.Values {
		vc.Values[i] = op.init
	}
	extra := c.ExtraCache(f)
	src := f.Source(0)
	count := 0
	for _, node := range k.nodeset.Nodes() {
		if err := extra.SetLocation(location.AtNode(node, nil).WithTime(c.Time())); err != nil {
			return err
		}
		if !extra.IsDefined(src) {
			continue
		}
		sv, err := extra.Values(src)
		if err != nil {
			return err
		}
		for i, v := range sv.Values {
			vc.Values[i] = op.fold(vc.Values[i], v)
		}
		count++
	}
	if count == 0 {
		return field.NotDefinedf("field %q: source %q is not defined on any node of %q",
			f.Name(), src.Name(), k.nodeset.Name())
	}
	if op.finish != nil {
		for i := range vc.Values {
			vc.Values[i] = op.finish(vc.Values[i], count)
		}
	}
	return nil
}

// Sums and means are constant over a mesh so their derivatives are zero.
// Minimum and maximum fall through to Base and report unsupported.
func (k *nodesetCore) DerivativeTreeOrder(*field.Field, *field.Derivative) int {
	if k.t == field.TypeNodesetMinimum || k.t == field.TypeNodesetMaximum {
		return unlimited
	}
	return 0
}

func (k *nodesetCore) Compare(other field.Core) bool {
	o, ok := other.(*nodesetCore)
	return ok && o.t == k.t && o.nodeset == k.nodeset
}

func (k *nodesetCore) Copy() field.Core { return &nodesetCore{t: k.t, nodeset: k.nodeset} }

// NodesetOperator creates a reduction of src over nodeset. t must be one
// of the nodeset_* types.
func (mod Module) NodesetOperator(t field.Type, src *field.Field, nodeset domain.Nodeset) (*field.Field, error) {
	if _, ok := nodesetOperators[t]; !ok {
		return nil, field.InvalidArgumentf("nodeset operator: %s is not a nodeset reduction", t)
	}
	if err := checkSources(t.String(), src); err != nil {
		return nil, err
	}
	if nodeset == nil {
		return nil, field.InvalidArgumentf("%s: nodeset is nil", t)
	}
	return mod.create(&nodesetCore{t: t, nodeset: nodeset}, src.ComponentCount(), src)
}

func (mod Module) NodesetSum(src *field.Field, ns domain.Nodeset) (*field.Field, error) {
	return mod.NodesetOperator(field.TypeNodesetSum, src, ns)
}

func (mod Module) NodesetMean(src *field.Field, ns domain.Nodeset) (*field.Field, error) {
	return mod.NodesetOperator(field.TypeNodesetMean, src, ns)
}

func (mod Module) NodesetSumSquares(src *field.Field, ns domain.Nodeset) (*field.Field, error) {
	return mod.NodesetOperator(field.TypeNodesetSumSquares, src, ns)
}

func (mod Module) NodesetMeanSquares(src *field.Field, ns domain.Nodeset) (*field.Field, error) {
	return mod.NodesetOperator(field.TypeNodesetMeanSquares, src, ns)
}

func (mod Module) NodesetMinimum(src *field.Field, ns domain.Nodeset) (*field.Field, error) {
	return mod.NodesetOperator(field.TypeNodesetMinimum, src, ns)
}

func (mod Module) NodesetMaximum(src *field.Field, ns domain.Nodeset) (*field.Field, error) {
	return mod.NodesetOperator(field.TypeNodesetMaximum, src, ns)
}
