package fieldops

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/vk/fieldgrid/internal/domain"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/location"
)

const (
	composeMaxIterations = 25
	composeTolerance     = 1e-10
)

// composeCore finds the location in a search mesh where the find field
// equals the texture field's current value, then evaluates the calculate
// field there.
type composeCore struct {
	field.Base
	mesh        domain.Mesh
	findNearest bool
}

func (*composeCore) Type() field.Type { return field.TypeCompose }

// locate positions the extra cache at the found mesh location.
func (k *composeCore) locate(c *field.Cache, f *field.Field) (*field.Cache, error) {
	texture, find := f.Source(0), f.Source(1)
	tv, err := c.Values(texture)
	if err != nil {
		return nil, err
	}
	target := mat.NewVecDense(len(tv.Values), append([]float64(nil), tv.Values...))
	d, err := c.Manager().Derivative(k.mesh, 1)
	if err != nil {
		return nil, err
	}
	extra := c.ExtraCache(f)
	// The extra cache keeps the last location found; an exact match there
	// needs no search.
	if prev := extra.Location(); prev.Kind() == location.KindElementXi && prev.Time() == c.Time() &&
		k.mesh.ContainsElement(prev.Element()) {
		if res, ok := residual(extra, find, target); ok && res <= composeTolerance {
			return extra, nil
		}
	}

	var (
		best    location.Location
		bestRes = math.Inf(1)
	)
	for _, e := range k.mesh.Elements() {
		xi, res, ok := k.search(extra, find, d, e, target, c.Time())
		if !ok {
			continue
		}
		if res < bestRes {
			bestRes = res
			best = location.ElementXi(e, nil, xi).WithTime(c.Time())
		}
		if res <= composeTolerance {
			break
		}
	}
	if best.Kind() == location.KindNone || (!k.findNearest && bestRes > composeTolerance) {
		return nil, field.NotDefinedf("field %q: no location in mesh %q matches %v",
			f.Name(), k.mesh.Name(), tv.Values)
	}
	if err := extra.SetLocation(best); err != nil {
		return nil, err
	}
	return extra, nil
}

// search runs Newton iterations for the xi in e minimising |find - target|,
// keeping xi inside the element. It returns the final residual norm.
func (k *composeCore) search(extra *field.Cache, find *field.Field, d *field.Derivative,
	e domain.Element, target *mat.VecDense, time float64,
) ([]float64, float64, bool) {
	dim := k.mesh.Dimension()
	xi := make([]float64, dim)
	for i := range xi {
		xi[i] = 0.5
	}
	res := math.Inf(1)
	for iter := 0; iter < composeMaxIterations; iter++ {
		loc := location.ElementXi(e, nil, xi).WithTime(time)
		if extra.SetLocation(loc) != nil {
			return nil, 0, false
		}
		r, ok := difference(extra, find, target)
		if !ok {
			return nil, 0, false
		}
		res = mat.Norm(r, 2)
		if res <= composeTolerance {
			break
		}
		dv, err := extra.DerivativeValues(find, d)
		if err != nil {
			return nil, 0, false
		}
		jac := mat.NewDense(dim, dim, append([]float64(nil), dv.Values...))
		var step mat.VecDense
		if err := step.SolveVec(jac, r); err != nil {
			break
		}
		moved := 0.0
		for i := range xi {
			next := clampXi(xi[i] + step.AtVec(i))
			moved += math.Abs(next - xi[i])
			xi[i] = next
		}
		if moved == 0 {
			break
		}
	}
	return xi, res, true
}

// difference is target minus find at extra's location.
func difference(extra *field.Cache, find *field.Field, target *mat.VecDense) (*mat.VecDense, bool) {
	if !extra.IsDefined(find) {
		return nil, false
	}
	fv, err := extra.Values(find)
	if err != nil {
		return nil, false
	}
	var r mat.VecDense
	r.SubVec(target, mat.NewVecDense(len(fv.Values), append([]float64(nil), fv.Values...)))
	return &r, true
}

func residual(extra *field.Cache, find *field.Field, target *mat.VecDense) (float64, bool) {
	r, ok := difference(extra, find, target)
	if !ok {
		return 0, false
	}
	return mat.Norm(r, 2), true
}

func clampXi(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func (k *composeCore) IsDefinedAt(c *field.Cache, f *field.Field) bool {
	if !c.IsDefined(f.Source(0)) {
		return false
	}
	extra, err := k.locate(c, f)
	return err == nil && extra.IsDefined(f.Source(2))
}

func (k *composeCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	extra, err := k.locate(c, f)
	if err != nil {
		return err
	}
	cv, err := extra.Values(f.Source(2))
	if err != nil {
		return err
	}
	copy(vc.Values, cv.Values)
	return nil
}

// The found location moves with the texture values, so only the plain
// value is available.
func (*composeCore) DerivativeTreeOrder(*field.Field, *field.Derivative) int { return unlimited }

func (k *composeCore) Compare(other field.Core) bool {
	o, ok := other.(*composeCore)
	return ok && o.mesh == k.mesh && o.findNearest == k.findNearest
}

func (k *composeCore) Copy() field.Core {
	return &composeCore{mesh: k.mesh, findNearest: k.findNearest}
}

// Compose creates calculate evaluated where find, searched over mesh,
// equals texture. With findNearest the closest match is used when no
// exact one exists.
func (mod Module) Compose(texture, find, calculate *field.Field, mesh domain.Mesh, findNearest bool) (*field.Field, error) {
	if err := checkSources("compose", texture, find, calculate); err != nil {
		return nil, err
	}
	if mesh == nil {
		return nil, field.InvalidArgumentf("compose: search mesh is nil")
	}
	if find.ComponentCount() != mesh.Dimension() {
		return nil, field.InvalidArgumentf("compose: find field %q has %d components, mesh %q has dimension %d",
			find.Name(), find.ComponentCount(), mesh.Name(), mesh.Dimension())
	}
	if texture.ComponentCount() != find.ComponentCount() {
		return nil, field.InvalidArgumentf("compose: texture field has %d components, find field %d",
			texture.ComponentCount(), find.ComponentCount())
	}
	return mod.create(&composeCore{mesh: mesh, findNearest: findNearest},
		calculate.ComponentCount(), texture, find, calculate)
}
