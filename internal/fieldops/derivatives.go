package fieldops

import (
	"gonum.org/v1/gonum/mat"

	"github.com/vk/fieldgrid/internal/domain"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/location"
)

// derivativeCore is the first derivative of its source with respect to one
// xi direction of a mesh.
type derivativeCore struct {
	field.Base
	mesh    domain.Mesh
	xiIndex int
}

func (*derivativeCore) Type() field.Type { return field.TypeDerivative }

func (k *derivativeCore) inMesh(c *field.Cache) bool {
	loc := c.Location()
	return loc.Kind() == location.KindElementXi && loc.Element().Mesh() == k.mesh
}

func (k *derivativeCore) IsDefinedAt(c *field.Cache, f *field.Field) bool {
	return k.inMesh(c) && c.IsDefined(f.Source(0))
}

func (k *derivativeCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	if !k.inMesh(c) {
		return field.NotDefinedf("field %q: needs an element of mesh %q", f.Name(), k.mesh.Name())
	}
	d, err := c.Manager().Derivative(k.mesh, 1)
	if err != nil {
		return err
	}
	ds, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return err
	}
	dim := d.Dimension()
	for comp := range vc.Values {
		vc.Values[comp] = ds.Values[comp*dim+k.xiIndex]
	}
	return nil
}

// EvaluateDerivative reads the matching terms of the source's next higher
// derivative: d^k/dxi.. of this field is d^(k+1)/dxi_index dxi.. of the
// source.
func (k *derivativeCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	if d.Order()+1 > field.MaxDerivativeOrder {
		return field.UnsupportedDerivativef("field %q of type derivative: order %d", f.Name(), d.Order())
	}
	higher, err := c.Manager().Derivative(k.mesh, d.Order()+1)
	if err != nil {
		return err
	}
	ds, err := c.DerivativeValues(f.Source(0), higher)
	if err != nil {
		return err
	}
	out := vc.Derivative(d).Values
	terms, srcTerms := d.TermCount(), higher.TermCount()
	for comp := 0; comp < f.ComponentCount(); comp++ {
		for t := 0; t < terms; t++ {
			out[comp*terms+t] = ds.Values[comp*srcTerms+k.xiIndex*terms+t]
		}
	}
	return nil
}

func (k *derivativeCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	order := sourceTreeOrder(f, 0, d)
	if order >= unlimited {
		return unlimited
	}
	return max(order-1, 0)
}

func (k *derivativeCore) Compare(other field.Core) bool {
	o, ok := other.(*derivativeCore)
	return ok && o.mesh == k.mesh && o.xiIndex == k.xiIndex
}

func (k *derivativeCore) Copy() field.Core {
	return &derivativeCore{mesh: k.mesh, xiIndex: k.xiIndex}
}

// Derivative creates d(src)/d(xi_index) on mesh, xiIndex being 0-based.
func (mod Module) Derivative(src *field.Field, mesh domain.Mesh, xiIndex int) (*field.Field, error) {
	if err := checkSources("derivative", src); err != nil {
		return nil, err
	}
	if mesh == nil {
		return nil, field.InvalidArgumentf("derivative: mesh is nil")
	}
	if xiIndex < 0 || xiIndex >= mesh.Dimension() {
		return nil, field.InvalidArgumentf("derivative: xi index %d out of range 1..%d", xiIndex+1, mesh.Dimension())
	}
	return mod.create(&derivativeCore{mesh: mesh, xiIndex: xiIndex}, src.ComponentCount(), src)
}

// spatialGradient returns the n×c matrix d(src)/d(coords) at the current
// element location, using the pseudo-inverse of d(coords)/d(xi) when the
// element dimension is below the coordinate count. Coordinates are
// differentiated on the evaluation element itself, not its top-level
// element. A singular mapping gives a zero gradient; more element
// dimensions than coordinates is not defined.
func spatialGradient(c *field.Cache, f *field.Field) (*mat.Dense, error) {
	loc := c.Location()
	if loc.Kind() != location.KindElementXi {
		return nil, field.NotDefinedf("field %q: gradients need an element location", f.Name())
	}
	d, err := c.Manager().Derivative(loc.Element().Mesh(), 1)
	if err != nil {
		return nil, err
	}
	src, coords := f.Source(0), f.Source(1)
	ds, err := c.DerivativeValues(src, d)
	if err != nil {
		return nil, err
	}
	dx, err := c.DerivativeValues(coords, d)
	if err != nil {
		return nil, err
	}
	n, nc, dim := src.ComponentCount(), coords.ComponentCount(), d.Dimension()
	dsDxi := mat.NewDense(n, dim, append([]float64(nil), ds.Values...))
	dxDxi := mat.NewDense(nc, dim, append([]float64(nil), dx.Values...))

	var pinv mat.Dense // dim × nc
	var sq mat.Dense
	var inv mat.Dense
	switch {
	case dim == nc:
		if err := pinv.Inverse(dxDxi); err != nil {
			return mat.NewDense(n, nc, nil), nil
		}
	case dim < nc:
		// (JᵀJ)⁻¹Jᵀ
		sq.Mul(dxDxi.T(), dxDxi)
		if err := inv.Inverse(&sq); err != nil {
			return mat.NewDense(n, nc, nil), nil
		}
		pinv.Mul(&inv, dxDxi.T())
	default:
		return nil, field.NotDefinedf("field %q: %d coordinate components cannot span a %d dimensional element",
			f.Name(), nc, dim)
	}
	var grad mat.Dense
	grad.Mul(dsDxi, &pinv)
	return &grad, nil
}

// gradientDefined holds at an element no wider than the coordinates, where
// every source is defined.
func gradientDefined(c *field.Cache, f *field.Field) bool {
	loc := c.Location()
	if loc.Kind() != location.KindElementXi || loc.Dimension() > f.Source(1).ComponentCount() {
		return false
	}
	return field.Base{}.IsDefinedAt(c, f)
}

// gradientCore is the n×c matrix of source derivatives with respect to a
// coordinate field.
type gradientCore struct {
	field.Base
}

func (*gradientCore) Type() field.Type { return field.TypeGradient }

func (*gradientCore) IsDefinedAt(c *field.Cache, f *field.Field) bool {
	return gradientDefined(c, f)
}

func (*gradientCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	g, err := spatialGradient(c, f)
	if err != nil {
		return err
	}
	rows, cols := g.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			vc.Values[i*cols+j] = g.At(i, j)
		}
	}
	return nil
}

func (*gradientCore) Compare(other field.Core) bool {
	_, ok := other.(*gradientCore)
	return ok
}

func (*gradientCore) Copy() field.Core { return &gradientCore{} }

func (mod Module) Gradient(src, coords *field.Field) (*field.Field, error) {
	if err := checkSources("gradient", src, coords); err != nil {
		return nil, err
	}
	if coords.ComponentCount() > 3 {
		return nil, field.InvalidArgumentf("gradient: coordinates have %d components, at most 3 allowed",
			coords.ComponentCount())
	}
	return mod.create(&gradientCore{}, src.ComponentCount()*coords.ComponentCount(), src, coords)
}

type divergenceCore struct {
	field.Base
}

func (*divergenceCore) Type() field.Type { return field.TypeDivergence }

func (*divergenceCore) IsDefinedAt(c *field.Cache, f *field.Field) bool {
	return gradientDefined(c, f)
}

func (*divergenceCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	g, err := spatialGradient(c, f)
	if err != nil {
		return err
	}
	vc.Values[0] = mat.Trace(g)
	return nil
}

func (*divergenceCore) Compare(other field.Core) bool {
	_, ok := other.(*divergenceCore)
	return ok
}

func (*divergenceCore) Copy() field.Core { return &divergenceCore{} }

// Divergence creates the divergence of a vector field with as many
// components as coords.
func (mod Module) Divergence(vector, coords *field.Field) (*field.Field, error) {
	if err := checkSources("divergence", vector, coords); err != nil {
		return nil, err
	}
	if vector.ComponentCount() != coords.ComponentCount() || coords.ComponentCount() > 3 {
		return nil, field.InvalidArgumentf("divergence: vector has %d components, coordinates %d",
			vector.ComponentCount(), coords.ComponentCount())
	}
	return mod.create(&divergenceCore{}, 1, vector, coords)
}

type curlCore struct {
	field.Base
}

func (*curlCore) Type() field.Type { return field.TypeCurl }

func (*curlCore) IsDefinedAt(c *field.Cache, f *field.Field) bool {
	return gradientDefined(c, f)
}

func (*curlCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	g, err := spatialGradient(c, f)
	if err != nil {
		return err
	}
	vc.Values[0] = g.At(2, 1) - g.At(1, 2)
	vc.Values[1] = g.At(0, 2) - g.At(2, 0)
	vc.Values[2] = g.At(1, 0) - g.At(0, 1)
	return nil
}

func (*curlCore) Compare(other field.Core) bool {
	_, ok := other.(*curlCore)
	return ok
}

func (*curlCore) Copy() field.Core { return &curlCore{} }

// Curl creates the curl of a 3 component vector field with respect to 3
// component coordinates.
func (mod Module) Curl(vector, coords *field.Field) (*field.Field, error) {
	if err := checkSources("curl", vector, coords); err != nil {
		return nil, err
	}
	if vector.ComponentCount() != 3 || coords.ComponentCount() != 3 {
		return nil, field.InvalidArgumentf("curl: needs 3 component vector and coordinates, have %d and %d",
			vector.ComponentCount(), coords.ComponentCount())
	}
	return mod.create(&curlCore{}, 3, vector, coords)
}
