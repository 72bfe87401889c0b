package field

import (
	"sync"

	"github.com/vk/fieldgrid/internal/domain"
)

// MaxDerivativeOrder bounds the order of mesh derivatives.
const MaxDerivativeOrder = 3

// Derivative describes the order-th partial derivative with respect to the
// element xi coordinates of one mesh. Every term of the derivative tensor is
// computed together; terms are ordered with the last xi index varying
// fastest, so the term for d2/dxi_i dxi_j is i*dimension + j.
type Derivative struct {
	mesh       domain.Mesh
	dimension  int
	order      int
	termCount  int
	cacheIndex int
	lower      *Derivative
}

func (d *Derivative) Mesh() domain.Mesh { return d.mesh }
func (d *Derivative) Dimension() int    { return d.dimension }
func (d *Derivative) Order() int        { return d.order }

// TermCount is dimension^order.
func (d *Derivative) TermCount() int { return d.termCount }

// CacheIndex addresses this derivative's slot in every value cache. Zero is
// reserved for plain values so indices start at one.
func (d *Derivative) CacheIndex() int { return d.cacheIndex }

// Lower returns the derivative of one lower order, or nil for order one.
func (d *Derivative) Lower() *Derivative { return d.lower }

// Split decomposes term into the xi index of its first differentiation and
// the term of the remaining order-1 derivative.
func (d *Derivative) Split(term int) (first, rest int) {
	restCount := d.termCount / d.dimension
	return term / restCount, term % restCount
}

// Indices expands term into one xi index per order.
func (d *Derivative) Indices(term int) []int {
	out := make([]int, d.order)
	for i := d.order - 1; i >= 0; i-- {
		out[i] = term % d.dimension
		term /= d.dimension
	}
	return out
}

type derivativeKey struct {
	mesh  domain.Mesh
	order int
}

// derivativeRegistry hands out descriptors. It has its own lock so cores may
// request descriptors while an evaluation holds the structure read lock.
type derivativeRegistry struct {
	mu        sync.Mutex
	byKey     map[derivativeKey]*Derivative
	nextIndex int
}

func newDerivativeRegistry() *derivativeRegistry {
	return &derivativeRegistry{byKey: make(map[derivativeKey]*Derivative), nextIndex: 1}
}

func (r *derivativeRegistry) get(mesh domain.Mesh, order int) (*Derivative, error) {
	if mesh == nil {
		return nil, InvalidArgumentf("derivative: mesh is nil")
	}
	if order < 1 || order > MaxDerivativeOrder {
		return nil, InvalidArgumentf("derivative: order %d outside 1..%d", order, MaxDerivativeOrder)
	}
	if mesh.Dimension() < 1 {
		return nil, InvalidArgumentf("derivative: mesh %q has dimension %d", mesh.Name(), mesh.Dimension())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(mesh, order), nil
}

func (r *derivativeRegistry) getLocked(mesh domain.Mesh, order int) *Derivative {
	key := derivativeKey{mesh: mesh, order: order}
	if d, ok := r.byKey[key]; ok {
		return d
	}
	var lower *Derivative
	if order > 1 {
		lower = r.getLocked(mesh, order-1)
	}
	dim := mesh.Dimension()
	terms := 1
	for i := 0; i < order; i++ {
		terms *= dim
	}
	d := &Derivative{
		mesh:       mesh,
		dimension:  dim,
		order:      order,
		termCount:  terms,
		cacheIndex: r.nextIndex,
		lower:      lower,
	}
	r.nextIndex++
	r.byKey[key] = d
	return d
}
