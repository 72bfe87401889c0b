package field

// ValueCache holds the last values computed for one field in one Cache,
// plus one DerivativeCache per derivative descriptor requested so far.
type ValueCache struct {
	Values []float64

	evaluationCounter uint64
	generation        uint64
	derivatives       []*DerivativeCache
	components        int
	extra             *Cache

	// Scratch is private to the field's core.
	Scratch any
}

// DerivativeCache holds component-major derivative terms:
// Values[component*TermCount + term].
type DerivativeCache struct {
	Values            []float64
	evaluationCounter uint64
}

// NewValueCache sizes a cache for a field with the given component count.
func NewValueCache(components int) *ValueCache {
	return &ValueCache{Values: make([]float64, components), components: components}
}

// Derivative returns the cache slot for d, creating it on first use.
func (vc *ValueCache) Derivative(d *Derivative) *DerivativeCache {
	idx := d.cacheIndex
	if idx >= len(vc.derivatives) {
		grown := make([]*DerivativeCache, idx+1)
		copy(grown, vc.derivatives)
		vc.derivatives = grown
	}
	dc := vc.derivatives[idx]
	if dc == nil {
		dc = &DerivativeCache{Values: make([]float64, vc.components*d.termCount)}
		vc.derivatives[idx] = dc
	}
	return dc
}

// Extra returns the cache's auxiliary Cache, used to evaluate sources at a
// location derived from the parent's. It is created on first use.
func (vc *ValueCache) Extra(parent *Cache) *Cache {
	if vc.extra == nil {
		vc.extra = parent.newExtra()
	}
	return vc.extra
}

// Components is the number of values per term.
func (vc *ValueCache) Components() int { return vc.components }

func (dc *DerivativeCache) zero() {
	for i := range dc.Values {
		dc.Values[i] = 0
	}
}
