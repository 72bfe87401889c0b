package field

// Core computes the values of one kind of field from its sources.
//
// Cores read their sources through the Cache they are given, which memoizes
// every result, and write their own output into the ValueCache passed in.
// A failed Evaluate or EvaluateDerivative may leave partial numbers in the
// cache; the Cache only trusts a result once the call has returned nil.
type Core interface {
	Type() Type
	// IsDefinedAt reports whether f can be evaluated at c's location.
	// It must return false whenever a source is undefined there.
	IsDefinedAt(c *Cache, f *Field) bool
	Evaluate(c *Cache, f *Field, vc *ValueCache) error
	// EvaluateDerivative fills vc.Derivative(d). It is only called when
	// DerivativeTreeOrder(f, d) >= d.Order().
	EvaluateDerivative(c *Cache, f *Field, vc *ValueCache, d *Derivative) error
	// DerivativeTreeOrder is the highest order of d for which f can be
	// nonzero. Lower requests are answered with zeros without evaluation.
	DerivativeTreeOrder(f *Field, d *Derivative) int
	// Compare reports whether other has the same type and parameters.
	// Sources are compared by the caller.
	Compare(other Core) bool
	Copy() Core
}

// ValueCacheCreator is implemented by cores that need a custom value cache,
// typically one carrying an extra Cache for evaluating sources elsewhere.
type ValueCacheCreator interface {
	NewValueCache(c *Cache, f *Field) *ValueCache
}

// Assigner is implemented by cores whose parameters can be set from values
// at a location.
type Assigner interface {
	Assign(c *Cache, f *Field, values []float64) error
}

// Base supplies the defaults most cores share: definability and derivative
// order follow the sources, and derivatives are unsupported.
type Base struct{}

func (Base) IsDefinedAt(c *Cache, f *Field) bool {
	for _, s := range f.sources {
		if !c.IsDefined(s) {
			return false
		}
	}
	return true
}

func (Base) DerivativeTreeOrder(f *Field, d *Derivative) int {
	order := 0
	for _, s := range f.sources {
		if o := s.core.DerivativeTreeOrder(s, d); o > order {
			order = o
		}
	}
	return order
}

func (Base) EvaluateDerivative(c *Cache, f *Field, vc *ValueCache, d *Derivative) error {
	return UnsupportedDerivativef("field %q of type %s: order %d", f.Name(), f.Type(), d.Order())
}
