package field

import (
	"slices"

	"github.com/vk/fieldgrid/internal/domain"
	"github.com/vk/fieldgrid/internal/location"
)

// Cache is an evaluation context: a current location plus one ValueCache
// per field evaluated through it. A Cache is used by one goroutine at a
// time; create one per worker to evaluate concurrently.
type Cache struct {
	manager *Manager
	// parent is set for extra caches owned by a ValueCache.
	parent *Cache

	loc             location.Location
	locationCounter uint64
	generation      uint64
	synced          bool
	valueCaches     []*ValueCache

	// depth counts nested calls on the root cache; the read lock is held
	// while it is positive.
	depth int
}

func newCache(m *Manager, parent *Cache) *Cache {
	return &Cache{manager: m, parent: parent, locationCounter: 1}
}

func (c *Cache) newExtra() *Cache {
	return newCache(c.manager, c)
}

func (c *Cache) root() *Cache {
	r := c
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Manager returns the manager the cache was created from.
func (c *Cache) Manager() *Manager { return c.manager }

// Location returns the current location.
func (c *Cache) Location() location.Location { return c.loc }

func (c *Cache) Time() float64 { return c.loc.Time() }

// SetLocation moves the cache. Values cached at the previous location
// become stale.
func (c *Cache) SetLocation(loc location.Location) error {
	if err := loc.Validate(); err != nil {
		return InvalidArgumentf("set location: %v", err)
	}
	if location.Equal(c.loc, loc) {
		return nil
	}
	c.loc = loc
	c.locationCounter++
	return nil
}

// SetElementXi keeps the current time.
func (c *Cache) SetElementXi(e domain.Element, xi []float64) error {
	if e == nil {
		return InvalidArgumentf("set element xi: element is nil")
	}
	return c.SetLocation(location.ElementXi(e, nil, xi).WithTime(c.loc.Time()))
}

// SetNode keeps the current time.
func (c *Cache) SetNode(n domain.Node) error {
	if n == nil {
		return InvalidArgumentf("set node: node is nil")
	}
	return c.SetLocation(location.AtNode(n, nil).WithTime(c.loc.Time()))
}

// SetCoordinates keeps the current time.
func (c *Cache) SetCoordinates(values []float64) error {
	return c.SetLocation(location.Coordinates(values).WithTime(c.loc.Time()))
}

// SetTime keeps the current position.
func (c *Cache) SetTime(t float64) {
	if c.loc.Time() == t {
		return
	}
	c.loc = c.loc.WithTime(t)
	c.locationCounter++
}

func (c *Cache) enter() {
	r := c.root()
	if r.depth == 0 {
		c.manager.tree.mu.RLock()
	}
	r.depth++
	if g := c.manager.tree.generation; !c.synced || g != c.generation {
		c.generation = g
		c.synced = true
		c.locationCounter++
	}
}

func (c *Cache) leave() {
	r := c.root()
	r.depth--
	if r.depth == 0 {
		c.manager.tree.mu.RUnlock()
	}
}

func (c *Cache) checkField(f *Field) error {
	if f == nil {
		return InvalidArgumentf("field is nil")
	}
	if f.manager == nil {
		return InvalidArgumentf("field %q has been removed from its region", f.name)
	}
	if f.manager.tree != c.manager.tree {
		return InvalidArgumentf("field %q belongs to another region tree", f.name)
	}
	return nil
}

func (c *Cache) valueCache(f *Field) *ValueCache {
	idx := f.cacheIndex
	if idx >= len(c.valueCaches) {
		grown := make([]*ValueCache, idx+1+idx/2)
		copy(grown, c.valueCaches)
		c.valueCaches = grown
	}
	vc := c.valueCaches[idx]
	// Definitions may have changed since the cache was made.
	if vc == nil || vc.generation != c.generation {
		if creator, ok := f.core.(ValueCacheCreator); ok {
			vc = creator.NewValueCache(c, f)
		} else {
			vc = NewValueCache(f.components)
		}
		vc.generation = c.generation
		c.valueCaches[idx] = vc
	}
	return vc
}

// Evaluate returns a copy of f's values at the current location.
func (c *Cache) Evaluate(f *Field) ([]float64, error) {
	vc, err := c.Values(f)
	if err != nil {
		return nil, err
	}
	return slices.Clone(vc.Values), nil
}

// Values evaluates f and returns its value cache. Cores use it to read
// their sources; the returned cache must not be modified.
func (c *Cache) Values(f *Field) (*ValueCache, error) {
	c.enter()
	defer c.leave()
	if err := c.checkField(f); err != nil {
		return nil, err
	}
	obs := c.manager.tree.observer
	vc := c.valueCache(f)
	if vc.evaluationCounter == c.locationCounter {
		obs.Evaluated(f.core.Type(), true, nil)
		return vc, nil
	}
	if c.loc.Kind() == location.KindNone {
		return nil, NotDefinedf("field %q: no location set", f.name)
	}
	if err := f.core.Evaluate(c, f, vc); err != nil {
		obs.Evaluated(f.core.Type(), false, err)
		return nil, err
	}
	vc.evaluationCounter = c.locationCounter
	obs.Evaluated(f.core.Type(), false, nil)
	return vc, nil
}

// EvaluateDerivative returns a copy of d applied to f at the current
// element location, laid out as [component][term].
func (c *Cache) EvaluateDerivative(f *Field, d *Derivative) ([]float64, error) {
	dc, err := c.DerivativeValues(f, d)
	if err != nil {
		return nil, err
	}
	return slices.Clone(dc.Values), nil
}

// DerivativeValues evaluates d applied to f and returns its cache.
func (c *Cache) DerivativeValues(f *Field, d *Derivative) (*DerivativeCache, error) {
	c.enter()
	defer c.leave()
	if err := c.checkField(f); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, InvalidArgumentf("field %q: derivative is nil", f.name)
	}
	if c.loc.Kind() != location.KindElementXi {
		return nil, InvalidArgumentf("field %q: mesh derivatives need an element location, have %s",
			f.name, c.loc.Kind())
	}
	if e := c.loc.Element(); e.Mesh() != d.mesh {
		return nil, InvalidArgumentf("field %q: element %d is not in mesh %q",
			f.name, e.Identifier(), d.mesh.Name())
	}
	vc := c.valueCache(f)
	dc := vc.Derivative(d)
	if dc.evaluationCounter == c.locationCounter {
		return dc, nil
	}
	// Derivatives exist only where the value does.
	if _, err := c.Values(f); err != nil {
		return nil, err
	}
	if f.core.DerivativeTreeOrder(f, d) < d.order {
		dc.zero()
	} else if err := f.core.EvaluateDerivative(c, f, vc, d); err != nil {
		c.manager.tree.observer.Evaluated(f.core.Type(), false, err)
		return nil, err
	}
	dc.evaluationCounter = c.locationCounter
	return dc, nil
}

// IsDefined reports whether f can be evaluated at the current location.
func (c *Cache) IsDefined(f *Field) bool {
	c.enter()
	defer c.leave()
	if c.checkField(f) != nil || c.loc.Kind() == location.KindNone {
		return false
	}
	if vc := c.valueCache(f); vc.evaluationCounter == c.locationCounter {
		return true
	}
	return f.core.IsDefinedAt(c, f)
}

// Assign sets f's values at the current location for field types that
// store parameters. Dependent caches are invalidated.
func (c *Cache) Assign(f *Field, values []float64) error {
	if c.root().depth > 0 {
		return InvalidArgumentf("assign: cache is evaluating")
	}
	if f == nil || f.manager == nil {
		return InvalidArgumentf("assign: field is not in a region")
	}
	a, ok := f.core.(Assigner)
	if !ok {
		return InvalidArgumentf("assign: field %q of type %s does not store values", f.name, f.core.Type())
	}
	if len(values) != f.components {
		return InvalidArgumentf("assign: field %q has %d components, got %d values", f.name, f.components, len(values))
	}
	m := f.manager
	return m.mutate(func() error {
		if err := a.Assign(c, f, values); err != nil {
			return err
		}
		m.markModifiedLocked(f)
		return nil
	})
}

// ExtraCache returns the auxiliary cache attached to f's value cache in c.
// Cores use it to evaluate sources at a location derived from c's, and may
// only call it while c is evaluating.
func (c *Cache) ExtraCache(f *Field) *Cache {
	return c.valueCache(f).Extra(c)
}
