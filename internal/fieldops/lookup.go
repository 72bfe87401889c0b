package fieldops

import (
	"github.com/vk/fieldgrid/internal/domain"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/location"
)

// nodeLookupCore evaluates its source at one fixed node wherever it is
// asked, at the caller's time.
type nodeLookupCore struct {
	field.Base
	nodeset    domain.Nodeset
	identifier int
}

func (*nodeLookupCore) Type() field.Type { return field.TypeNodeLookup }

func (k *nodeLookupCore) extra(c *field.Cache, f *field.Field) (*field.Cache, error) {
	node, ok := k.nodeset.FindNode(k.identifier)
	if !ok {
		return nil, field.NotDefinedf("field %q: node %d is not in nodeset %q",
			f.Name(), k.identifier, k.nodeset.Name())
	}
	extra := c.ExtraCache(f)
	if err := extra.SetLocation(location.AtNode(node, nil).WithTime(c.Time())); err != nil {
		return nil, err
	}
	return extra, nil
}

func (k *nodeLookupCore) IsDefinedAt(c *field.Cache, f *field.Field) bool {
	extra, err := k.extra(c, f)
	return err == nil && extra.IsDefined(f.Source(0))
}

func (k *nodeLookupCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	extra, err := k.extra(c, f)
	if err != nil {
		return err
	}
	src, err := extra.Values(f.Source(0))
	if err != nil {
		return err
	}
	copy(vc.Values, src.Values)
	return nil
}

// Lookups are constant in space.
func (*nodeLookupCore) DerivativeTreeOrder(*field.Field, *field.Derivative) int { return 0 }

func (k *nodeLookupCore) Compare(other field.Core) bool {
	o, ok := other.(*nodeLookupCore)
	return ok && o.nodeset == k.nodeset && o.identifier == k.identifier
}

func (k *nodeLookupCore) Copy() field.Core {
	return &nodeLookupCore{nodeset: k.nodeset, identifier: k.identifier}
}

// NodeLookup creates a field with src's values at node identifier of
// nodeset, wherever it is evaluated.
func (mod Module) NodeLookup(src *field.Field, nodeset domain.Nodeset, identifier int) (*field.Field, error) {
	if err := checkSources("node_lookup", src); err != nil {
		return nil, err
	}
	if nodeset == nil {
		return nil, field.InvalidArgumentf("node_lookup: nodeset is nil")
	}
	return mod.create(&nodeLookupCore{nodeset: nodeset, identifier: identifier}, src.ComponentCount(), src)
}

// timeLookupCore evaluates its first source at the current position and
// the time given by its second.
type timeLookupCore struct {
	field.Base
}

func (*timeLookupCore) Type() field.Type { return field.TypeTimeLookup }

func (*timeLookupCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	t, err := c.Values(f.Source(1))
	if err != nil {
		return err
	}
	extra := c.ExtraCache(f)
	if err := extra.SetLocation(c.Location().WithTime(t.Values[0])); err != nil {
		return err
	}
	src, err := extra.Values(f.Source(0))
	if err != nil {
		return err
	}
	copy(vc.Values, src.Values)
	return nil
}

func (*timeLookupCore) Compare(other field.Core) bool {
	_, ok := other.(*timeLookupCore)
	return ok
}

func (*timeLookupCore) Copy() field.Core { return &timeLookupCore{} }

// TimeLookup creates src evaluated at the time given by the scalar
// timeField.
func (mod Module) TimeLookup(src, timeField *field.Field) (*field.Field, error) {
	if err := checkSources("time_lookup", src, timeField); err != nil {
		return nil, err
	}
	if timeField.ComponentCount() != 1 {
		return nil, field.InvalidArgumentf("time_lookup: time field has %d components, want 1",
			timeField.ComponentCount())
	}
	return mod.create(&timeLookupCore{}, src.ComponentCount(), src, timeField)
}
