package fieldops

import (
	"github.com/vk/fieldgrid/internal/domain"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/location"
)

// groupCore is 1 where the location belongs to the group and 0 elsewhere.
// Nodes belong through the nodeset, elements through the mesh, either
// directly or by their top-level element.
type groupCore struct {
	field.Base
	nodeset domain.Nodeset
	mesh    domain.Mesh
}

func (*groupCore) Type() field.Type { return field.TypeGroup }

func (k *groupCore) contains(loc location.Location) bool {
	switch loc.Kind() {
	case location.KindNode:
		return k.nodeset != nil && k.nodeset.ContainsNode(loc.Node())
	case location.KindElementXi:
		if k.mesh == nil {
			return false
		}
		return k.mesh.ContainsElement(loc.Element()) || k.mesh.ContainsElement(loc.TopLevelElement())
	}
	return false
}

func (k *groupCore) Evaluate(c *field.Cache, _ *field.Field, vc *field.ValueCache) error {
	vc.Values[0] = 0
	if k.contains(c.Location()) {
		vc.Values[0] = 1
	}
	return nil
}

// Membership is piecewise constant.
func (*groupCore) DerivativeTreeOrder(*field.Field, *field.Derivative) int { return 0 }

func (k *groupCore) Compare(other field.Core) bool {
	o, ok := other.(*groupCore)
	return ok && o.nodeset == k.nodeset && o.mesh == k.mesh
}

func (k *groupCore) Copy() field.Core { return &groupCore{nodeset: k.nodeset, mesh: k.mesh} }

// Group creates a membership field of the nodes of nodeset and the elements
// of mesh. Either may be nil, not both.
func (mod Module) Group(nodeset domain.Nodeset, mesh domain.Mesh) (*field.Field, error) {
	if nodeset == nil && mesh == nil {
		return nil, field.InvalidArgumentf("group: needs a nodeset or a mesh")
	}
	return mod.create(&groupCore{nodeset: nodeset, mesh: mesh}, 1)
}
