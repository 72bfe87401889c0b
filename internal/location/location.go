// Package location describes where a field is evaluated: an element and xi
// coordinates, a node, or a raw coordinate tuple, always paired with a time.
//
// Locations hold plain references to elements and nodes and never own them.
// They are small values rebuilt for every query.
package location

import (
	"fmt"
	"slices"

	"github.com/vk/fieldgrid/internal/domain"
)

// Kind discriminates the variants of Location.
type Kind int

const (
	KindNone Kind = iota
	KindElementXi
	KindNode
	KindCoordinates
)

func (k Kind) String() string {
	switch k {
	case KindElementXi:
		return "element_xi"
	case KindNode:
		return "node"
	case KindCoordinates:
		return "coordinates"
	default:
		return "none"
	}
}

// Location is a tagged union over the evaluation point variants.
type Location struct {
	kind     Kind
	time     float64
	element  domain.Element
	topLevel domain.Element
	xi       []float64
	node     domain.Node
	coords   []float64
}

// ElementXi locates a point inside element. topLevel may be nil; when set it
// names the highest dimensional element the point is embedded in.
func ElementXi(element, topLevel domain.Element, xi []float64) Location {
	return Location{kind: KindElementXi, element: element, topLevel: topLevel, xi: slices.Clone(xi)}
}

// AtNode locates a node. host may be nil or the element the node is being
// evaluated from.
func AtNode(node domain.Node, host domain.Element) Location {
	return Location{kind: KindNode, node: node, element: host}
}

// Coordinates locates a raw coordinate tuple not tied to any mesh.
func Coordinates(values []float64) Location {
	return Location{kind: KindCoordinates, coords: slices.Clone(values)}
}

// WithTime returns a copy of l at time t.
func (l Location) WithTime(t float64) Location {
	l.time = t
	return l
}

func (l Location) Kind() Kind              { return l.kind }
func (l Location) Time() float64           { return l.time }
func (l Location) Element() domain.Element { return l.element }
func (l Location) TopLevelElement() domain.Element {
	if l.topLevel != nil {
		return l.topLevel
	}
	return l.element
}
func (l Location) Node() domain.Node { return l.node }

// Xi returns the element chart coordinates. Callers must not modify the slice.
func (l Location) Xi() []float64 { return l.xi }

// Values returns the raw coordinates. Callers must not modify the slice.
func (l Location) Values() []float64 { return l.coords }

// Dimension is the element dimension for element locations, the tuple
// length for coordinate locations and zero otherwise.
func (l Location) Dimension() int {
	switch l.kind {
	case KindElementXi:
		return l.element.Dimension()
	case KindCoordinates:
		return len(l.coords)
	}
	return 0
}

// Validate checks the variant is internally consistent.
func (l Location) Validate() error {
	switch l.kind {
	case KindElementXi:
		if l.element == nil {
			return fmt.Errorf("element location without element")
		}
		if len(l.xi) != l.element.Dimension() {
			return fmt.Errorf("element %d has dimension %d but %d xi values were given",
				l.element.Identifier(), l.element.Dimension(), len(l.xi))
		}
	case KindNode:
		if l.node == nil {
			return fmt.Errorf("node location without node")
		}
	case KindCoordinates:
		if len(l.coords) == 0 {
			return fmt.Errorf("coordinate location without values")
		}
	}
	return nil
}

// Equal reports whether a and b describe the same point in time.
func Equal(a, b Location) bool {
	if a.kind != b.kind || a.time != b.time {
		return false
	}
	switch a.kind {
	case KindElementXi:
		return a.element == b.element && a.topLevel == b.topLevel && slices.Equal(a.xi, b.xi)
	case KindNode:
		return a.node == b.node && a.element == b.element
	case KindCoordinates:
		return slices.Equal(a.coords, b.coords)
	}
	return true
}

func (l Location) String() string {
	switch l.kind {
	case KindElementXi:
		return fmt.Sprintf("element %d xi %v time %g", l.element.Identifier(), l.xi, l.time)
	case KindNode:
		return fmt.Sprintf("node %d time %g", l.node.Identifier(), l.time)
	case KindCoordinates:
		return fmt.Sprintf("coordinates %v time %g", l.coords, l.time)
	}
	return "nowhere"
}
