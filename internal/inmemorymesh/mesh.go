package inmemorymesh

import (
	"fmt"
	"slices"
	"sync"

	"github.com/vk/fieldgrid/internal/domain"
)

// Mesh implements domain.Mesh with elements of a single dimension.
type Mesh struct {
	name      string
	dimension int
	mu        sync.RWMutex
	elements  map[int]*Element
	order     []*Element
}

func (m *Mesh) Name() string   { return m.name }
func (m *Mesh) Dimension() int { return m.dimension }

// AddElement creates a linear Lagrange element. nodes are listed with xi1
// varying fastest, so a square has nodes at xi (0,0), (1,0), (0,1), (1,1).
func (m *Mesh) AddElement(id int, nodes []*Node) (*Element, error) {
	want := 1 << m.dimension
	if len(nodes) != want {
		return nil, fmt.Errorf("mesh %q element %d: %d nodes given, %d needed", m.name, id, len(nodes), want)
	}
	for i, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("mesh %q element %d: node %d is nil", m.name, id, i+1)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.elements[id]; exists {
		return nil, fmt.Errorf("mesh %q: element %d already exists", m.name, id)
	}
	e := &Element{id: id, mesh: m, nodes: slices.Clone(nodes)}
	m.elements[id] = e
	i, _ := slices.BinarySearchFunc(m.order, id, func(a *Element, target int) int { return a.id - target })
	m.order = slices.Insert(m.order, i, e)
	return e, nil
}

// FindElement looks up an element by identifier.
func (m *Mesh) FindElement(id int) (*Element, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.elements[id]
	return e, ok
}

func (m *Mesh) Elements() []domain.Element {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Element, len(m.order))
	for i, e := range m.order {
		out[i] = e
	}
	return out
}

func (m *Mesh) ContainsElement(e domain.Element) bool {
	el, ok := e.(*Element)
	return ok && el.mesh == m
}

// Element implements domain.Element.
type Element struct {
	id    int
	mesh  *Mesh
	nodes []*Node
}

func (e *Element) Identifier() int   { return e.id }
func (e *Element) Dimension() int    { return e.mesh.dimension }
func (e *Element) Mesh() domain.Mesh { return e.mesh }
func (e *Element) Nodes() []*Node    { return slices.Clone(e.nodes) }

// basis evaluates the local node k tensor product basis function at xi,
// differentiated once by each entry of partials. Linear functions vanish
// when differentiated twice in the same direction.
func basis(dimension, k int, xi []float64, partials []int) float64 {
	var counts [3]int
	for _, p := range partials {
		counts[p]++
	}
	v := 1.0
	for d := 0; d < dimension; d++ {
		upper := (k>>d)&1 == 1
		switch counts[d] {
		case 0:
			if upper {
				v *= xi[d]
			} else {
				v *= 1 - xi[d]
			}
		case 1:
			if !upper {
				v = -v
			}
		default:
			return 0
		}
	}
	return v
}
