package inmemorymesh

import (
	"fmt"
	"slices"
	"sync"

	"github.com/vk/fieldgrid/internal/domain"
)

// FieldStore implements domain.FieldStore with one value vector per node,
// interpolated linearly over elements. Values do not vary with time.
type FieldStore struct {
	name       string
	components int
	mu         sync.RWMutex
	values     map[*Node][]float64
}

func (fs *FieldStore) Name() string        { return fs.name }
func (fs *FieldStore) ComponentCount() int { return fs.components }

func asNode(n domain.Node) (*Node, error) {
	node, ok := n.(*Node)
	if !ok || node == nil {
		return nil, fmt.Errorf("node %v is not an in-memory node", n)
	}
	return node, nil
}

func (fs *FieldStore) DefinedAtNode(n domain.Node) bool {
	node, err := asNode(n)
	if err != nil {
		return false
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.values[node]
	return ok
}

func (fs *FieldStore) NodeValues(n domain.Node, _ float64, out []float64) error {
	node, err := asNode(n)
	if err != nil {
		return err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	v, ok := fs.values[node]
	if !ok {
		return fmt.Errorf("field %q is not defined at node %d", fs.name, node.id)
	}
	copy(out, v)
	return nil
}

func (fs *FieldStore) SetNodeValues(n domain.Node, _ float64, values []float64) error {
	node, err := asNode(n)
	if err != nil {
		return err
	}
	if len(values) != fs.components {
		return fmt.Errorf("field %q: %d values given for %d components", fs.name, len(values), fs.components)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.values[node] = slices.Clone(values)
	return nil
}

func (fs *FieldStore) DefinedInElement(e domain.Element) bool {
	el, ok := e.(*Element)
	if !ok {
		return false
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	for _, n := range el.nodes {
		if _, ok := fs.values[n]; !ok {
			return false
		}
	}
	return true
}

func (fs *FieldStore) ElementValues(e domain.Element, xi []float64, _ float64, partials []int, out []float64) error {
	el, ok := e.(*Element)
	if !ok {
		return fmt.Errorf("element %v is not an in-memory element", e)
	}
	dim := el.mesh.dimension
	if len(xi) != dim {
		return fmt.Errorf("element %d: %d xi values for dimension %d", el.id, len(xi), dim)
	}
	for _, p := range partials {
		if p < 0 || p >= dim {
			return fmt.Errorf("element %d: xi index %d out of range", el.id, p+1)
		}
	}
	for c := range out[:fs.components] {
		out[c] = 0
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	for k, n := range el.nodes {
		v, ok := fs.values[n]
		if !ok {
			return fmt.Errorf("field %q is not defined at node %d of element %d", fs.name, n.id, el.id)
		}
		phi := basis(dim, k, xi, partials)
		if phi == 0 {
			continue
		}
		for c := 0; c < fs.components; c++ {
			out[c] += phi * v[c]
		}
	}
	return nil
}
