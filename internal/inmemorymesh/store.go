package inmemorymesh

import (
	"fmt"
	"slices"
	"sync"

	"github.com/vk/fieldgrid/internal/domain"
)

// Node implements domain.Node.
type Node struct {
	id int
}

func (n *Node) Identifier() int { return n.id }

// Store holds every node, mesh, nodeset and field store of one region.
type Store struct {
	mu       sync.RWMutex
	nodes    map[int]*Node
	meshes   map[string]*Mesh
	nodesets map[string]*Nodeset
	fields   map[string]*FieldStore
	all      *Nodeset
}

// New creates an empty store with the implicit "nodes" nodeset.
func New() *Store {
	return &Store{
		nodes:    make(map[int]*Node),
		meshes:   make(map[string]*Mesh),
		nodesets: make(map[string]*Nodeset),
		fields:   make(map[string]*FieldStore),
		all:      newNodeset("nodes"),
	}
}

// CreateNode adds a node. Creating an existing identifier returns the
// existing node.
func (s *Store) CreateNode(id int) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, exists := s.nodes[id]; exists {
		return n
	}
	n := &Node{id: id}
	s.nodes[id] = n
	s.all.add(n)
	return n
}

// Node looks up a node by identifier.
func (s *Store) Node(id int) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes is the nodeset of every node in the store.
func (s *Store) Nodes() *Nodeset { return s.all }

// CreateMesh adds an empty mesh of the given dimension.
func (s *Store) CreateMesh(name string, dimension int) (*Mesh, error) {
	if dimension < 1 || dimension > 3 {
		return nil, fmt.Errorf("mesh %q: dimension %d is not 1, 2 or 3", name, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.meshes[name]; exists {
		return nil, fmt.Errorf("mesh %q already exists", name)
	}
	m := &Mesh{name: name, dimension: dimension, elements: make(map[int]*Element)}
	s.meshes[name] = m
	return m, nil
}

func (s *Store) Mesh(name string) (*Mesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meshes[name]
	return m, ok
}

// CreateNodeset adds a named nodeset holding the given existing nodes.
func (s *Store) CreateNodeset(name string, ids []int) (*Nodeset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodesets[name]; exists || name == s.all.name {
		return nil, fmt.Errorf("nodeset %q already exists", name)
	}
	ns := newNodeset(name)
	for _, id := range ids {
		n, ok := s.nodes[id]
		if !ok {
			return nil, fmt.Errorf("nodeset %q: node %d not found", name, id)
		}
		ns.add(n)
	}
	s.nodesets[name] = ns
	return ns, nil
}

// Nodeset looks up a nodeset; "nodes" names the nodeset of all nodes.
func (s *Store) Nodeset(name string) (*Nodeset, bool) {
	if name == s.all.name {
		return s.all, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.nodesets[name]
	return ns, ok
}

// CreateFieldStore adds storage for a finite element field.
func (s *Store) CreateFieldStore(name string, components int) (*FieldStore, error) {
	if components < 1 {
		return nil, fmt.Errorf("field store %q: %d components", name, components)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.fields[name]; exists {
		return nil, fmt.Errorf("field store %q already exists", name)
	}
	fs := &FieldStore{name: name, components: components, values: make(map[*Node][]float64)}
	s.fields[name] = fs
	return fs, nil
}

func (s *Store) FieldStore(name string) (*FieldStore, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fs, ok := s.fields[name]
	return fs, ok
}

// Nodeset implements domain.Nodeset, ordered by node identifier.
type Nodeset struct {
	name  string
	mu    sync.RWMutex
	byID  map[int]*Node
	order []*Node
}

func newNodeset(name string) *Nodeset {
	return &Nodeset{name: name, byID: make(map[int]*Node)}
}

func (ns *Nodeset) add(n *Node) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, ok := ns.byID[n.id]; ok {
		return
	}
	ns.byID[n.id] = n
	i, _ := slices.BinarySearchFunc(ns.order, n.id, func(a *Node, target int) int { return a.id - target })
	ns.order = slices.Insert(ns.order, i, n)
}

func (ns *Nodeset) Name() string { return ns.name }

func (ns *Nodeset) Nodes() []domain.Node {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	out := make([]domain.Node, len(ns.order))
	for i, n := range ns.order {
		out[i] = n
	}
	return out
}

func (ns *Nodeset) FindNode(id int) (domain.Node, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	n, ok := ns.byID[id]
	if !ok {
		return nil, false
	}
	return n, true
}

func (ns *Nodeset) ContainsNode(n domain.Node) bool {
	if n == nil {
		return false
	}
	found, ok := ns.FindNode(n.Identifier())
	return ok && found == n
}

func (ns *Nodeset) Size() int {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.order)
}
