package config

// Model is the unified, format-agnostic representation of a region
// description.
type Model struct {
	Meshes         []*Mesh
	Nodesets       []*Nodeset
	Nodes          []*Node
	FiniteElements []*FiniteElement
	Fields         []*Field
}

// Mesh is a mesh of one dimension with its elements.
type Mesh struct {
	Name      string
	Dimension int
	Elements  []*Element
	DeclRange string
}

// Element lists the node identifiers of a linear Lagrange element, xi1
// varying fastest.
type Element struct {
	ID    int
	Nodes []int
}

// Nodeset is a named group of nodes. Every node belongs to the implicit
// "nodes" set as well.
type Nodeset struct {
	Name      string
	Nodes     []int
	DeclRange string
}

// Node holds the parameters of one node keyed by finite element field name.
type Node struct {
	ID        int
	Values    map[string][]float64
	DeclRange string
}

// FiniteElement describes a field interpolated from node parameters.
type FiniteElement struct {
	Name             string
	Components       int
	ComponentNames   []string
	CoordinateSystem string
	Focus            float64
	Managed          bool
	DeclRange        string
}

// Field describes a computed field. Which attributes apply depends on Type.
type Field struct {
	Name string
	Type string
	// Sources are references in the form accepted by fieldref.Parse.
	Sources []string
	// Values holds constant values, weights, scale factors, offsets or
	// clamp limits.
	Values []float64
	// Components are 1-based component numbers.
	Components       []int
	ComponentNames   []string
	CoordinateSystem string
	Focus            float64
	Mesh             string
	Nodeset          string
	Node             int
	XiIndex          int
	Rows             int
	FindNearest      bool
	Managed          bool
	DeclRange        string
}

// FieldNames returns the names of every described field, finite element
// fields first, in declaration order.
func (m *Model) FieldNames() []string {
	out := make([]string, 0, len(m.FiniteElements)+len(m.Fields))
	for _, fe := range m.FiniteElements {
		out = append(out, fe.Name)
	}
	for _, f := range m.Fields {
		out = append(out, f.Name)
	}
	return out
}
