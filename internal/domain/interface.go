package domain

// Mesh is a set of elements of one dimension.
// Implementations must be comparable (pointer types) since meshes key the
// derivative registry.
type Mesh interface {
	Name() string
	Dimension() int
	Elements() []Element
	ContainsElement(e Element) bool
}

// Element is a single cell of a mesh, parameterised by xi in [0,1]^dim.
type Element interface {
	Identifier() int
	Dimension() int
	Mesh() Mesh
}

// Node is a point carrying parameter values of finite element fields.
type Node interface {
	Identifier() int
}

// Nodeset is an ordered set of nodes.
type Nodeset interface {
	Name() string
	Nodes() []Node
	FindNode(identifier int) (Node, bool)
	ContainsNode(n Node) bool
}

// FieldStore holds the parameters of one finite element field and
// interpolates them over elements.
type FieldStore interface {
	Name() string
	ComponentCount() int

	DefinedAtNode(n Node) bool
	NodeValues(n Node, time float64, out []float64) error
	SetNodeValues(n Node, time float64, values []float64) error

	DefinedInElement(e Element) bool
	// ElementValues interpolates all components at xi. partials lists the xi
	// indices to differentiate by, one entry per order; nil gives values.
	ElementValues(e Element, xi []float64, time float64, partials []int, out []float64) error
}
