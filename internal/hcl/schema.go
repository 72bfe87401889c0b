package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a description file may hold.
type fileRoot struct {
	Meshes         []*meshBlock          `hcl:"mesh,block"`
	Nodesets       []*nodesetBlock       `hcl:"nodeset,block"`
	Nodes          []*nodeBlock          `hcl:"node,block"`
	FiniteElements []*finiteElementBlock `hcl:"finite_element,block"`
	Fields         []*fieldBlock         `hcl:"field,block"`
	Remain         hcl.Body              `hcl:",remain"`
}

type meshBlock struct {
	Name      string          `hcl:"name,label"`
	Dimension int             `hcl:"dimension"`
	Elements  []*elementBlock `hcl:"element,block"`
	DeclRange hcl.Range       `hcl:",def_range"`
}

type elementBlock struct {
	ID        string    `hcl:"id,label"`
	Nodes     []int     `hcl:"nodes"`
	DeclRange hcl.Range `hcl:",def_range"`
}

type nodesetBlock struct {
	Name      string    `hcl:"name,label"`
	Nodes     []int     `hcl:"nodes"`
	DeclRange hcl.Range `hcl:",def_range"`
}

type nodeBlock struct {
	ID        string               `hcl:"id,label"`
	Values    map[string][]float64 `hcl:"values,optional"`
	DeclRange hcl.Range            `hcl:",def_range"`
}

type finiteElementBlock struct {
	Name             string    `hcl:"name,label"`
	Components       int       `hcl:"components"`
	ComponentNames   []string  `hcl:"component_names,optional"`
	CoordinateSystem string    `hcl:"coordinate_system,optional"`
	Focus            float64   `hcl:"focus,optional"`
	Managed          *bool     `hcl:"managed,optional"`
	DeclRange        hcl.Range `hcl:",def_range"`
}

type fieldBlock struct {
	Name             string         `hcl:"name,label"`
	Type             string         `hcl:"type"`
	Sources          hcl.Expression `hcl:"sources,optional"`
	Values           []float64      `hcl:"values,optional"`
	Components       []int          `hcl:"components,optional"`
	ComponentNames   []string       `hcl:"component_names,optional"`
	CoordinateSystem string         `hcl:"coordinate_system,optional"`
	Focus            float64        `hcl:"focus,optional"`
	Mesh             string         `hcl:"mesh,optional"`
	Nodeset          string         `hcl:"nodeset,optional"`
	Node             int            `hcl:"node,optional"`
	XiIndex          int            `hcl:"xi_index,optional"`
	Rows             int            `hcl:"rows,optional"`
	FindNearest      bool           `hcl:"find_nearest,optional"`
	Managed          *bool          `hcl:"managed,optional"`
	DeclRange        hcl.Range      `hcl:",def_range"`
}
