package builder

import (
	"fmt"
	"slices"

	"github.com/vk/fieldgrid/internal/config"
	"github.com/vk/fieldgrid/internal/inmemorymesh"
	"github.com/vk/fieldgrid/internal/region"
)

// buildMeshData creates nodes, meshes, nodesets and finite element field
// stores, then loads node parameters into the stores.
func buildMeshData(model *config.Model, r *region.Region) error {
	store := r.Store()

	ids := make([]int, 0, len(model.Nodes))
	for _, n := range model.Nodes {
		if slices.Contains(ids, n.ID) {
			return fmt.Errorf("%s: duplicate node %d", n.DeclRange, n.ID)
		}
		ids = append(ids, n.ID)
		store.CreateNode(n.ID)
	}

	for _, m := range model.Meshes {
		mesh, err := store.CreateMesh(m.Name, m.Dimension)
		if err != nil {
			return fmt.Errorf("%s: %w", m.DeclRange, err)
		}
		for _, e := range m.Elements {
			nodes := make([]*inmemorymesh.Node, len(e.Nodes))
			for i, id := range e.Nodes {
				n, ok := store.Node(id)
				if !ok {
					return fmt.Errorf("%s: mesh %q element %d: node %d not defined", m.DeclRange, m.Name, e.ID, id)
				}
				nodes[i] = n
			}
			if _, err := mesh.AddElement(e.ID, nodes); err != nil {
				return fmt.Errorf("%s: mesh %q: %w", m.DeclRange, m.Name, err)
			}
		}
	}

	for _, ns := range model.Nodesets {
		if _, err := store.CreateNodeset(ns.Name, ns.Nodes); err != nil {
			return fmt.Errorf("%s: %w", ns.DeclRange, err)
		}
	}

	stores := make(map[string]*inmemorymesh.FieldStore, len(model.FiniteElements))
	for _, fe := range model.FiniteElements {
		fs, err := store.CreateFieldStore(fe.Name, fe.Components)
		if err != nil {
			return fmt.Errorf("%s: %w", fe.DeclRange, err)
		}
		stores[fe.Name] = fs
	}
	for _, n := range model.Nodes {
		node, _ := store.Node(n.ID)
		for name, values := range n.Values {
			fs, ok := stores[name]
			if !ok {
				return fmt.Errorf("%s: node %d: unknown finite element field %q", n.DeclRange, n.ID, name)
			}
			if err := fs.SetNodeValues(node, 0, values); err != nil {
				return fmt.Errorf("%s: node %d: %w", n.DeclRange, n.ID, err)
			}
		}
	}
	return nil
}
