package app

import (
	"fmt"

	"github.com/vk/fieldgrid/internal/builder"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/region"
	"github.com/xlab/treeprint"
)

// printTree renders the source tree of the configured field, or of every
// field nothing else uses when no field is configured.
func (a *App) printTree(r *region.Region) error {
	var tops []*field.Field
	if a.config.Field != "" {
		f, err := builder.Resolve(r, a.config.Field)
		if err != nil {
			return fmt.Errorf("field %q: %w", a.config.Field, err)
		}
		defer f.Release()
		tops = []*field.Field{f}
	} else {
		tops = unused(r.Manager())
	}

	tree := treeprint.NewWithRoot(r.Path())
	for _, f := range tops {
		addField(tree, f)
	}
	fmt.Fprint(a.outW, tree.String())
	return nil
}

func addField(t treeprint.Tree, f *field.Field) {
	label := fmt.Sprintf("%s (%s)", f.Name(), f.Type())
	if f.SourceCount() == 0 {
		t.AddNode(label)
		return
	}
	branch := t.AddBranch(label)
	for _, s := range f.Sources() {
		addField(branch, s)
	}
}

// unused returns the fields of m that are no field's source, in name order.
func unused(m *field.Manager) []*field.Field {
	all := m.Fields()
	used := make(map[*field.Field]bool, len(all))
	for _, f := range all {
		for _, s := range f.Sources() {
			used[s] = true
		}
	}
	var out []*field.Field
	for _, f := range all {
		if !used[f] {
			out = append(out, f)
		}
	}
	return out
}
