package dag

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/vk/fieldgrid/internal/config"
	"github.com/vk/fieldgrid/internal/fieldref"
)

// FromModel builds the dependency graph of every described field. Finite
// element fields are roots; each computed field depends on the fields its
// sources reference. A reference to a field outside the model is accepted
// when external reports it exists; external may be nil. Duplicate names,
// malformed or unknown references and cycles are all reported in one error.
func FromModel(m *config.Model, external func(name string) bool) (*Graph, error) {
	g := New()
	var result *multierror.Error

	for _, fe := range m.FiniteElements {
		if g.Has(fe.Name) {
			result = multierror.Append(result, fmt.Errorf("%s: duplicate field name %q", fe.DeclRange, fe.Name))
			continue
		}
		g.AddNode(fe.Name)
	}
	for _, f := range m.Fields {
		if g.Has(f.Name) {
			result = multierror.Append(result, fmt.Errorf("%s: duplicate field name %q", f.DeclRange, f.Name))
			continue
		}
		g.AddNode(f.Name)
	}

	for _, f := range m.Fields {
		for _, raw := range f.Sources {
			ref, err := fieldref.Parse(raw)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s: field %q: %w", f.DeclRange, f.Name, err))
				continue
			}
			if !g.Has(ref.Field) {
				if external != nil && external(ref.Field) {
					continue
				}
				result = multierror.Append(result, fmt.Errorf("%s: field %q: unknown source %q", f.DeclRange, f.Name, ref.Field))
				continue
			}
			if ref.Field == f.Name {
				result = multierror.Append(result, fmt.Errorf("%s: field %q uses itself", f.DeclRange, f.Name))
				continue
			}
			if err := g.AddEdge(ref.Field, f.Name); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	if err := g.DetectCycles(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return g, nil
}
