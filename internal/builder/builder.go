package builder

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/vk/fieldgrid/internal/config"
	"github.com/vk/fieldgrid/internal/ctxlog"
	"github.com/vk/fieldgrid/internal/dag"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/fieldops"
	"github.com/vk/fieldgrid/internal/fieldref"
	"github.com/vk/fieldgrid/internal/region"
	"github.com/vk/fieldgrid/internal/registry"
)

// Result reports what a build created.
type Result struct {
	// Order lists described field names in creation order.
	Order []string
	// Graph is the dependency graph of the described fields.
	Graph *dag.Graph
}

// Build populates r from model using the field types of reg.
func Build(ctx context.Context, model *config.Model, r *region.Region, reg *registry.Registry) (*Result, error) {
	logger := ctxlog.FromContext(ctx).With("region", r.Path())
	logger.Debug("Build: starting.", "fields", len(model.Fields))

	if err := buildMeshData(model, r); err != nil {
		return nil, fmt.Errorf("building mesh data: %w", err)
	}
	logger.Debug("Build: mesh data complete.", "meshes", len(model.Meshes), "nodes", len(model.Nodes))

	var problems *multierror.Error
	if err := reg.Validate(ctx, model); err != nil {
		problems = multierror.Append(problems, err)
	}
	g, err := dag.FromModel(model, func(name string) bool {
		_, _, err := r.FindField(name)
		return err == nil
	})
	if err != nil {
		problems = multierror.Append(problems, err)
	}
	if err := problems.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid field description: %w", err)
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	m := r.Manager()
	m.BeginChange()
	defer m.EndChange()

	for _, fe := range model.FiniteElements {
		if err := buildFiniteElement(r, fe); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: finite element fields created.", "count", len(model.FiniteElements))

	specs := make(map[string]*config.Field, len(model.Fields))
	for _, f := range model.Fields {
		specs[f.Name] = f
	}
	for _, name := range order {
		spec, ok := specs[name]
		if !ok {
			continue
		}
		if err := buildField(r, reg, spec); err != nil {
			return nil, fmt.Errorf("%s: field %q: %w", spec.DeclRange, spec.Name, err)
		}
	}

	logger.Info("Build: region populated.", "fields", m.Len())
	return &Result{Order: order, Graph: g}, nil
}

func parseCoordinateSystem(name string, focus float64) (*field.CoordinateSystem, error) {
	if name == "" {
		return nil, nil
	}
	t, err := field.ParseCoordinateSystemType(name)
	if err != nil {
		return nil, err
	}
	return &field.CoordinateSystem{Type: t, Focus: focus}, nil
}

// module returns the factory configured with a description's options.
func module(r *region.Region, name string, managed bool, componentNames []string, cs *field.CoordinateSystem) fieldops.Module {
	mod := r.Fields().Named(name).Managed(managed)
	if len(componentNames) > 0 {
		mod = mod.WithComponentNames(componentNames...)
	}
	if cs != nil {
		mod = mod.WithCoordinateSystem(*cs)
	}
	return mod
}

func buildFiniteElement(r *region.Region, fe *config.FiniteElement) error {
	store, ok := r.Store().FieldStore(fe.Name)
	if !ok {
		return fmt.Errorf("%s: finite element field %q has no store", fe.DeclRange, fe.Name)
	}
	cs, err := parseCoordinateSystem(fe.CoordinateSystem, fe.Focus)
	if err != nil {
		return fmt.Errorf("%s: finite element field %q: %w", fe.DeclRange, fe.Name, err)
	}
	f, err := module(r, fe.Name, fe.Managed, fe.ComponentNames, cs).FiniteElement(store)
	if err != nil {
		return fmt.Errorf("%s: finite element field %q: %w", fe.DeclRange, fe.Name, err)
	}
	f.Release()
	return nil
}

func buildField(r *region.Region, reg *registry.Registry, spec *config.Field) error {
	cs, err := parseCoordinateSystem(spec.CoordinateSystem, spec.Focus)
	if err != nil {
		return err
	}

	sources := make([]*field.Field, 0, len(spec.Sources))
	defer func() {
		for _, s := range sources {
			s.Release()
		}
	}()
	for _, raw := range spec.Sources {
		s, err := Resolve(r, raw)
		if err != nil {
			return err
		}
		sources = append(sources, s)
	}

	args := registry.Args{Spec: spec, Sources: sources}
	if spec.Mesh != "" {
		if mesh, ok := r.Store().Mesh(spec.Mesh); ok {
			args.Mesh = mesh
		}
	}
	if spec.Nodeset != "" {
		if ns, ok := r.Store().Nodeset(spec.Nodeset); ok {
			args.Nodeset = ns
		}
	}
	f, err := reg.Build(module(r, spec.Name, spec.Managed, spec.ComponentNames, cs), args)
	if err != nil {
		return err
	}
	f.Release()
	return nil
}

// Resolve returns a referenced field, searching r and then its
// ancestors. The caller owns one reference to the result.
func Resolve(r *region.Region, raw string) (*field.Field, error) {
	ref, err := fieldref.Parse(raw)
	if err != nil {
		return nil, err
	}
	f, _, err := r.FindField(ref.Field)
	if err != nil {
		return nil, err
	}
	if !ref.HasComponent() {
		return f.Access(), nil
	}
	return fieldops.NewModule(f.Manager()).FindComponent(ref.Field + "." + ref.Component)
}
