package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/vk/fieldgrid/internal/config"
	"github.com/vk/fieldgrid/internal/ctxlog"
)

// Validate checks every described field against its entry without building
// anything. All problems are reported together.
func (r *Registry) Validate(ctx context.Context, m *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	var result *multierror.Error

	meshes := make(map[string]struct{}, len(m.Meshes))
	for _, mesh := range m.Meshes {
		meshes[mesh.Name] = struct{}{}
	}
	nodesets := map[string]struct{}{"nodes": {}}
	for _, ns := range m.Nodesets {
		nodesets[ns.Name] = struct{}{}
	}

	for _, f := range m.Fields {
		e, ok := r.Lookup(f.Type)
		if !ok {
			result = multierror.Append(result, fmt.Errorf("%s: field %q: unknown type %q", f.DeclRange, f.Name, f.Type))
			continue
		}
		if err := e.checkShape(f); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: field %q: %w", f.DeclRange, f.Name, err))
			continue
		}
		if _, ok := meshes[f.Mesh]; (e.NeedsMesh || f.Mesh != "") && !ok {
			result = multierror.Append(result, fmt.Errorf("%s: field %q: unknown mesh %q", f.DeclRange, f.Name, f.Mesh))
		}
		if _, ok := nodesets[f.Nodeset]; (e.NeedsNodeset || f.Nodeset != "") && !ok {
			result = multierror.Append(result, fmt.Errorf("%s: field %q: unknown nodeset %q", f.DeclRange, f.Name, f.Nodeset))
		}
		for _, c := range f.Components {
			if c < 1 {
				result = multierror.Append(result, fmt.Errorf("%s: field %q: component numbers start at 1, got %d", f.DeclRange, f.Name, c))
			}
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		logger.Debug("Description validation failed.", "problems", len(result.Errors))
		return err
	}
	logger.Debug("Description validated.", "fields", len(m.Fields))
	return nil
}
