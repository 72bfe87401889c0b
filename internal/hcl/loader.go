package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/fieldgrid/internal/config"
	"github.com/vk/fieldgrid/internal/ctxlog"
	"github.com/vk/fieldgrid/internal/fsutil"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL description loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every `.hcl` file found under paths and merges their blocks
// into one model. Blocks keep their order within a file; files are read in
// lexical order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := newEvalContext()
	model := &config.Model{}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if err := l.translate(&root, model); err != nil {
			return nil, fmt.Errorf("in HCL file %s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete.",
		"meshes", len(model.Meshes),
		"nodes", len(model.Nodes),
		"finite_elements", len(model.FiniteElements),
		"fields", len(model.Fields))
	return model, nil
}

// LoadSource parses a single description held in memory. filename only
// labels diagnostics.
func (l *Loader) LoadSource(ctx context.Context, src []byte, filename string) (*config.Model, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL source %s: %w", filename, diags)
	}
	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, newEvalContext(), &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL source %s: %w", filename, diags)
	}
	model := &config.Model{}
	if err := l.translate(&root, model); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("HCL source loaded.", "filename", filename, "fields", len(model.Fields))
	return model, nil
}

func (l *Loader) translate(root *fileRoot, model *config.Model) error {
	for _, m := range root.Meshes {
		mesh, err := translateMesh(m)
		if err != nil {
			return err
		}
		model.Meshes = append(model.Meshes, mesh)
	}
	for _, ns := range root.Nodesets {
		model.Nodesets = append(model.Nodesets, &config.Nodeset{
			Name:      ns.Name,
			Nodes:     ns.Nodes,
			DeclRange: ns.DeclRange.String(),
		})
	}
	for _, n := range root.Nodes {
		id, err := parseID("node", n.ID, n.DeclRange)
		if err != nil {
			return err
		}
		model.Nodes = append(model.Nodes, &config.Node{ID: id, Values: n.Values, DeclRange: n.DeclRange.String()})
	}
	for _, fe := range root.FiniteElements {
		model.FiniteElements = append(model.FiniteElements, translateFiniteElement(fe))
	}
	for _, f := range root.Fields {
		field, err := translateField(f)
		if err != nil {
			return err
		}
		model.Fields = append(model.Fields, field)
	}
	return nil
}

func translateMesh(m *meshBlock) (*config.Mesh, error) {
	mesh := &config.Mesh{Name: m.Name, Dimension: m.Dimension, DeclRange: m.DeclRange.String()}
	for _, e := range m.Elements {
		id, err := parseID("element", e.ID, e.DeclRange)
		if err != nil {
			return nil, err
		}
		mesh.Elements = append(mesh.Elements, &config.Element{ID: id, Nodes: e.Nodes})
	}
	return mesh, nil
}

func translateFiniteElement(fe *finiteElementBlock) *config.FiniteElement {
	return &config.FiniteElement{
		Name:             fe.Name,
		Components:       fe.Components,
		ComponentNames:   fe.ComponentNames,
		CoordinateSystem: fe.CoordinateSystem,
		Focus:            fe.Focus,
		Managed:          managedOrDefault(fe.Managed),
		DeclRange:        fe.DeclRange.String(),
	}
}

func translateField(f *fieldBlock) (*config.Field, error) {
	sources, diags := decodeSources(f.Sources)
	if diags.HasErrors() {
		return nil, fmt.Errorf("field %q: %w", f.Name, diags)
	}
	return &config.Field{
		Name:             f.Name,
		Type:             f.Type,
		Sources:          sources,
		Values:           f.Values,
		Components:       f.Components,
		ComponentNames:   f.ComponentNames,
		CoordinateSystem: f.CoordinateSystem,
		Focus:            f.Focus,
		Mesh:             f.Mesh,
		Nodeset:          f.Nodeset,
		Node:             f.Node,
		XiIndex:          f.XiIndex,
		Rows:             f.Rows,
		FindNearest:      f.FindNearest,
		Managed:          managedOrDefault(f.Managed),
		DeclRange:        f.DeclRange.String(),
	}, nil
}

// Described fields outlive their last user unless told otherwise.
func managedOrDefault(managed *bool) bool {
	return managed == nil || *managed
}

func parseID(kind, label string, rng hcl.Range) (int, error) {
	id, err := strconv.Atoi(label)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s: %s identifier %q must be a positive integer", rng, kind, label)
	}
	return id, nil
}

// findHCLFiles walks all given paths and returns the sorted list of .hcl
// files found. Missing paths are errors.
func findHCLFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var all []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) != ".hcl" {
				return nil, fmt.Errorf("%s is not an .hcl file", path)
			}
			add(path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			add(p)
		}
	}
	sort.Strings(all)
	return all, nil
}
