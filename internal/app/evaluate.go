package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/fieldgrid/internal/builder"
	"github.com/vk/fieldgrid/internal/config"
	"github.com/vk/fieldgrid/internal/ctxlog"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/inmemorymesh"
	"github.com/vk/fieldgrid/internal/location"
	"github.com/vk/fieldgrid/internal/region"
	"github.com/vk/fieldgrid/internal/sampler"
)

func meshNames(model *config.Model) []string {
	names := make([]string, len(model.Meshes))
	for i, m := range model.Meshes {
		names[i] = m.Name
	}
	return names
}

// mesh picks the configured mesh, or the only one described.
func (a *App) mesh(r *region.Region, described []string) (*inmemorymesh.Mesh, error) {
	name := a.config.Mesh
	if name == "" {
		if len(described) != 1 {
			return nil, fmt.Errorf("%d meshes are described; choose one by name", len(described))
		}
		name = described[0]
	}
	m, ok := r.Store().Mesh(name)
	if !ok {
		return nil, fmt.Errorf("mesh %q not found", name)
	}
	return m, nil
}

// location builds the configured evaluation point. The mesh is nil unless
// the point lies in an element.
func (a *App) location(r *region.Region, described []string) (location.Location, *inmemorymesh.Mesh, error) {
	cfg := a.config
	switch {
	case cfg.Element > 0:
		m, err := a.mesh(r, described)
		if err != nil {
			return location.Location{}, nil, err
		}
		e, ok := m.FindElement(cfg.Element)
		if !ok {
			return location.Location{}, nil, fmt.Errorf("element %d not found in mesh %q", cfg.Element, m.Name())
		}
		xi := cfg.Xi
		if len(xi) == 0 {
			xi = sampler.Grid(m.Dimension(), 0)[0]
		}
		return location.ElementXi(e, nil, xi).WithTime(cfg.Time), m, nil
	case cfg.Node > 0:
		n, ok := r.Store().Node(cfg.Node)
		if !ok {
			return location.Location{}, nil, fmt.Errorf("node %d not found", cfg.Node)
		}
		return location.AtNode(n, nil).WithTime(cfg.Time), nil, nil
	default:
		return location.Coordinates(cfg.Coordinates).WithTime(cfg.Time), nil, nil
	}
}

func (a *App) evaluate(r *region.Region, described []string) error {
	f, err := builder.Resolve(r, a.config.Field)
	if err != nil {
		return fmt.Errorf("field %q: %w", a.config.Field, err)
	}
	defer f.Release()

	loc, mesh, err := a.location(r, described)
	if err != nil {
		return err
	}
	c := r.NewCache()
	if err := c.SetLocation(loc); err != nil {
		return err
	}

	if a.config.Derivative > 0 {
		d, err := r.Manager().Derivative(mesh, a.config.Derivative)
		if err != nil {
			return err
		}
		values, err := c.EvaluateDerivative(f, d)
		if err != nil {
			return fmt.Errorf("evaluating derivatives of %q at %s: %w", f.Name(), loc, err)
		}
		a.writeDerivatives(f, d, values)
		return nil
	}

	values, err := c.Evaluate(f)
	if err != nil {
		return fmt.Errorf("evaluating %q at %s: %w", f.Name(), loc, err)
	}
	for i, v := range values {
		fmt.Fprintf(a.outW, "%s.%s = %s\n", f.Name(), f.ComponentName(i), formatFloat(v))
	}
	return nil
}

// writeDerivatives prints one line per component and term, e.g.
// "u.1 d2/dxi1xi2 = 0".
func (a *App) writeDerivatives(f *field.Field, d *field.Derivative, values []float64) {
	prefix := "d/d"
	if d.Order() > 1 {
		prefix = fmt.Sprintf("d%d/d", d.Order())
	}
	terms := d.TermCount()
	for comp := 0; comp < f.ComponentCount(); comp++ {
		for term := 0; term < terms; term++ {
			var b strings.Builder
			for _, xi := range d.Indices(term) {
				fmt.Fprintf(&b, "xi%d", xi+1)
			}
			fmt.Fprintf(a.outW, "%s.%s %s%s = %s\n",
				f.Name(), f.ComponentName(comp), prefix, b.String(), formatFloat(values[comp*terms+term]))
		}
	}
}

func (a *App) sample(ctx context.Context, r *region.Region, described []string) error {
	f, err := builder.Resolve(r, a.config.Field)
	if err != nil {
		return fmt.Errorf("field %q: %w", a.config.Field, err)
	}
	defer f.Release()

	m, err := a.mesh(r, described)
	if err != nil {
		return err
	}

	ctx = ctxlog.With(ctx, "field", f.Name(), "mesh", m.Name())
	logger := ctxlog.FromContext(ctx)
	logger.Info("🚀 Sampling started.", "divisions", a.config.Divisions)
	samples, err := sampler.Run(ctx, r.Manager(), f, m, sampler.Options{
		Divisions: a.config.Divisions,
		Workers:   a.config.WorkerCount,
		Time:      a.config.Time,
		Recorder:  a.metrics,
	})
	if err != nil {
		return err
	}

	defined := 0
	for _, s := range samples {
		fmt.Fprintf(a.outW, "%d\t%s\t", s.Element, formatFloats(s.Xi))
		if !s.Defined() {
			fmt.Fprintln(a.outW, "undefined")
			continue
		}
		defined++
		fmt.Fprintln(a.outW, formatFloats(s.Values))
	}
	logger.Info("🏁 Sampling finished.", "samples", len(samples), "defined", defined)
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
