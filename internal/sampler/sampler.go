// Package sampler evaluates a field over a regular xi grid in every element
// of a mesh. Elements are shared out to a fixed set of workers, each with
// its own field cache.
package sampler

import (
	"context"
	"fmt"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/vk/fieldgrid/internal/ctxlog"
	"github.com/vk/fieldgrid/internal/domain"
	"github.com/vk/fieldgrid/internal/field"
	"golang.org/x/sync/errgroup"
)

// Sample is the value of the field at one grid point.
type Sample struct {
	Element int
	Xi      []float64
	// Values is nil where the field is not defined.
	Values []float64
}

func (s Sample) Defined() bool { return s.Values != nil }

// Recorder is told about every sampled point.
type Recorder interface {
	Sampled(defined bool)
}

// Options control a sampling run.
type Options struct {
	// Divisions per xi direction; each element gets (Divisions+1)^dim
	// points including its boundary. Zero samples element centres only.
	Divisions int
	// Workers defaults to GOMAXPROCS.
	Workers  int
	Time     float64
	Recorder Recorder
}

// Grid returns the xi points of one element of dimension dim, xi1 varying
// fastest.
func Grid(dim, divisions int) [][]float64 {
	if divisions <= 0 {
		centre := make([]float64, dim)
		for i := range centre {
			centre[i] = 0.5
		}
		return [][]float64{centre}
	}
	per := divisions + 1
	total := 1
	for i := 0; i < dim; i++ {
		total *= per
	}
	out := make([][]float64, total)
	for p := range out {
		xi := make([]float64, dim)
		rest := p
		for i := 0; i < dim; i++ {
			xi[i] = float64(rest%per) / float64(divisions)
			rest /= per
		}
		out[p] = xi
	}
	return out
}

// Run samples f over mesh. Points where f is not defined are returned
// with nil values; any other evaluation error stops the run. Samples are
// ordered by element, then grid point.
func Run(ctx context.Context, m *field.Manager, f *field.Field, mesh domain.Mesh, opts Options) ([]Sample, error) {
	if f == nil || mesh == nil {
		return nil, fmt.Errorf("sampler: field and mesh are required")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	elements := mesh.Elements()
	grid := Grid(mesh.Dimension(), opts.Divisions)
	out := make([]Sample, len(elements)*len(grid))

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Sampling started.", "field", f.Name(), "mesh", mesh.Name(),
		"elements", len(elements), "points", len(out), "workers", workers)

	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range elements {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			c := m.NewCache()
			c.SetTime(opts.Time)
			for i := range jobs {
				if err := sampleElement(c, f, elements[i], grid, out[i*len(grid):(i+1)*len(grid)], opts.Recorder); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("Sampling finished.", "field", f.Name(), "points", len(out))
	return out, nil
}

func sampleElement(c *field.Cache, f *field.Field, e domain.Element, grid [][]float64, out []Sample, rec Recorder) error {
	for p, xi := range grid {
		if err := c.SetElementXi(e, xi); err != nil {
			return err
		}
		s := Sample{Element: e.Identifier(), Xi: xi}
		v, err := c.Evaluate(f)
		switch {
		case err == nil:
			s.Values = v
		case errors.Is(err, field.ErrNotDefined), errors.Is(err, field.ErrUnsupportedDerivative):
		default:
			return fmt.Errorf("sampling %q in element %d: %w", f.Name(), e.Identifier(), err)
		}
		if rec != nil {
			rec.Sampled(s.Defined())
		}
		out[p] = s
	}
	return nil
}
