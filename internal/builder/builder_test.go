package builder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/fieldgrid/internal/builder"
	"github.com/vk/fieldgrid/internal/config"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/hcl"
	"github.com/vk/fieldgrid/internal/region"
	"github.com/vk/fieldgrid/internal/registry"
)

const plate = `
mesh "plate" {
  dimension = 2
  element "1" {
    nodes = [1, 2, 3, 4]
  }
}

node "1" {
  values = { coordinates = [0, 0], temperature = [10] }
}
node "2" {
  values = { coordinates = [2, 0], temperature = [20] }
}
node "3" {
  values = { coordinates = [0, 3], temperature = [30] }
}
node "4" {
  values = { coordinates = [2, 3], temperature = [40] }
}

nodeset "left" {
  nodes = [1, 3]
}

finite_element "coordinates" {
  components      = 2
  component_names = ["x", "y"]
}

finite_element "temperature" {
  components = 1
}

field "area_scale" {
  type    = "multiply_components"
  sources = [coordinates.x, coordinates.y]
}

field "hot" {
  type    = "greater_than"
  sources = [temperature, threshold]
}

field "threshold" {
  type   = "constant"
  values = [25]
}

field "dT_dxi1" {
  type     = "derivative"
  sources  = [temperature]
  mesh     = "plate"
  xi_index = 1
}

field "left_mean" {
  type    = "nodeset_mean"
  sources = [temperature]
  nodeset = "left"
}

field "grad" {
  type    = "gradient"
  sources = [temperature, coordinates]
}
`

func build(t *testing.T, src string) (*region.Region, *builder.Result) {
	t.Helper()
	ctx := context.Background()
	model, err := hcl.NewLoader().LoadSource(ctx, []byte(src), "plate.hcl")
	require.NoError(t, err)
	r := region.NewRoot(ctx, "root")
	res, err := builder.Build(ctx, model, r, registry.Default())
	require.NoError(t, err)
	return r, res
}

func TestBuild(t *testing.T) {
	r, res := build(t, plate)
	assert.Equal(t, []string{"coordinates", "temperature", "area_scale", "threshold", "hot", "dT_dxi1", "left_mean", "grad"}, res.Order)

	mesh, ok := r.Store().Mesh("plate")
	require.True(t, ok)
	element := mesh.Elements()[0]
	c := r.NewCache()
	require.NoError(t, c.SetElementXi(element, []float64{0.5, 0.5}))

	eval := func(name string) []float64 {
		t.Helper()
		f, ok := r.Manager().FindByName(name)
		require.True(t, ok, name)
		v, err := c.Evaluate(f)
		require.NoError(t, err, name)
		return v
	}
	assert.Equal(t, []float64{1.5}, eval("area_scale"))
	assert.Equal(t, []float64{25}, eval("temperature"))
	assert.Equal(t, []float64{0}, eval("hot"))
	assert.Equal(t, []float64{10}, eval("dT_dxi1"))
	assert.Equal(t, []float64{20}, eval("left_mean"))
	grad := eval("grad")
	require.Len(t, grad, 2)
	assert.InDelta(t, 5, grad[0], 1e-12)
	assert.InDelta(t, 20.0/3, grad[1], 1e-12)

	t.Run("component references share one field", func(t *testing.T) {
		n := 0
		for _, f := range r.Manager().Fields() {
			if f.Type() == field.TypeComposite {
				n++
			}
		}
		assert.Equal(t, 2, n)
	})

	t.Run("one generation per build", func(t *testing.T) {
		assert.Equal(t, uint64(1), r.Generation())
	})
}

func TestBuildErrors(t *testing.T) {
	testCases := []struct {
		name     string
		model    *config.Model
		errParts []string
	}{
		{
			name: "element with unknown node",
			model: &config.Model{Meshes: []*config.Mesh{{Name: "m", Dimension: 1,
				Elements: []*config.Element{{ID: 1, Nodes: []int{1, 2}}}}}},
			errParts: []string{"node 1 not defined"},
		},
		{
			name: "node values for unknown store",
			model: &config.Model{Nodes: []*config.Node{{ID: 1,
				Values: map[string][]float64{"pressure": {1}}}}},
			errParts: []string{"unknown finite element field \"pressure\""},
		},
		{
			name: "unknown source and type together",
			model: &config.Model{Fields: []*config.Field{
				{Name: "a", Type: "sin", Sources: []string{"nowhere"}},
				{Name: "b", Type: "no_such_type"},
			}},
			errParts: []string{"no_such_type", "unknown source \"nowhere\""},
		},
		{
			name: "cycle",
			model: &config.Model{Fields: []*config.Field{
				{Name: "a", Type: "sin", Sources: []string{"b"}},
				{Name: "b", Type: "cos", Sources: []string{"a"}},
			}},
			errParts: []string{"cycle detected"},
		},
		{
			name: "construction error",
			model: &config.Model{Fields: []*config.Field{
				{Name: "v", Type: "constant", Values: []float64{1, 2}},
				{Name: "c", Type: "cross_product", Sources: []string{"v", "v"}},
			}},
			errParts: []string{"field \"c\""},
		},
		{
			name: "missing component",
			model: &config.Model{Fields: []*config.Field{
				{Name: "v", Type: "constant", Values: []float64{1, 2}},
				{Name: "c", Type: "identity", Sources: []string{"v.z"}},
			}},
			errParts: []string{"no component"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			_, err := builder.Build(ctx, tc.model, region.NewRoot(ctx, "root"), registry.Default())
			require.Error(t, err)
			for _, part := range tc.errParts {
				assert.Contains(t, err.Error(), part)
			}
		})
	}
}

func TestBuildChildRegion(t *testing.T) {
	ctx := context.Background()
	root, _ := build(t, plate)
	child, err := root.CreateChild(ctx, "sensor")
	require.NoError(t, err)

	model := &config.Model{Fields: []*config.Field{
		{Name: "warm", Type: "offset", Sources: []string{"temperature"}, Values: []float64{5}, Managed: true},
	}}
	res, err := builder.Build(ctx, model, child, registry.Default())
	require.NoError(t, err)
	assert.Equal(t, []string{"warm"}, res.Order)
}
