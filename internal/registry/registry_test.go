package registry

import (
	"context"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/fieldgrid/internal/config"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/fieldops"
)

func TestRegister(t *testing.T) {
	r := New()
	build := func(fieldops.Module, Args) (*field.Field, error) { return nil, nil }

	require.NoError(t, r.Register(Entry{Type: "x", MaxSources: 1, Build: build}))
	require.Error(t, r.Register(Entry{Type: "x", Build: build}), "duplicate")
	require.Error(t, r.Register(Entry{Type: "y"}), "no constructor")
	require.Error(t, r.Register(Entry{Type: "z", MinSources: 2, MaxSources: 1, Build: build}))

	_, ok := r.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, []string{"x"}, r.Types())
	assert.Panics(t, func() { r.MustRegister(Entry{Type: "x", Build: build}) })
}

func TestDefaultCoversEveryComputedType(t *testing.T) {
	r := Default()
	for _, typ := range field.Types() {
		switch typ {
		case field.TypeFiniteElement, field.TypeComposite:
			continue
		}
		_, ok := r.Lookup(typ.String())
		assert.True(t, ok, "type %s is not registered", typ)
	}
	for _, s := range []string{"component", "concatenate", "identity"} {
		_, ok := r.Lookup(s)
		assert.True(t, ok, s)
	}
}

func TestBuild(t *testing.T) {
	m := field.NewManager(nil)
	mod := fieldops.NewModule(m)
	r := Default()
	v, err := mod.Constant(1, -2, 3)
	require.NoError(t, err)

	eval := func(t *testing.T, f *field.Field) []float64 {
		t.Helper()
		c := m.NewCache()
		require.NoError(t, c.SetCoordinates([]float64{0}))
		out, err := c.Evaluate(f)
		require.NoError(t, err)
		return out
	}

	testCases := []struct {
		name     string
		spec     config.Field
		expected []float64
	}{
		{"constant", config.Field{Type: "constant", Values: []float64{4, 5}}, []float64{4, 5}},
		{"scale broadcast", config.Field{Type: "scale", Values: []float64{2}}, []float64{2, -4, 6}},
		{"add default weights", config.Field{Type: "add"}, []float64{2, -4, 6}},
		{"add weights", config.Field{Type: "add", Values: []float64{1, -1}}, []float64{0, 0, 0}},
		{"component is 1-based", config.Field{Type: "component", Components: []int{3, 1}}, []float64{3, 1}},
		{"clamp minimum", config.Field{Type: "clamp_minimum", Values: []float64{0}}, []float64{1, 0, 3}},
		{"sum components", config.Field{Type: "sum_components"}, []float64{2}},
		{"greater than", config.Field{Type: "greater_than"}, []float64{0, 0, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec := tc.spec
			e, _ := r.Lookup(spec.Type)
			sources := make([]*field.Field, e.MinSources)
			for i := range sources {
				sources[i] = v
			}
			for range sources {
				spec.Sources = append(spec.Sources, "v")
			}
			f, err := r.Build(mod, Args{Spec: &spec, Sources: sources})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, eval(t, f))
		})
	}

	t.Run("helper constants are released with their user", func(t *testing.T) {
		before := m.Len()
		spec := config.Field{Type: "clamp_maximum", Sources: []string{"v"}, Values: []float64{0}}
		f, err := r.Build(mod, Args{Spec: &spec, Sources: []*field.Field{v}})
		require.NoError(t, err)
		assert.Equal(t, before+2, m.Len())
		f.Release()
		assert.Equal(t, before, m.Len())
	})

	t.Run("shape errors", func(t *testing.T) {
		_, err := r.Build(mod, Args{Spec: &config.Field{Type: "nope"}})
		require.ErrorContains(t, err, "unknown field type")
		_, err = r.Build(mod, Args{Spec: &config.Field{Type: "sin"}})
		require.ErrorContains(t, err, "at least 1")
		_, err = r.Build(mod, Args{Spec: &config.Field{Type: "constant"}})
		require.ErrorContains(t, err, "needs values")
		for _, weights := range [][]float64{{2}, {1, 2, 3}} {
			spec := config.Field{Type: "add", Sources: []string{"v", "v"}, Values: weights}
			_, err = r.Build(mod, Args{Spec: &spec, Sources: []*field.Field{v, v}})
			require.ErrorContains(t, err, "takes two weights")
		}
		spec := config.Field{Type: "derivative", Sources: []string{"v"}, Mesh: "square"}
		_, err = r.Build(mod, Args{Spec: &spec, Sources: []*field.Field{v}})
		require.ErrorContains(t, err, "mesh \"square\" not found")
		_, err = r.Build(mod, Args{Spec: &config.Field{Type: "group", Nodeset: "corners"}})
		require.ErrorContains(t, err, "nodeset \"corners\" not found")
		_, err = r.Build(mod, Args{Spec: &config.Field{Type: "group"}})
		require.ErrorIs(t, err, field.ErrInvalidArgument)
	})
}

func TestValidate(t *testing.T) {
	m := &config.Model{
		Meshes:   []*config.Mesh{{Name: "square", Dimension: 2}},
		Nodesets: []*config.Nodeset{{Name: "boundary"}},
		Fields: []*config.Field{
			{Name: "ok", Type: "derivative", Sources: []string{"x"}, Mesh: "square", XiIndex: 1},
			{Name: "sum", Type: "nodeset_sum", Sources: []string{"x"}, Nodeset: "nodes"},
			{Name: "a", Type: "bogus"},
			{Name: "b", Type: "cross_product", Sources: []string{"x"}},
			{Name: "c", Type: "compose", Sources: []string{"x", "y", "z"}, Mesh: "cube"},
			{Name: "d", Type: "nodeset_mean", Sources: []string{"x"}, Nodeset: "inner"},
			{Name: "e", Type: "component", Sources: []string{"x"}, Components: []int{0}},
			{Name: "g", Type: "group", Mesh: "nowhere"},
		},
	}
	err := Default().Validate(context.Background(), m)
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 6)
	assert.Contains(t, err.Error(), "unknown type \"bogus\"")
	assert.Contains(t, err.Error(), "unknown mesh \"cube\"")
	assert.Contains(t, err.Error(), "unknown nodeset \"inner\"")
	assert.Contains(t, err.Error(), "start at 1")
	assert.Contains(t, err.Error(), "unknown mesh \"nowhere\"")

	m.Fields = m.Fields[:2]
	require.NoError(t, Default().Validate(context.Background(), m))
}
