package fieldops_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/fieldops"
	"github.com/vk/fieldgrid/internal/inmemorymesh"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// fixture is a single bilinear 2D element spanning [0,2]x[0,3], with a
// "coordinates" field x = 2*xi1, y = 3*xi2.
type fixture struct {
	store   *inmemorymesh.Store
	mesh    *inmemorymesh.Mesh
	element *inmemorymesh.Element
	manager *field.Manager
	mod     fieldops.Module
	coords  *field.Field
	cache   *field.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{store: inmemorymesh.New(), manager: field.NewManager(nil)}
	fx.mod = fieldops.NewModule(fx.manager)

	corners := [][]float64{{0, 0}, {2, 0}, {0, 3}, {2, 3}}
	nodes := make([]*inmemorymesh.Node, len(corners))
	for i := range corners {
		nodes[i] = fx.store.CreateNode(i + 1)
	}
	var err error
	fx.mesh, err = fx.store.CreateMesh("mesh2d", 2)
	require.NoError(t, err)
	fx.element, err = fx.mesh.AddElement(1, nodes)
	require.NoError(t, err)

	fs, err := fx.store.CreateFieldStore("coordinates", 2)
	require.NoError(t, err)
	for i, v := range corners {
		require.NoError(t, fs.SetNodeValues(nodes[i], 0, v))
	}
	fx.coords, err = fx.mod.Named("coordinates").Managed(true).WithComponentNames("x", "y").FiniteElement(fs)
	require.NoError(t, err)
	fx.cache = fx.manager.NewCache()
	return fx
}

func (fx *fixture) at(t *testing.T, xi ...float64) {
	t.Helper()
	require.NoError(t, fx.cache.SetElementXi(fx.element, xi))
}

func (fx *fixture) derivative(t *testing.T, order int) *field.Derivative {
	t.Helper()
	d, err := fx.manager.Derivative(fx.mesh, order)
	require.NoError(t, err)
	return d
}

func (fx *fixture) eval(t *testing.T, f *field.Field) []float64 {
	t.Helper()
	v, err := fx.cache.Evaluate(f)
	require.NoError(t, err)
	return v
}

func (fx *fixture) evalDerivative(t *testing.T, f *field.Field, order int) []float64 {
	t.Helper()
	v, err := fx.cache.EvaluateDerivative(f, fx.derivative(t, order))
	require.NoError(t, err)
	return v
}

func (fx *fixture) component(t *testing.T, f *field.Field, comp int) *field.Field {
	t.Helper()
	c, err := fx.mod.Component(f, comp)
	require.NoError(t, err)
	return c
}

func constant(t *testing.T, mod fieldops.Module, values ...float64) *field.Field {
	t.Helper()
	f, err := mod.Constant(values...)
	require.NoError(t, err)
	return f
}

func requireApprox(t *testing.T, want, got []float64) {
	t.Helper()
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}
