package fieldops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/inmemorymesh"
)

func TestFiniteElement(t *testing.T) {
	fx := newFixture(t)
	fx.at(t, 0.5, 0.25)
	assert.Equal(t, []float64{1, 0.75}, fx.eval(t, fx.coords))
	assert.Equal(t, []float64{2, 0, 0, 3}, fx.evalDerivative(t, fx.coords, 1))
	assert.Equal(t, make([]float64, 8), fx.evalDerivative(t, fx.coords, 2))

	t.Run("at nodes", func(t *testing.T) {
		n, ok := fx.store.Node(4)
		require.True(t, ok)
		require.NoError(t, fx.cache.SetNode(n))
		assert.Equal(t, []float64{2, 3}, fx.eval(t, fx.coords))

		_, err := fx.cache.EvaluateDerivative(fx.coords, fx.derivative(t, 1))
		require.ErrorIs(t, err, field.ErrInvalidArgument)
	})

	t.Run("undefined node", func(t *testing.T) {
		require.NoError(t, fx.cache.SetNode(fx.store.CreateNode(50)))
		assert.False(t, fx.cache.IsDefined(fx.coords))
		_, err := fx.cache.Evaluate(fx.coords)
		require.ErrorIs(t, err, field.ErrNotDefined)
	})

	t.Run("other mesh", func(t *testing.T) {
		line, err := fx.store.CreateMesh("line", 1)
		require.NoError(t, err)
		a, _ := fx.store.Node(1)
		b, _ := fx.store.Node(2)
		_, err = line.AddElement(1, []*inmemorymesh.Node{a, b})
		require.NoError(t, err)
		fx.at(t, 0.5, 0.5)
		d, err := fx.manager.Derivative(line, 1)
		require.NoError(t, err)
		_, err = fx.cache.EvaluateDerivative(fx.coords, d)
		require.ErrorIs(t, err, field.ErrInvalidArgument)
	})
}

func TestDerivativeField(t *testing.T) {
	fx := newFixture(t)
	fx.at(t, 0.5, 0.25)
	xy, err := fx.mod.Multiply(fx.component(t, fx.coords, 0), fx.component(t, fx.coords, 1))
	require.NoError(t, err)

	// d(6 xi1 xi2)/dxi1 = 6 xi2
	dxy, err := fx.mod.Derivative(xy, fx.mesh, 0)
	require.NoError(t, err)
	requireApprox(t, []float64{1.5}, fx.eval(t, dxy))
	requireApprox(t, []float64{0, 6}, fx.evalDerivative(t, dxy, 1))

	dcoords, err := fx.mod.Derivative(fx.coords, fx.mesh, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 3}, fx.eval(t, dcoords))

	_, err = fx.mod.Derivative(fx.coords, fx.mesh, 2)
	require.ErrorIs(t, err, field.ErrInvalidArgument)

	t.Run("undefined away from elements", func(t *testing.T) {
		n, _ := fx.store.Node(1)
		require.NoError(t, fx.cache.SetNode(n))
		assert.False(t, fx.cache.IsDefined(dxy))
		_, err := fx.cache.Evaluate(dxy)
		require.ErrorIs(t, err, field.ErrNotDefined)
	})
}

func TestGradient(t *testing.T) {
	fx := newFixture(t)
	fx.at(t, 0.5, 0.25)
	x, y := fx.component(t, fx.coords, 0), fx.component(t, fx.coords, 1)
	xy, err := fx.mod.Multiply(x, y)
	require.NoError(t, err)

	grad, err := fx.mod.Gradient(xy, fx.coords)
	require.NoError(t, err)
	requireApprox(t, []float64{0.75, 1}, fx.eval(t, grad))

	identity, err := fx.mod.Gradient(fx.coords, fx.coords)
	require.NoError(t, err)
	assert.Equal(t, 4, identity.ComponentCount())
	requireApprox(t, []float64{1, 0, 0, 1}, fx.eval(t, identity))

	div, err := fx.mod.Divergence(fx.coords, fx.coords)
	require.NoError(t, err)
	requireApprox(t, []float64{2}, fx.eval(t, div))

	_, err = fx.cache.EvaluateDerivative(grad, fx.derivative(t, 1))
	require.ErrorIs(t, err, field.ErrUnsupportedDerivative)

	t.Run("curl of a rotation embedded in 3D", func(t *testing.T) {
		zero := constant(t, fx.mod, 0)
		coords3, err := fx.mod.Concatenate(fx.coords, zero)
		require.NoError(t, err)
		minusY, err := fx.mod.Scale(y, -1)
		require.NoError(t, err)
		rotation, err := fx.mod.Concatenate(minusY, x, zero)
		require.NoError(t, err)

		curl, err := fx.mod.Curl(rotation, coords3)
		require.NoError(t, err)
		requireApprox(t, []float64{0, 0, 2}, fx.eval(t, curl))

		_, err = fx.mod.Curl(fx.coords, fx.coords)
		require.ErrorIs(t, err, field.ErrInvalidArgument)
	})

	t.Run("singular coordinates give zero gradient", func(t *testing.T) {
		flat, err := fx.mod.Concatenate(x, x)
		require.NoError(t, err)
		g, err := fx.mod.Gradient(xy, flat)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0}, fx.eval(t, g))
	})

	t.Run("fewer coordinates than element dimensions", func(t *testing.T) {
		g, err := fx.mod.Gradient(xy, x)
		require.NoError(t, err)
		assert.False(t, fx.cache.IsDefined(g))
		_, err = fx.cache.Evaluate(g)
		require.ErrorIs(t, err, field.ErrNotDefined)
	})
}
