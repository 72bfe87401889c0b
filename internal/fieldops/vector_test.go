package fieldops_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/fieldgrid/internal/field"
)

func TestDotProduct(t *testing.T) {
	fx := newFixture(t)
	fx.at(t, 0.5, 0.5)

	// x^2 + y^2 with x = 2 xi1, y = 3 xi2
	dot, err := fx.mod.DotProduct(fx.coords, fx.coords)
	require.NoError(t, err)
	requireApprox(t, []float64{3.25}, fx.eval(t, dot))
	requireApprox(t, []float64{4, 9}, fx.evalDerivative(t, dot, 1))

	_, err = fx.mod.DotProduct(fx.coords, constant(t, fx.mod, 1, 2, 3))
	require.ErrorIs(t, err, field.ErrInvalidArgument)
}

func TestCrossProduct(t *testing.T) {
	fx := newFixture(t)
	fx.at(t, 0, 0)
	x := constant(t, fx.mod, 1, 0, 0)
	y := constant(t, fx.mod, 0, 1, 0)

	z, err := fx.mod.CrossProduct(x, y)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1}, fx.eval(t, z))

	_, err = fx.mod.CrossProduct(fx.coords, fx.coords)
	require.ErrorIs(t, err, field.ErrInvalidArgument)
}

func TestMagnitudeAndNormalise(t *testing.T) {
	fx := newFixture(t)
	fx.at(t, 0, 0)
	v := constant(t, fx.mod, 3, 4)

	mag, err := fx.mod.Magnitude(v)
	require.NoError(t, err)
	requireApprox(t, []float64{5}, fx.eval(t, mag))

	unit, err := fx.mod.Normalise(v)
	require.NoError(t, err)
	requireApprox(t, []float64{0.6, 0.8}, fx.eval(t, unit))

	t.Run("zero vector", func(t *testing.T) {
		zero, err := fx.mod.Normalise(constant(t, fx.mod, 0, 0))
		require.NoError(t, err)
		_, err = fx.cache.Evaluate(zero)
		require.ErrorIs(t, err, field.ErrNotDefined)
	})

	t.Run("magnitude derivative", func(t *testing.T) {
		m, err := fx.mod.Magnitude(fx.coords)
		require.NoError(t, err)
		fx.at(t, 0.5, 0.5)
		r := math.Sqrt(3.25)
		requireApprox(t, []float64{2 / r, 4.5 / r}, fx.evalDerivative(t, m, 1))
	})
}

func TestSumComponents(t *testing.T) {
	fx := newFixture(t)
	fx.at(t, 0.5, 0.5)

	sum, err := fx.mod.SumComponents(fx.coords)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5}, fx.eval(t, sum))

	weighted, err := fx.mod.SumComponents(fx.coords, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, fx.eval(t, weighted))
	assert.Equal(t, []float64{2, 6}, fx.evalDerivative(t, weighted, 1))

	_, err = fx.mod.SumComponents(fx.coords, 1)
	require.ErrorIs(t, err, field.ErrInvalidArgument)
}
