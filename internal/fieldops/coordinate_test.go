package fieldops_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/fieldgrid/internal/field"
)

func TestCoordinateTransformation(t *testing.T) {
	fx := newFixture(t)
	fx.at(t, 0.5, 0.5)
	cylindrical := field.CoordinateSystem{Type: field.CylindricalPolar}

	t.Run("cylindrical to cartesian", func(t *testing.T) {
		polar, err := fx.mod.WithCoordinateSystem(cylindrical).Constant(2, math.Pi/2, 1)
		require.NoError(t, err)
		rc, err := fx.mod.CoordinateTransformation(polar)
		require.NoError(t, err)
		requireApprox(t, []float64{0, 2, 1}, fx.eval(t, rc))
	})

	t.Run("round trip", func(t *testing.T) {
		for _, cs := range []field.CoordinateSystem{
			cylindrical,
			{Type: field.SphericalPolar},
			{Type: field.ProlateSpheroidal, Focus: 1},
			{Type: field.OblateSpheroidal, Focus: 1},
		} {
			p := constant(t, fx.mod, 0.3, 0.4, 0.5)
			there, err := fx.mod.WithCoordinateSystem(cs).CoordinateTransformation(p)
			require.NoError(t, err)
			back, err := fx.mod.CoordinateTransformation(there)
			require.NoError(t, err)
			requireApprox(t, []float64{0.3, 0.4, 0.5}, fx.eval(t, back))
		}
	})

	t.Run("jacobian", func(t *testing.T) {
		polar, err := fx.mod.WithCoordinateSystem(cylindrical).CoordinateTransformation(fx.coords)
		require.NoError(t, err)
		r2 := 3.25
		r := math.Sqrt(r2)
		requireApprox(t, []float64{r, math.Atan2(1.5, 1), 0}, fx.eval(t, polar))
		requireApprox(t, []float64{
			2 / r, 4.5 / r,
			-3 / r2, 3 / r2,
			0, 0,
		}, fx.evalDerivative(t, polar, 1))
	})

	t.Run("fibre is not a position system", func(t *testing.T) {
		_, err := fx.mod.WithCoordinateSystem(field.CoordinateSystem{Type: field.Fibre}).CoordinateTransformation(fx.coords)
		require.ErrorIs(t, err, field.ErrInvalidArgument)
	})
}

func TestVectorCoordinateTransformation(t *testing.T) {
	fx := newFixture(t)
	fx.at(t, 0, 0)
	cylindrical := field.CoordinateSystem{Type: field.CylindricalPolar}

	// At theta = pi/2 the radial direction is +y.
	position, err := fx.mod.WithCoordinateSystem(cylindrical).Constant(1, math.Pi/2, 0)
	require.NoError(t, err)
	radial, err := fx.mod.WithCoordinateSystem(cylindrical).Constant(1, 0, 0)
	require.NoError(t, err)
	v, err := fx.mod.VectorCoordinateTransformation(radial, position)
	require.NoError(t, err)
	requireApprox(t, []float64{0, 1, 0}, fx.eval(t, v))

	_, err = fx.mod.VectorCoordinateTransformation(constant(t, fx.mod, 1, 2), position)
	require.ErrorIs(t, err, field.ErrInvalidArgument)
}
