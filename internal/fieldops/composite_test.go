package fieldops_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/fieldgrid/internal/field"
)

func TestComponentAndConcatenate(t *testing.T) {
	fx := newFixture(t)
	fx.at(t, 0.5, 0.5)

	y := fx.component(t, fx.coords, 1)
	assert.Equal(t, []float64{1.5}, fx.eval(t, y))
	assert.Equal(t, []float64{0, 3}, fx.evalDerivative(t, y, 1))

	swapped, err := fx.mod.Component(fx.coords, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 1}, fx.eval(t, swapped))
	assert.Equal(t, []float64{0, 3, 2, 0}, fx.evalDerivative(t, swapped, 1))

	cat, err := fx.mod.Concatenate(fx.coords, constant(t, fx.mod, 7))
	require.NoError(t, err)
	assert.Equal(t, 3, cat.ComponentCount())
	assert.Equal(t, []float64{1, 1.5, 7}, fx.eval(t, cat))
	assert.Equal(t, []float64{2, 0, 0, 3, 0, 0}, fx.evalDerivative(t, cat, 1))

	id, err := fx.mod.Identity(fx.coords)
	require.NoError(t, err)
	assert.Equal(t, fx.eval(t, fx.coords), fx.eval(t, id))

	t.Run("out of range", func(t *testing.T) {
		_, err := fx.mod.Component(fx.coords, 2)
		require.ErrorIs(t, err, field.ErrInvalidArgument)
		_, err = fx.mod.Concatenate()
		require.ErrorIs(t, err, field.ErrInvalidArgument)
	})
}

func TestFindComponent(t *testing.T) {
	fx := newFixture(t)
	fx.at(t, 0.5, 0.5)

	whole, err := fx.mod.FindComponent("coordinates")
	require.NoError(t, err)
	assert.Same(t, fx.coords, whole)

	byName, err := fx.mod.FindComponent("coordinates.y")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5}, fx.eval(t, byName))

	byNumber, err := fx.mod.FindComponent("coordinates.2")
	require.NoError(t, err)
	assert.Same(t, byName, byNumber, "existing component field is reused")

	_, err = fx.mod.FindComponent("coordinates.z")
	require.ErrorIs(t, err, field.ErrInvalidArgument)
	_, err = fx.mod.FindComponent("missing")
	require.ErrorIs(t, err, field.ErrInvalidArgument)
}

func TestFindComponentConcurrently(t *testing.T) {
	testCases := []struct {
		name   string
		rename bool
	}{
		{name: "one component field is created"},
		{name: "renames do not split the lookup", rename: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t)
			before := fx.manager.Len()

			const n = 16
			found := make([]*field.Field, n)
			errs := make([]error, n)
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					found[i], errs[i] = fx.mod.FindComponent("coordinates.x")
				}()
			}
			if tc.rename {
				for i := 0; i < n; i++ {
					require.NoError(t, fx.coords.SetName("position"))
					require.NoError(t, fx.coords.SetName("coordinates"))
				}
			}
			wg.Wait()

			var first *field.Field
			for i := range found {
				if errs[i] != nil {
					require.True(t, tc.rename, errs[i].Error())
					require.ErrorIs(t, errs[i], field.ErrInvalidArgument)
					continue
				}
				require.Same(t, fx.coords, found[i].Source(0))
				if first == nil {
					first = found[i]
				}
				assert.Same(t, first, found[i])
			}
			if first != nil {
				assert.Equal(t, before+1, fx.manager.Len())
			}
		})
	}
}
