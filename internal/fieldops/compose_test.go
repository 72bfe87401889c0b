package fieldops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/fieldgrid/internal/field"
)

func TestCompose(t *testing.T) {
	fx := newFixture(t)
	xi, err := fx.mod.Xi()
	require.NoError(t, err)
	fx.at(t, 0, 0)

	t.Run("exact match", func(t *testing.T) {
		target := constant(t, fx.mod, 0.5, 2.25)
		found, err := fx.mod.Compose(target, fx.coords, xi, fx.mesh, false)
		require.NoError(t, err)
		assert.True(t, fx.cache.IsDefined(found))
		requireApprox(t, []float64{0.25, 0.75, 0}, fx.eval(t, found))

		_, err = fx.cache.EvaluateDerivative(found, fx.derivative(t, 1))
		require.ErrorIs(t, err, field.ErrUnsupportedDerivative)
	})

	t.Run("outside the mesh", func(t *testing.T) {
		target := constant(t, fx.mod, 5, 5)
		strict, err := fx.mod.Compose(target, fx.coords, xi, fx.mesh, false)
		require.NoError(t, err)
		assert.False(t, fx.cache.IsDefined(strict))
		_, err = fx.cache.Evaluate(strict)
		require.ErrorIs(t, err, field.ErrNotDefined)

		nearest, err := fx.mod.Compose(target, fx.coords, xi, fx.mesh, true)
		require.NoError(t, err)
		requireApprox(t, []float64{1, 1, 0}, fx.eval(t, nearest))
	})

	t.Run("search runs once per location", func(t *testing.T) {
		target := constant(t, fx.mod, 1, 1.5)
		found, err := fx.mod.Compose(target, fx.coords, xi, fx.mesh, false)
		require.NoError(t, err)
		counter := &evaluationCounter{misses: make(map[field.Type]int)}
		fx.manager.SetObserver(counter)
		t.Cleanup(func() { fx.manager.SetObserver(nil) })

		fx.at(t, 0.5, 0.5)
		require.True(t, fx.cache.IsDefined(found))
		searched := counter.misses[field.TypeFiniteElement]
		require.Positive(t, searched)
		requireApprox(t, []float64{0.5, 0.5, 0}, fx.eval(t, found))
		assert.Equal(t, searched, counter.misses[field.TypeFiniteElement])
		assert.Equal(t, 1, counter.misses[field.TypeCompose])
	})

	t.Run("find field must match the mesh", func(t *testing.T) {
		_, err := fx.mod.Compose(constant(t, fx.mod, 1), fx.component(t, fx.coords, 0), xi, fx.mesh, false)
		require.ErrorIs(t, err, field.ErrInvalidArgument)
		_, err = fx.mod.Compose(constant(t, fx.mod, 1, 2, 3), fx.coords, xi, fx.mesh, false)
		require.ErrorIs(t, err, field.ErrInvalidArgument)
	})
}

// evaluationCounter counts uncached evaluations by field type.
type evaluationCounter struct {
	misses map[field.Type]int
}

func (o *evaluationCounter) Evaluated(t field.Type, cached bool, _ error) {
	if !cached {
		o.misses[t]++
	}
}

func (*evaluationCounter) GenerationChanged(uint64) {}
