package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/fieldops"
)

func TestObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	manager := field.NewManager(nil)
	manager.SetObserver(m)
	mod := fieldops.NewModule(manager)
	k, err := mod.Constant(4)
	require.NoError(t, err)
	root, err := mod.Sqrt(k)
	require.NoError(t, err)
	neg, err := mod.Constant(-1)
	require.NoError(t, err)
	bad, err := mod.Sqrt(neg)
	require.NoError(t, err)

	c := manager.NewCache()
	require.NoError(t, c.SetCoordinates([]float64{0}))
	_, err = c.Evaluate(root)
	require.NoError(t, err)
	_, err = c.Evaluate(root)
	require.NoError(t, err)
	_, err = c.Evaluate(bad)
	require.ErrorIs(t, err, field.ErrNotDefined)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("sqrt", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluations.WithLabelValues("sqrt", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("sqrt", "not_defined")))
	assert.Equal(t, float64(manager.Generation()), testutil.ToFloat64(m.generation))

	m.Sampled(true)
	m.Sampled(false)
	m.Sampled(false)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.samples.WithLabelValues("undefined")))

	_, err = New(reg)
	require.Error(t, err, "collectors are registered once per registry")
}
