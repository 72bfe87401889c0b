package inmemorymesh

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareMesh(t *testing.T) (*Store, *Mesh, *Element) {
	t.Helper()
	s := New()
	nodes := make([]*Node, 4)
	for i := range nodes {
		nodes[i] = s.CreateNode(i + 1)
	}
	m, err := s.CreateMesh("mesh2d", 2)
	require.NoError(t, err)
	e, err := m.AddElement(1, nodes)
	require.NoError(t, err)
	return s, m, e
}

func TestCreateNodeIsIdempotent(t *testing.T) {
	s := New()
	a := s.CreateNode(7)
	b := s.CreateNode(7)
	assert.Same(t, a, b)
	assert.Equal(t, 1, s.Nodes().Size())
}

func TestMeshElements(t *testing.T) {
	s, m, e := squareMesh(t)

	t.Run("lookup", func(t *testing.T) {
		found, ok := m.FindElement(1)
		require.True(t, ok)
		assert.Same(t, e, found)
		assert.True(t, m.ContainsElement(e))
		assert.Equal(t, 2, e.Dimension())
	})

	t.Run("wrong node count", func(t *testing.T) {
		n := s.CreateNode(9)
		_, err := m.AddElement(2, []*Node{n})
		require.Error(t, err)
	})

	t.Run("duplicate element", func(t *testing.T) {
		_, err := m.AddElement(1, e.Nodes())
		require.Error(t, err)
	})

	t.Run("bad dimension", func(t *testing.T) {
		_, err := s.CreateMesh("mesh4d", 4)
		require.Error(t, err)
	})
}

func TestFieldStoreInterpolation(t *testing.T) {
	s, _, e := squareMesh(t)
	fs, err := s.CreateFieldStore("coordinates", 2)
	require.NoError(t, err)

	corners := [][]float64{{0, 0}, {2, 0}, {0, 3}, {2, 3}}
	for i, v := range corners {
		n, _ := s.Node(i + 1)
		require.NoError(t, fs.SetNodeValues(n, 0, v))
	}
	require.True(t, fs.DefinedInElement(e))

	out := make([]float64, 2)
	require.NoError(t, fs.ElementValues(e, []float64{0.5, 0.25}, 0, nil, out))
	assert.InDeltaSlice(t, []float64{1, 0.75}, out, 1e-12)

	t.Run("first derivatives", func(t *testing.T) {
		require.NoError(t, fs.ElementValues(e, []float64{0.5, 0.25}, 0, []int{0}, out))
		assert.InDeltaSlice(t, []float64{2, 0}, out, 1e-12)
		require.NoError(t, fs.ElementValues(e, []float64{0.5, 0.25}, 0, []int{1}, out))
		assert.InDeltaSlice(t, []float64{0, 3}, out, 1e-12)
	})

	t.Run("repeated direction vanishes", func(t *testing.T) {
		require.NoError(t, fs.ElementValues(e, []float64{0.5, 0.25}, 0, []int{0, 0}, out))
		assert.Equal(t, []float64{0, 0}, out)
	})

	t.Run("undefined node", func(t *testing.T) {
		other, err := s.CreateFieldStore("other", 1)
		require.NoError(t, err)
		assert.False(t, other.DefinedInElement(e))
		require.Error(t, other.ElementValues(e, []float64{0, 0}, 0, nil, make([]float64, 1)))
	})
}

func TestNodesetOrdering(t *testing.T) {
	s := New()
	for _, id := range []int{5, 1, 3} {
		s.CreateNode(id)
	}
	ns, err := s.CreateNodeset("odd", []int{5, 1})
	require.NoError(t, err)

	ids := []int{}
	for _, n := range ns.Nodes() {
		ids = append(ids, n.Identifier())
	}
	assert.Equal(t, []int{1, 5}, ids)

	_, err = s.CreateNodeset("missing", []int{42})
	require.Error(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	fs, err := s.CreateFieldStore("f", 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			n := s.CreateNode(id)
			_ = fs.SetNodeValues(n, 0, []float64{float64(id)})
			_ = fs.DefinedAtNode(n)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Nodes().Size())
}
