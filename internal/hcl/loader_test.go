package hcl

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/fieldgrid/internal/config"
)

const squareHCL = `
mesh "square" {
  dimension = 2
  element "1" {
    nodes = [1, 2, 3, 4]
  }
}

nodeset "boundary" {
  nodes = [1, 2]
}

node "1" {
  values = { coordinates = [0, 0] }
}
node "2" {
  values = { coordinates = [2, 0] }
}

finite_element "coordinates" {
  components        = 2
  component_names   = ["x", "y"]
  coordinate_system = "rectangular_cartesian"
}

field "angle" {
  type   = "constant"
  values = [pi / 2, max(1, 3), pow(2, 3)]
}

field "radius" {
  type    = "magnitude"
  sources = [coordinates]
}

field "scaled" {
  type    = "add"
  sources = [coordinates.x, "coordinates[2]"]
  values  = [1, -1]
  managed = false
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "square.hcl", squareHCL)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, model.Meshes, 1)
	mesh := model.Meshes[0]
	assert.Equal(t, "square", mesh.Name)
	assert.Equal(t, 2, mesh.Dimension)
	assert.Equal(t, []*config.Element{{ID: 1, Nodes: []int{1, 2, 3, 4}}}, mesh.Elements)

	require.Len(t, model.Nodesets, 1)
	assert.Equal(t, []int{1, 2}, model.Nodesets[0].Nodes)

	require.Len(t, model.Nodes, 2)
	assert.Equal(t, 2, model.Nodes[1].ID)
	assert.Equal(t, map[string][]float64{"coordinates": {2, 0}}, model.Nodes[1].Values)

	require.Len(t, model.FiniteElements, 1)
	fe := model.FiniteElements[0]
	assert.Equal(t, []string{"x", "y"}, fe.ComponentNames)
	assert.True(t, fe.Managed)

	require.Len(t, model.Fields, 3)
	angle := model.Fields[0]
	require.Len(t, angle.Values, 3)
	assert.InDelta(t, math.Pi/2, angle.Values[0], 1e-12)
	assert.Equal(t, []float64{3, 8}, angle.Values[1:])

	assert.Equal(t, []string{"coordinates"}, model.Fields[1].Sources)

	scaled := model.Fields[2]
	assert.Equal(t, []string{"coordinates.x", "coordinates[2]"}, scaled.Sources)
	assert.False(t, scaled.Managed)
	assert.Contains(t, scaled.DeclRange, "square.hcl")

	assert.Equal(t, []string{"coordinates", "angle", "radius", "scaled"}, model.FieldNames())
}

func TestLoadMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.hcl", `field "two" {
  type   = "constant"
  values = [2]
}`)
	writeFile(t, dir, "a.hcl", `field "one" {
  type   = "constant"
  values = [1]
}`)
	writeFile(t, dir, "notes.txt", "not a description")
	writeFile(t, dir, ".hidden/c.hcl", "this would not parse")

	model, err := NewLoader().Load(context.Background(), dir, filepath.Join(dir, "a.hcl"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, model.FieldNames())
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "syntax",
			content: `field "a" {`,
			errPart: "failed to parse",
		},
		{
			name:    "missing type",
			content: `field "a" {}`,
			errPart: "failed to decode",
		},
		{
			name: "bad node id",
			content: `node "first" {
  values = {}
}`,
			errPart: "positive integer",
		},
		{
			name: "bad source",
			content: `field "a" {
  type    = "identity"
  sources = [lower(coordinates)]
}`,
			errPart: "Invalid source reference",
		},
		{
			name: "unknown function",
			content: `field "a" {
  type   = "constant"
  values = [sqrt(2)]
}`,
			errPart: "failed to decode",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.hcl", tc.content)
			_, err := NewLoader().Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errPart)
		})
	}

	t.Run("missing path", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), t.TempDir())
		require.ErrorContains(t, err, "no .hcl files")
	})
}

func TestLoadSource(t *testing.T) {
	model, err := NewLoader().LoadSource(context.Background(), []byte(`field "k" {
  type   = "constant"
  values = [abs(-4), floor(2.5), signum(-3)]
}`), "inline.hcl")
	require.NoError(t, err)
	require.Len(t, model.Fields, 1)
	assert.Equal(t, []float64{4, 2, -1}, model.Fields[0].Values)
	assert.Empty(t, model.Fields[0].Sources)
}
