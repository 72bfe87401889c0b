package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/fieldgrid/internal/hcl"
)

const line = `
mesh "line" {
  dimension = 1
  element "1" {
    nodes = [1, 2]
  }
  element "2" {
    nodes = [2, 3]
  }
}

node "1" {
  values = { coordinates = [0] }
}
node "2" {
  values = { coordinates = [1] }
}
node "3" {
  values = { coordinates = [2] }
}

finite_element "coordinates" {
  components = 1
}

field "double" {
  type    = "scale"
  sources = [coordinates]
  values  = [2]
}

field "c" {
  type   = "constant"
  values = [3, 4]
}
`

func writeDescription(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.hcl"), []byte(src), 0o600))
	return dir
}

func runApp(t *testing.T, cfg Config) (string, *App, error) {
	t.Helper()
	if cfg.Paths == nil {
		cfg.Paths = []string{writeDescription(t, line)}
	}
	validated, err := NewConfig(cfg)
	require.NoError(t, err)

	var out, logs bytes.Buffer
	a, err := NewApp(&out, &logs, validated, hcl.NewLoader())
	require.NoError(t, err)
	err = a.Run(context.Background())
	return out.String(), a, err
}

func TestRunEvaluate(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "element xi",
			cfg:  Config{Field: "double", Element: 2, Xi: []float64{0.5}},
			want: "double.1 = 3\n",
		},
		{
			name: "element centre by default",
			cfg:  Config{Field: "double", Element: 1},
			want: "double.1 = 1\n",
		},
		{
			name: "node",
			cfg:  Config{Field: "double", Node: 3},
			want: "double.1 = 4\n",
		},
		{
			name: "coordinates",
			cfg:  Config{Field: "c", Coordinates: []float64{7}},
			want: "c.1 = 3\nc.2 = 4\n",
		},
		{
			name: "first derivative",
			cfg:  Config{Field: "double", Element: 1, Xi: []float64{0.25}, Derivative: 1},
			want: "double.1 d/dxi1 = 2\n",
		},
		{
			name: "second derivative",
			cfg:  Config{Field: "double", Element: 1, Derivative: 2},
			want: "double.1 d2/dxi1xi1 = 0\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, _, err := runApp(t, tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestRunSample(t *testing.T) {
	out, a, err := runApp(t, Config{Field: "double", Sample: true, Divisions: 1, WorkerCount: 2})
	require.NoError(t, err)
	assert.Equal(t, "1\t[0]\t[0]\n1\t[1]\t[2]\n2\t[0]\t[2]\n2\t[1]\t[4]\n", out)

	count, err := testutil.GatherAndCount(a.Gatherer(), "fieldgrid_samples_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only the defined outcome is recorded")
}

func TestRunTree(t *testing.T) {
	t.Run("every unused field", func(t *testing.T) {
		out, _, err := runApp(t, Config{Tree: true})
		require.NoError(t, err)
		assert.Contains(t, out, "c (constant)")
		assert.Contains(t, out, "double (scale)")
		assert.Contains(t, out, "└── coordinates (finite_element)")
	})

	t.Run("one field", func(t *testing.T) {
		out, _, err := runApp(t, Config{Tree: true, Field: "double"})
		require.NoError(t, err)
		assert.NotContains(t, out, "constant")
		assert.Contains(t, out, "coordinates (finite_element)")
	})
}

func TestRunErrors(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		errPart string
	}{
		{
			name:    "missing path",
			cfg:     Config{Paths: []string{"/does/not/exist.hcl"}, Field: "c", Coordinates: []float64{0}},
			errPart: "failed to load field description",
		},
		{
			name:    "unknown field",
			cfg:     Config{Field: "nope", Coordinates: []float64{0}},
			errPart: `field "nope"`,
		},
		{
			name:    "unknown element",
			cfg:     Config{Field: "double", Element: 9},
			errPart: "element 9 not found",
		},
		{
			name:    "unknown node",
			cfg:     Config{Field: "double", Node: 9},
			errPart: "node 9 not found",
		},
		{
			name:    "unknown mesh",
			cfg:     Config{Field: "double", Sample: true, Mesh: "surface"},
			errPart: `mesh "surface" not found`,
		},
		{
			name:    "wrong xi count",
			cfg:     Config{Field: "double", Element: 1, Xi: []float64{0.5, 0.5}},
			errPart: "2 xi values",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runApp(t, tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errPart)
		})
	}

	t.Run("build failure", func(t *testing.T) {
		dir := writeDescription(t, `
field "a" {
  type    = "sqrt"
  sources = [b]
}
field "b" {
  type    = "sqrt"
  sources = [a]
}
`)
		_, _, err := runApp(t, Config{Paths: []string{dir}, Field: "a", Coordinates: []float64{0}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to build region")
		assert.Contains(t, err.Error(), "cycle detected")
	})
}

func TestHTTPHandler(t *testing.T) {
	validated, err := NewConfig(Config{Paths: []string{"unused"}, Tree: true})
	require.NoError(t, err)
	a, err := NewApp(&bytes.Buffer{}, &bytes.Buffer{}, validated, hcl.NewLoader())
	require.NoError(t, err)
	a.metrics.Sampled(true)

	srv := httptest.NewServer(a.httpHandler())
	defer srv.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		var body bytes.Buffer
		_, err = body.ReadFrom(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, body.String(), `fieldgrid_samples_total{outcome="defined"} 1`)
	})
}

func TestHealthcheckServerLifecycle(t *testing.T) {
	validated, err := NewConfig(Config{Paths: []string{"unused"}, Tree: true})
	require.NoError(t, err)
	a, err := NewApp(&bytes.Buffer{}, &bytes.Buffer{}, validated, hcl.NewLoader())
	require.NoError(t, err)

	require.NoError(t, a.closeHealthcheckServer(context.Background()), "closing a server that never started")
	a.startHealthcheckServer(0)
	require.NoError(t, a.closeHealthcheckServer(context.Background()))
	assert.Nil(t, a.httpServer)
}

func TestNewConfig(t *testing.T) {
	paths := []string{"fields.hcl"}
	testCases := []struct {
		name    string
		cfg     Config
		mode    Mode
		errPart string
	}{
		{name: "evaluate", cfg: Config{Paths: paths, Field: "u", Node: 1}, mode: ModeEvaluate},
		{name: "sample", cfg: Config{Paths: paths, Field: "u", Sample: true}, mode: ModeSample},
		{name: "tree without field", cfg: Config{Paths: paths, Tree: true}, mode: ModeTree},
		{name: "no paths", cfg: Config{Field: "u", Node: 1}, errPart: "path is required"},
		{name: "no field", cfg: Config{Paths: paths, Node: 1}, errPart: "field to evaluate"},
		{name: "no location", cfg: Config{Paths: paths, Field: "u"}, errPart: "exactly one of"},
		{name: "two locations", cfg: Config{Paths: paths, Field: "u", Node: 1, Element: 1}, errPart: "exactly one of"},
		{name: "node derivative", cfg: Config{Paths: paths, Field: "u", Node: 1, Derivative: 1}, errPart: "element location"},
		{name: "xi without element", cfg: Config{Paths: paths, Field: "u", Node: 1, Xi: []float64{0}}, errPart: "need an element"},
		{name: "sample with location", cfg: Config{Paths: paths, Field: "u", Sample: true, Node: 1}, errPart: "takes no location"},
		{name: "sample derivative", cfg: Config{Paths: paths, Field: "u", Sample: true, Derivative: 1}, errPart: "cannot be sampled"},
		{name: "negative divisions", cfg: Config{Paths: paths, Field: "u", Sample: true, Divisions: -1}, errPart: "divisions"},
		{name: "negative workers", cfg: Config{Paths: paths, Tree: true, WorkerCount: -1}, errPart: "worker count"},
		{name: "tree and sample", cfg: Config{Paths: paths, Field: "u", Tree: true, Sample: true}, errPart: "cannot be combined"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.cfg)
			if tc.errPart != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errPart)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.mode, cfg.Mode())
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	newLogger("bogus", "text", &buf).Info("fallback")
	assert.Contains(t, buf.String(), "msg=fallback")
}
