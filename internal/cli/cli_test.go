package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/fieldgrid/internal/app"
)

func TestParse(t *testing.T) {
	t.Run("evaluate at element xi", func(t *testing.T) {
		cfg, exit, err := Parse([]string{"-field", "u.x", "-element", "3", "-xi", "0.5, 0.25", "-time", "2", "a.hcl", "dir"}, &bytes.Buffer{})
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, []string{"a.hcl", "dir"}, cfg.Paths)
		assert.Equal(t, "u.x", cfg.Field)
		assert.Equal(t, 3, cfg.Element)
		assert.Equal(t, []float64{0.5, 0.25}, cfg.Xi)
		assert.Equal(t, 2.0, cfg.Time)
		assert.Equal(t, app.ModeEvaluate, cfg.Mode())
		assert.Equal(t, "text", cfg.LogFormat)
	})

	t.Run("sample", func(t *testing.T) {
		cfg, _, err := Parse([]string{"-field", "u", "-sample", "-divisions", "0", "-workers", "3", "a.hcl"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, app.ModeSample, cfg.Mode())
		assert.Equal(t, 0, cfg.Divisions)
		assert.Equal(t, 3, cfg.WorkerCount)
	})

	t.Run("coordinates", func(t *testing.T) {
		cfg, _, err := Parse([]string{"-field", "u", "-coordinates", "1,2,3", "a.hcl"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3}, cfg.Coordinates)
	})

	t.Run("help", func(t *testing.T) {
		out := &bytes.Buffer{}
		cfg, exit, err := Parse([]string{"-h"}, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("no path prints usage", func(t *testing.T) {
		out := &bytes.Buffer{}
		_, exit, err := Parse([]string{"-tree"}, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Contains(t, out.String(), "fieldgrid [options] PATH...")
	})
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		errPart string
	}{
		{name: "unknown flag", args: []string{"-nope", "a.hcl"}, errPart: "flag provided but not defined"},
		{name: "bad xi", args: []string{"-xi", "0.5,x", "a.hcl"}, errPart: `"x" is not a number`},
		{name: "bad log format", args: []string{"-log-format", "xml", "-tree", "a.hcl"}, errPart: "invalid log-format"},
		{name: "bad log level", args: []string{"-log-level", "loud", "-tree", "a.hcl"}, errPart: "invalid log-level"},
		{name: "invalid config", args: []string{"-field", "u", "a.hcl"}, errPart: "exactly one of"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := Parse(tc.args, &bytes.Buffer{})
			require.Error(t, err)
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.errPart)
		})
	}
}
