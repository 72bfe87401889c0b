package fieldref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expectErr bool
		expected  Ref
	}{
		{name: "whole field", raw: "coordinates", expected: Ref{Field: "coordinates"}},
		{name: "named component", raw: "coordinates.y", expected: Ref{Field: "coordinates", Component: "y"}},
		{name: "numbered component", raw: "coordinates.2", expected: Ref{Field: "coordinates", Component: "2"}},
		{name: "indexed component", raw: "coordinates[3]", expected: Ref{Field: "coordinates", Component: "3"}},
		{name: "hyphenated name", raw: "fibre-angle", expected: Ref{Field: "fibre-angle"}},
		{name: "error - empty", raw: "", expectErr: true},
		{name: "error - two selectors", raw: "a.b.c", expectErr: true},
		{name: "error - zero index", raw: "a[0]", expectErr: true},
		{name: "error - leading digit", raw: "1a", expectErr: true},
		{name: "error - trailing dot", raw: "a.", expectErr: true},
		{name: "error - bad index", raw: "a[x]", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := Parse(tc.raw)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ref)
		})
	}
}

func TestRefString(t *testing.T) {
	for _, raw := range []string{"a", "a.x", "a.2"} {
		t.Run(raw, func(t *testing.T) {
			ref, err := Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, ref.String())
		})
	}
	ref, err := Parse("a[2]")
	require.NoError(t, err)
	assert.Equal(t, "a.2", ref.String())
	assert.True(t, ref.HasComponent())
}
