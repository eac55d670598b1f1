package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemanticParseAndString(t *testing.T) {
	inputs := []string{"patch", "minor", "MINOR", "Major"}
	want := []Semantic{Patch, Minor, Minor, Major}
	for i, input := range inputs {
		got, err := Parse[Semantic](input)
		require.NoError(t, err, input)
		assert.Equal(t, want[i], got)
	}
	assert.Equal(t, []string{"patch", "minor", "major"}, Names[Semantic]())
}

func TestSemanticParseUnknown(t *testing.T) {
	_, err := Parse[Semantic]("huge")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownMagnitude))
	assert.Contains(t, err.Error(), "huge")
}

func TestSemanticOrdering(t *testing.T) {
	assert.Equal(t, -1, Patch.Compare(Minor))
	assert.Equal(t, -1, Minor.Compare(Major))
	assert.Equal(t, 0, Major.Compare(Major))
	assert.Equal(t, Major, Max(Minor, Major))
	assert.Equal(t, Minor, Max(Minor, Patch))
	assert.Equal(t, Patch, Weakest[Semantic]())

	var zero Semantic
	assert.Equal(t, Patch, zero)
}

func TestSemanticApply(t *testing.T) {
	cases := []struct {
		magnitude Semantic
		current   string
		want      string
	}{
		{Major, "0.4.1", "1.0.0"},
		{Minor, "4.1.1", "4.2.0"},
		{Patch, "0.4.1", "0.4.2"},
		{Minor, "1.4.2", "1.5.0"},
		{Patch, "1.2.3.4", "1.2.4"},
	}
	for _, tc := range cases {
		got, err := tc.magnitude.Apply(tc.current)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s of %s", tc.magnitude, tc.current)
	}
}

func TestSemanticApplyRejectsMalformed(t *testing.T) {
	for _, current := range []string{"", "1.2", "1.x.0", "a.b.c", "1.2.-1"} {
		_, err := Minor.Apply(current)
		require.Error(t, err, current)
		var bumpErr *BumpError
		require.True(t, errors.As(err, &bumpErr), current)
		assert.Equal(t, current, bumpErr.Version)
		assert.True(t, errors.Is(err, ErrBump))
	}
}

func TestSemanticMaskAndMatch(t *testing.T) {
	var s Semantic
	assert.Equal(t, "1.5", s.Mask("1.4", "1.5.0"))
	assert.False(t, s.Match("1.4", "1.5.0"))
	assert.True(t, s.Match("1.5", "1.5.0"))
	assert.Equal(t, "0.1", s.Mask("*.*", "0.1.0"))
	assert.Equal(t, "1.5.0", s.Mask("1.5.0", "1.5.0"))
	assert.Equal(t, "2.0.0", s.Mask("10.0.0.0", "2.0.0"))
}
