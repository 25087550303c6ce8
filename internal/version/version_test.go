package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopi-lang/kopi/internal/version"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"21", "21.0", "21.0.2", "21.0.2+13", "21.0.2+13-ea",
		"1.8.0", "11.0.20.8", "17.0.5-beta.1",
	}
	for _, s := range cases {
		v, err := version.Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, v.String(), "round trip for %q", s)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{"", "21..0", ".21", "+21", "-21", "21+", "21-"}
	for _, s := range cases {
		_, err := version.Parse(s)
		assert.Error(t, err, s)
	}
}

func TestParseEightComponents(t *testing.T) {
	v, err := version.Parse("1.2.3.4.5.6.7.8")
	require.NoError(t, err)
	assert.Len(t, v.Components, 8)
}

func TestCompareSameLength(t *testing.T) {
	a, _ := version.Parse("17.0.5")
	b, _ := version.Parse("17.0.9")
	assert.True(t, version.Less(a, b))
	assert.True(t, version.Compare(b, a) > 0)
	assert.True(t, version.Equal(a, a))
}

func TestCompareDifferentLengthIsStrictInequality(t *testing.T) {
	short, _ := version.Parse("17.0")
	long, _ := version.Parse("17.0.0")
	// Strict ordering does NOT zero-pad: these are not equal, and the
	// shorter sequence sorts before the longer one at the point they
	// run out of shared components.
	assert.False(t, version.Equal(short, long))
	assert.True(t, version.Less(short, long))
}

func TestPreReleaseSortsBelowRelease(t *testing.T) {
	release, _ := version.Parse("21.0.0")
	pre, _ := version.Parse("21.0.0-ea")
	assert.True(t, version.Less(pre, release))
}

func TestMatchesPrefix(t *testing.T) {
	pattern, _ := version.Parse("17.0")
	full, _ := version.Parse("17.0.9")
	other, _ := version.Parse("17.1.0")
	assert.True(t, pattern.Matches(full))
	assert.False(t, pattern.Matches(other))
}

func TestMatchesWithBuild(t *testing.T) {
	pattern, _ := version.Parse("21.0.2+13")
	match, _ := version.Parse("21.0.2+13")
	mismatch, _ := version.Parse("21.0.2+14")
	assert.True(t, pattern.Matches(match))
	assert.False(t, pattern.Matches(mismatch))
	assert.True(t, pattern.HasBuild())
}
