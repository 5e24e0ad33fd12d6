package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	got, err := Generate("prop")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "prop-"))
	assert.Len(t, got, len("prop-")+21)
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 500)
	for range 500 {
		v := MustGenerate("fav")
		_, dup := seen[v]
		require.False(t, dup, "duplicate id %s", v)
		seen[v] = struct{}{}
	}
}

func TestSuffix(t *testing.T) {
	s, err := Suffix(8)
	require.NoError(t, err)

	assert.Len(t, s, 8)
	for _, r := range s {
		assert.True(t, strings.ContainsRune(suffixAlphabet, r), "unexpected rune %q", r)
	}
}
