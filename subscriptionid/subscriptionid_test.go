package subscriptionid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStd(t *testing.T) {
	seen := map[string]bool{}
	for range 1000 {
		si := NewStd()
		require.True(t, si.IsValid())
		assert.True(t, strings.HasPrefix(si.String(), StdHRP+"1"))
		assert.False(t, seen[si.T])
		seen[si.T] = true
	}
}

func TestNew(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
	_, err = New(strings.Repeat("a", 65))
	assert.Error(t, err)
	si, err := New("feed")
	require.NoError(t, err)
	assert.Equal(t, "feed", si.String())
}
