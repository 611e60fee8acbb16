package kinds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longform.lol/kind"
)

func TestMarshalUnmarshal(t *testing.T) {
	k := New(kind.TextNote, kind.LongFormContent)
	b, err := k.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "[1,30023]", string(b))
	k2 := NewWithCap(0)
	require.NoError(t, k2.UnmarshalJSON(b))
	assert.Equal(t, 2, k2.Len())
	assert.True(t, k2.Contains(kind.LongFormContent))
	assert.False(t, k2.Contains(kind.ProfileMetadata))
	assert.Equal(t, "[]", string(New().Append(nil)))
}
