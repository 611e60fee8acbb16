package kind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"
)

func TestMarshalUnmarshal(t *testing.T) {
	for range 10000 {
		k := New(uint16(frand.Intn(65536)))
		b, err := k.MarshalJSON()
		require.NoError(t, err)
		k2 := New(0)
		require.NoError(t, k2.UnmarshalJSON(b))
		assert.True(t, k.Equal(k2))
	}
	assert.Error(t, New(0).UnmarshalJSON([]byte("65536")))
	assert.Error(t, New(0).UnmarshalJSON([]byte(`"1"`)))
}

func TestClasses(t *testing.T) {
	assert.True(t, LongFormContent.IsParameterizedReplaceable())
	assert.False(t, TextNote.IsParameterizedReplaceable())
	assert.True(t, NostrConnect.IsEphemeral())
	assert.Equal(t, "LongFormContent", LongFormContent.Name())
	assert.Equal(t, "Unknown", New(7).Name())
}
