package tags

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longform.lol/tag"
)

func TestMarshalUnmarshal(t *testing.T) {
	tt := New(
		tag.New("d", "my-article"),
		tag.New("title", "Hello"),
		tag.New("t", "go"),
		tag.New("t", "nostr"),
	)
	b, err := json.Marshal(tt)
	require.NoError(t, err)
	assert.Equal(t, `[["d","my-article"],["title","Hello"],["t","go"],["t","nostr"]]`, string(b))
	t2 := NewWithCap(0)
	require.NoError(t, json.Unmarshal(b, t2))
	assert.True(t, tt.Equal(t2))
	assert.Equal(t, "Hello", t2.GetFirst([]byte("title")).S(tag.Value))
	assert.Equal(t, 2, t2.GetAll([]byte("t")).Len())
	assert.True(t, t2.ContainsAny([]byte("t"), []byte("x"), []byte("nostr")))
	assert.False(t, t2.ContainsAny([]byte("d"), []byte("nostr")))
	assert.Nil(t, t2.GetFirst([]byte("image")))
}

func TestEmpty(t *testing.T) {
	var tt *T
	b, err := tt.AppendCanonical(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
	assert.Equal(t, 0, tt.Len())
	assert.Nil(t, tt.N(0))
}
