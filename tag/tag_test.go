package tag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longform.lol/text"
)

func TestMarshalUnmarshal(t *testing.T) {
	tt := New("title", "a \"quoted\"\ntitle")
	b, err := json.Marshal(tt)
	require.NoError(t, err)
	assert.Equal(t, `["title","a \"quoted\"\ntitle"]`, string(b))
	t2 := NewWithCap(2)
	require.NoError(t, json.Unmarshal(b, t2))
	assert.True(t, tt.Equal(t2))
	assert.Equal(t, "title", string(t2.Key()))
	assert.Equal(t, "", t2.S(5))
}

func TestCanonicalRejectsBadUTF8(t *testing.T) {
	_, err := New([]byte("d"), []byte{0xc3, 0x28}).AppendCanonical(nil)
	assert.ErrorIs(t, err, text.ErrInvalidUTF8)
}

func TestClone(t *testing.T) {
	a := New("p", "abcd")
	c := a.Clone()
	c.B(1)[0] = 'x'
	assert.Equal(t, "abcd", a.S(1))
	assert.Equal(t, []string{"p", "xbcd"}, c.ToStrings())
}
