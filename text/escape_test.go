package text

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"
)

func TestNostrEscape(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain", "plain"},
		{"a\"b", `a\"b`},
		{"back\\slash", `back\\slash`},
		{"line\nbreak\r\t", `line\nbreak\r\t`},
		{"\b\f", `\b\f`},
		{"\x01\x1f", `\u0001\u001f`},
		{"</script>&", "</script>&"},
		{"ünïcødé 🐸", "ünïcødé 🐸"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, string(NostrEscape(nil, []byte(c.in))))
	}
}

// the escaped form must always decode back to the input with a standard JSON
// decoder.
func TestEscapeDecodes(t *testing.T) {
	for range 1000 {
		src := []byte(string([]rune(string(frand.Bytes(frand.Intn(64))))))
		q := AppendQuote(nil, src, NostrEscape)
		var out string
		require.NoError(t, json.Unmarshal(q, &out), "%q", q)
		assert.Equal(t, string(src), out)
	}
}

func TestAppendCanonical(t *testing.T) {
	b, err := AppendCanonical([]byte("x"), []byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, `x"ok"`, string(b))
	_, err = AppendCanonical(nil, []byte{0xff, 0xfe})
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
