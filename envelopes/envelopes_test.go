package envelopes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentify(t *testing.T) {
	l, f, err := Identify([]byte(`["EOSE", "sub1"]`))
	require.NoError(t, err)
	assert.Equal(t, "EOSE", l)
	require.Len(t, f, 1)
	s, err := String(f[0])
	require.NoError(t, err)
	assert.Equal(t, "sub1", s)
	require.NoError(t, Fields(l, f, 1))
	assert.Error(t, Fields(l, f, 2))

	for _, bad := range []string{``, `{}`, `[]`, `[1,2]`, `["EVENT"`} {
		_, _, err = Identify([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestMarshal(t *testing.T) {
	b, err := Marshal(nil, "NOTICE", func(dst []byte) ([]byte, error) {
		return AppendString(dst, "a \"b\""), nil
	})
	require.NoError(t, err)
	assert.Equal(t, `["NOTICE","a \"b\""]`, string(b))
}
