package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longform.lol/p256k"
)

func TestCreateValidate(t *testing.T) {
	s := &p256k.Signer{}
	require.NoError(t, s.Generate())
	challenge := GenerateChallenge()
	ev := CreateUnsigned(challenge, "wss://relay.example.com/")
	require.NoError(t, ev.Sign(s))
	ok, err := Validate(ev, challenge, "wss://relay.example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Validate(ev, "other", "wss://relay.example.com")
	assert.Error(t, err)
	_, err = Validate(ev, challenge, "wss://elsewhere.example.com")
	assert.Error(t, err)
}
