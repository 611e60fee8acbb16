package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longform.lol/context"
	"longform.lol/event"
	"longform.lol/hex"
	"longform.lol/kind"
	"longform.lol/p256k"
	"longform.lol/sign"
	"longform.lol/signer"
	"longform.lol/tags"
	"longform.lol/timestamp"
)

const (
	secHex = "67dea2ed018072d675f5415ecfaed7d2597555e202d85b3d65ea4e58d2d92ffa"
	nsec   = "nsec1vl029mgpspedva04g90vltkh6fvh240zqtv9k0t9af8935ke9laqsnlfe5"
)

type capability struct{ keys *p256k.Signer }

func (f *capability) GetPublicKey(context.T) ([]byte, error) { return f.keys.Pub(), nil }

func (f *capability) SignEvent(_ context.T, unsigned *event.T) (*event.T, error) {
	ev := unsigned.Unsigned()
	if err := ev.Sign(f.keys); err != nil {
		return nil, err
	}
	return ev, nil
}

func note() *event.T {
	return &event.T{
		Kind:      kind.TextNote,
		CreatedAt: timestamp.FromUnix(1700000000),
		Tags:      tags.New(),
		Content:   []byte("hi"),
	}
}

func TestLocalKeyInvalid(t *testing.T) {
	for _, secret := range []string{
		"",
		"   ",
		"nsec1xyz",
		"zz" + secHex[2:],
		secHex[:62],
		"0000000000000000000000000000000000000000000000000000000000000000",
		"fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141",
	} {
		s := New(nil)
		err := s.AuthenticateLocalKey(secret)
		assert.ErrorIs(t, err, signer.ErrInvalidKey, "%q", secret)
		assert.Equal(t, Unauthenticated, s.State())
		assert.Nil(t, s.Identity())
	}
}

func TestLocalKey(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AuthenticateLocalKey(" "+secHex+"\n"))
	assert.Equal(t, Authenticated, s.State())
	id := s.Identity()
	require.NotNil(t, id)
	assert.Equal(t, sign.LocalKey, id.Mode)
	assert.Nil(t, id.secret)

	other := New(nil)
	require.NoError(t, other.AuthenticateLocalKey(nsec))
	assert.Equal(t, id.PublicKeyHex(), other.Identity().PublicKeyHex())

	npub, err := id.Npub()
	require.NoError(t, err)
	assert.Contains(t, npub, "npub1")

	ev := note()
	require.NoError(t, s.Sign(context.Bg(), ev))
	assert.Equal(t, id.PublicKey, ev.PubKey)
	ok, err := ev.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNotAuthenticated(t *testing.T) {
	s := New(nil)
	assert.ErrorIs(t, s.Sign(context.Bg(), note()), sign.ErrNotAuthenticated)
}

func TestDisconnect(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AuthenticateLocalKey(secHex))
	secret := s.identity.secret
	require.Len(t, secret, 32)
	s.Disconnect()
	s.Disconnect()
	assert.Equal(t, Unauthenticated, s.State())
	assert.Nil(t, s.Identity())
	assert.Equal(t, make([]byte, 32), secret)
	assert.ErrorIs(t, s.Sign(context.Bg(), note()), sign.ErrNotAuthenticated)
}

func TestReauthenticate(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AuthenticateLocalKey(secHex))
	first := s.Identity().PublicKeyHex()
	other := &p256k.Signer{}
	require.NoError(t, other.Generate())
	require.NoError(t, s.AuthenticateLocalKey(hex.Enc(other.Sec())))
	assert.NotEqual(t, first, s.Identity().PublicKeyHex())
	assert.Equal(t, hex.Enc(other.Pub()), s.Identity().PublicKeyHex())
	// a failed login leaves nobody logged in
	assert.Error(t, s.AuthenticateLocalKey("nope"))
	assert.Equal(t, Unauthenticated, s.State())
}

func TestDelegated(t *testing.T) {
	keys := &p256k.Signer{}
	require.NoError(t, keys.Generate())
	s := New(func(context.T) (sign.Capability, error) { return &capability{keys}, nil })
	require.NoError(t, s.AuthenticateDelegated(context.Bg()))
	assert.Equal(t, Authenticated, s.State())
	assert.Equal(t, sign.Delegated, s.Identity().Mode)
	assert.Equal(t, keys.Pub(), s.Identity().PublicKey)
	ev := note()
	require.NoError(t, s.Sign(context.Bg(), ev))
	ok, err := ev.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDelegatedNotFound(t *testing.T) {
	for name, probe := range map[string]sign.Probe{
		"no probe": nil,
		"nil":      func(context.T) (sign.Capability, error) { return nil, nil },
		"error": func(context.T) (sign.Capability, error) {
			return nil, errors.New("no extension")
		},
	} {
		s := New(probe)
		assert.ErrorIs(t, s.AuthenticateDelegated(context.Bg()), ErrCapabilityNotFound, name)
		assert.Equal(t, Unauthenticated, s.State(), name)
	}
}

func TestBusy(t *testing.T) {
	keys := &p256k.Signer{}
	require.NoError(t, keys.Generate())
	entered, release := make(chan struct{}), make(chan struct{})
	s := New(func(context.T) (sign.Capability, error) {
		close(entered)
		<-release
		return &capability{keys}, nil
	})
	done := make(chan error, 1)
	go func() { done <- s.AuthenticateDelegated(context.Bg()) }()
	<-entered
	assert.Equal(t, Authenticating, s.State())
	assert.ErrorIs(t, s.AuthenticateLocalKey(secHex), ErrBusy)
	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("login never finished")
	}
	assert.Equal(t, sign.Delegated, s.Identity().Mode)
}

func TestDisconnectInterrupts(t *testing.T) {
	keys := &p256k.Signer{}
	require.NoError(t, keys.Generate())
	entered, release := make(chan struct{}), make(chan struct{})
	s := New(func(context.T) (sign.Capability, error) {
		close(entered)
		<-release
		return &capability{keys}, nil
	})
	done := make(chan error, 1)
	go func() { done <- s.AuthenticateDelegated(context.Bg()) }()
	<-entered
	s.Disconnect()
	close(release)
	assert.ErrorIs(t, <-done, ErrInterrupted)
	assert.Equal(t, Unauthenticated, s.State())
	assert.Nil(t, s.Provider())
}
