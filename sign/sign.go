// Package sign turns unsigned events into signed ones, either with a secret
// key held in memory or by asking an external signer that never reveals its
// key.
package sign

import (
	"errors"

	"longform.lol/context"
	"longform.lol/event"
)

var (
	// ErrNotAuthenticated is returned when signing is requested without an
	// identity.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSigningUnavailable is returned when the external signer declines,
	// fails, or returns something that is not a valid signature of the
	// requested event.
	ErrSigningUnavailable = errors.New("signing unavailable")
)

// Mode is how the identity signs.
type Mode int

const (
	None Mode = iota
	LocalKey
	Delegated
)

func (m Mode) String() string {
	switch m {
	case LocalKey:
		return "local-key"
	case Delegated:
		return "delegated"
	}
	return "none"
}

// Provider signs events for one identity.
type Provider interface {
	Mode() Mode
	// PublicKey is the x-only public key events are signed with.
	PublicKey() []byte
	// Sign fills PubKey, ID and Sig of an event that has no ID yet.
	Sign(c context.T, ev *event.T) (err error)
}

// Capability is an external signer. It holds the secret key and hands back
// signed copies of the events it is given.
type Capability interface {
	GetPublicKey(c context.T) (pub []byte, err error)
	SignEvent(c context.T, unsigned *event.T) (signed *event.T, err error)
}

// Probe looks for an external signer, returning a nil Capability or an error
// when there is none.
type Probe func(c context.T) (Capability, error)
