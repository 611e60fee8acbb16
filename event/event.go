// Package event is the nostr event, its canonical encoding, its JSON wire form
// and its signature.
package event

import (
	"bytes"
	"errors"

	"longform.lol/hex"
	"longform.lol/kind"
	"longform.lol/sha256"
	"longform.lol/tags"
	"longform.lol/timestamp"
)

// ErrAlreadySigned is returned when signing an event that already carries an
// ID. Events are immutable once identified, a new event must be built instead.
var ErrAlreadySigned = errors.New("event already has an id")

// T is the primary datatype of nostr.
type T struct {
	// ID is the SHA256 hash of the canonical encoding of the event.
	ID []byte
	// PubKey is the x-only public key of the event creator.
	PubKey []byte
	// CreatedAt is the UNIX timestamp of the event according to the event
	// creator.
	CreatedAt *timestamp.T
	// Kind is the nostr protocol code for the type of event.
	Kind *kind.T
	// Tags are a list of tags, the order is part of the ID.
	Tags *tags.T
	// Content is an arbitrary string, usually interpreted according to Kind and
	// Tags.
	Content []byte
	// Sig is the BIP-340 signature on the ID by PubKey.
	Sig []byte
}

type C chan *T

func New() (ev *T) { return &T{} }

func (ev *T) IDString() (s string)      { return hex.Enc(ev.ID) }
func (ev *T) PubKeyString() (s string)  { return hex.Enc(ev.PubKey) }
func (ev *T) SigString() (s string)     { return hex.Enc(ev.Sig) }
func (ev *T) ContentString() (s string) { return string(ev.Content) }

// Clone returns a deep copy of the event.
func (ev *T) Clone() (c *T) {
	c = &T{
		ID:      bytes.Clone(ev.ID),
		PubKey:  bytes.Clone(ev.PubKey),
		Tags:    ev.Tags.Clone(),
		Content: bytes.Clone(ev.Content),
		Sig:     bytes.Clone(ev.Sig),
	}
	if ev.CreatedAt != nil {
		c.CreatedAt = timestamp.FromUnix(ev.CreatedAt.I64())
	}
	if ev.Kind != nil {
		c.Kind = kind.New(ev.Kind.K)
	}
	return
}

// Unsigned returns a copy of the event without ID and signature, the form a
// signer receives.
func (ev *T) Unsigned() (c *T) {
	c = ev.Clone()
	c.ID, c.Sig = nil, nil
	return
}

func Hash(in []byte) (out []byte) {
	h := sha256.Sum256(in)
	return h[:]
}
