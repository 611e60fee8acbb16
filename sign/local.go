package sign

import (
	"longform.lol/context"
	"longform.lol/errorf"
	"longform.lol/event"
	"longform.lol/signer"
)

// Local signs with a secret key held in process.
type Local struct {
	keys signer.I
}

var _ Provider = (*Local)(nil)

// NewLocal wraps an initialised signer.
func NewLocal(keys signer.I) (l *Local, err error) {
	if keys == nil || len(keys.Pub()) != 32 || len(keys.Sec()) != 32 {
		return nil, errorf.D("%w: signer has no key pair", signer.ErrInvalidKey)
	}
	return &Local{keys: keys}, nil
}

func (l *Local) Mode() Mode { return LocalKey }

func (l *Local) PublicKey() []byte { return l.keys.Pub() }

// Sign is synchronous, the context is not consulted.
func (l *Local) Sign(_ context.T, ev *event.T) (err error) { return ev.Sign(l.keys) }

// Zero wipes the secret key.
func (l *Local) Zero() { l.keys.Zero() }
