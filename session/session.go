// Package session holds who is logged in and how they sign.
//
// A session starts Unauthenticated, passes through Authenticating while a
// login is in progress and ends up Authenticated with exactly one signing
// provider, or back at Unauthenticated if the login failed.
package session

import (
	"errors"
	"sync"

	"longform.lol/bech32encoding"
	"longform.lol/context"
	"longform.lol/errorf"
	"longform.lol/event"
	"longform.lol/hex"
	"longform.lol/keys"
	"longform.lol/log"
	"longform.lol/sign"
)

var (
	// ErrCapabilityNotFound is a delegated login with no external signer to
	// delegate to.
	ErrCapabilityNotFound = errors.New("no external signer found")
	// ErrBusy is a login attempted while another is still running.
	ErrBusy = errors.New("authentication already in progress")
	// ErrInterrupted is a login that lost to a Disconnect.
	ErrInterrupted = errors.New("disconnected during authentication")
)

type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return "unauthenticated"
}

// Identity is the logged in public key and how it signs.
type Identity struct {
	PublicKey []byte
	Mode      sign.Mode
	secret    []byte
}

func (id *Identity) PublicKeyHex() string { return hex.Enc(id.PublicKey) }

// Npub is the bech32 form of the public key.
func (id *Identity) Npub() (string, error) {
	return bech32encoding.BinToNpub(id.PublicKey)
}

func (id *Identity) zero() {
	clear(id.secret)
	id.secret = nil
}

// T is one session. The zero value has no probe, so only local key logins
// work with it.
type T struct {
	mx         sync.Mutex
	state      State
	generation uint64
	identity   *Identity
	provider   sign.Provider
	probe      sign.Probe
}

// New creates a session that looks for an external signer with probe.
func New(probe sign.Probe) *T { return &T{probe: probe} }

func (s *T) State() State {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.state
}

// Identity is a copy of the current identity without its secret, nil unless
// Authenticated.
func (s *T) Identity() *Identity {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.identity == nil {
		return nil
	}
	return &Identity{
		PublicKey: append([]byte(nil), s.identity.PublicKey...),
		Mode:      s.identity.Mode,
	}
}

// Provider is the bound signing provider, nil unless Authenticated.
func (s *T) Provider() sign.Provider {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.provider
}

// begin moves to Authenticating, dropping any current identity.
func (s *T) begin() (gen uint64, err error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.state == Authenticating {
		return 0, ErrBusy
	}
	s.dropLocked()
	s.state = Authenticating
	s.generation++
	return s.generation, nil
}

func (s *T) finish(gen uint64, id *Identity, p sign.Provider) (err error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if gen != s.generation {
		id.zero()
		if l, ok := p.(*sign.Local); ok {
			l.Zero()
		}
		return ErrInterrupted
	}
	s.identity, s.provider, s.state = id, p, Authenticated
	log.D.F("authenticated %s with %s", id.PublicKeyHex(), id.Mode)
	return
}

func (s *T) fail(gen uint64) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if gen == s.generation {
		s.state = Unauthenticated
	}
}

// AuthenticateDelegated binds the external signer found by the probe.
func (s *T) AuthenticateDelegated(c context.T) (err error) {
	var gen uint64
	if gen, err = s.begin(); err != nil {
		return
	}
	defer func() {
		if err != nil {
			s.fail(gen)
		}
	}()
	if s.probe == nil {
		return errorf.D("%w: no probe configured", ErrCapabilityNotFound)
	}
	var capability sign.Capability
	if capability, err = s.probe(c); err != nil {
		return errorf.D("%w: %w", ErrCapabilityNotFound, err)
	}
	if capability == nil {
		return ErrCapabilityNotFound
	}
	var remote *sign.Remote
	if remote, err = sign.NewRemote(c, capability); err != nil {
		return errorf.D("%w: %w", ErrCapabilityNotFound, err)
	}
	return s.finish(gen, &Identity{PublicKey: remote.PublicKey(), Mode: sign.Delegated}, remote)
}

// AuthenticateLocalKey binds a secret key given as hex or nsec. A malformed
// key fails with signer.ErrInvalidKey.
func (s *T) AuthenticateLocalKey(secret string) (err error) {
	var gen uint64
	if gen, err = s.begin(); err != nil {
		return
	}
	defer func() {
		if err != nil {
			s.fail(gen)
		}
	}()
	k, err := keys.ParseSecret(secret)
	if err != nil {
		return
	}
	var local *sign.Local
	if local, err = sign.NewLocal(k); err != nil {
		return
	}
	id := &Identity{
		PublicKey: append([]byte(nil), k.Pub()...),
		Mode:      sign.LocalKey,
		secret:    k.Sec(),
	}
	return s.finish(gen, id, local)
}

func (s *T) dropLocked() {
	if l, ok := s.provider.(*sign.Local); ok {
		l.Zero()
	}
	if s.identity != nil {
		s.identity.zero()
	}
	s.identity, s.provider = nil, nil
}

// Disconnect forgets the identity, zeroing a local secret key, and interrupts
// a login in progress. It always ends Unauthenticated.
func (s *T) Disconnect() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.dropLocked()
	s.generation++
	s.state = Unauthenticated
}

// Sign signs ev as the current identity.
func (s *T) Sign(c context.T, ev *event.T) (err error) {
	p := s.Provider()
	if p == nil {
		return sign.ErrNotAuthenticated
	}
	return p.Sign(c, ev)
}
