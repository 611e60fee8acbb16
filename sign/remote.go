package sign

import (
	"bytes"

	"longform.lol/chk"
	"longform.lol/context"
	"longform.lol/errorf"
	"longform.lol/event"
	"longform.lol/p256k"
	"longform.lol/signer"
	"longform.lol/timestamp"
)

// Remote signs through a Capability. Every event it returns is checked
// against the request before it is accepted.
type Remote struct {
	capability Capability
	pub        []byte
}

var _ Provider = (*Remote)(nil)

// NewRemote asks the capability for its public key.
func NewRemote(c context.T, capability Capability) (r *Remote, err error) {
	if capability == nil {
		return nil, errorf.D("no signing capability")
	}
	var pub []byte
	if pub, err = capability.GetPublicKey(c); chk.D(err) {
		return
	}
	v := &p256k.Signer{}
	if err = v.InitPub(pub); err != nil {
		return nil, errorf.D("signing capability returned a bad public key: %w", err)
	}
	return &Remote{capability: capability, pub: v.Pub()}, nil
}

func (r *Remote) Mode() Mode { return Delegated }

func (r *Remote) PublicKey() []byte { return r.pub }

func (r *Remote) Sign(c context.T, ev *event.T) (err error) {
	if len(ev.ID) != 0 {
		return event.ErrAlreadySigned
	}
	if ev.CreatedAt == nil {
		ev.CreatedAt = timestamp.Now()
	}
	req := ev.Unsigned()
	req.PubKey = r.pub
	var want []byte
	if want, err = req.ComputeID(); err != nil {
		return
	}
	var signed *event.T
	if signed, err = r.capability.SignEvent(c, req); err != nil {
		return errorf.E("%w: %v", ErrSigningUnavailable, err)
	}
	if signed == nil {
		return errorf.E("%w: signer returned nothing", ErrSigningUnavailable)
	}
	if !bytes.Equal(signed.PubKey, r.pub) {
		return errorf.E("%w: signed by %0x, identity is %0x", ErrSigningUnavailable, signed.PubKey, r.pub)
	}
	if !bytes.Equal(signed.ID, want) {
		return errorf.E("%w: signed event id %0x is not the hash of the request %0x",
			ErrSigningUnavailable, signed.ID, want)
	}
	v := &p256k.Signer{}
	if err = v.InitPub(r.pub); err != nil {
		return errorf.E("%w: %v", signer.ErrInvalidKey, err)
	}
	var valid bool
	if valid, err = v.Verify(want, signed.Sig); err != nil || !valid {
		return errorf.E("%w: signature does not verify", ErrSigningUnavailable)
	}
	ev.PubKey, ev.ID, ev.Sig = r.pub, want, signed.Sig
	return nil
}
