package event

import (
	"bytes"

	"longform.lol/chk"
	"longform.lol/errorf"
	"longform.lol/p256k"
	"longform.lol/signer"
)

// Sign populates PubKey, ID and Sig from the signer. The caller sets every
// other field first. An event that already has an ID is not signed again.
func (ev *T) Sign(keys signer.I) (err error) {
	if len(ev.ID) != 0 {
		return ErrAlreadySigned
	}
	pub := keys.Pub()
	ev.PubKey = pub
	var id []byte
	if id, err = ev.ComputeID(); chk.E(err) {
		ev.PubKey = nil
		return
	}
	var sig []byte
	if sig, err = keys.Sign(id); chk.E(err) {
		ev.PubKey = nil
		return
	}
	ev.ID, ev.Sig = id, sig
	return
}

// Verify checks the ID is the hash of the canonical form and that the
// signature over it is valid for PubKey.
func (ev *T) Verify() (valid bool, err error) {
	var id []byte
	if id, err = ev.ComputeID(); err != nil {
		return
	}
	if !bytes.Equal(id, ev.ID) {
		err = errorf.D("event id %0x does not match content hash %0x", ev.ID, id)
		return
	}
	keys := &p256k.Signer{}
	if err = keys.InitPub(ev.PubKey); err != nil {
		return
	}
	return keys.Verify(ev.ID, ev.Sig)
}
