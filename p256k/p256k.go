// Package p256k implements signer.I with the btcec library for BIP-340
// signatures and ECDH on secp256k1.
package p256k

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"longform.lol/chk"
	"longform.lol/errorf"
	"longform.lol/signer"
)

// Signer is an implementation of signer.I that uses the btcec library.
type Signer struct {
	SecretKey *btcec.PrivateKey
	PublicKey *btcec.PublicKey
	pkb, skb  []byte
}

var _ signer.I = &Signer{}

// Generate creates a new key pair.
func (s *Signer) Generate() (err error) {
	if s.SecretKey, err = btcec.NewPrivateKey(); chk.E(err) {
		return
	}
	s.skb = s.SecretKey.Serialize()
	s.PublicKey = s.SecretKey.PubKey()
	s.pkb = schnorr.SerializePubKey(s.PublicKey)
	return
}

// InitSec initialises a Signer using raw secret key bytes. The key must be 32
// bytes and within [1, n-1].
func (s *Signer) InitSec(sec []byte) (err error) {
	if len(sec) != btcec.PrivKeyBytesLen {
		return errorf.D("%w: secret key must be %d bytes, got %d",
			signer.ErrInvalidKey, btcec.PrivKeyBytesLen, len(sec))
	}
	var k btcec.ModNScalar
	if overflow := k.SetByteSlice(sec); overflow || k.IsZero() {
		return errorf.D("%w: secret key out of range", signer.ErrInvalidKey)
	}
	s.SecretKey = btcec.PrivKeyFromScalar(&k)
	s.skb = s.SecretKey.Serialize()
	s.PublicKey = s.SecretKey.PubKey()
	s.pkb = schnorr.SerializePubKey(s.PublicKey)
	return
}

// InitPub initializes a signature verifier Signer from raw public key bytes.
func (s *Signer) InitPub(pub []byte) (err error) {
	if s.PublicKey, err = schnorr.ParsePubKey(pub); err != nil {
		return errorf.D("%w: %v", signer.ErrInvalidKey, err)
	}
	s.pkb = schnorr.SerializePubKey(s.PublicKey)
	return
}

// Sec returns the raw secret key bytes.
func (s *Signer) Sec() (b []byte) { return s.skb }

// Pub returns the raw BIP-340 schnorr public key bytes.
func (s *Signer) Pub() (b []byte) { return s.pkb }

// Sign a message with the Signer. Requires an initialised secret key.
func (s *Signer) Sign(msg []byte) (sig []byte, err error) {
	if s.SecretKey == nil {
		err = errorf.E("p256k: Signer not initialized")
		return
	}
	var si *schnorr.Signature
	if si, err = schnorr.Sign(s.SecretKey, msg); chk.E(err) {
		return
	}
	sig = si.Serialize()
	return
}

// Verify a message signature, only requires the public key is initialised.
func (s *Signer) Verify(msg, sig []byte) (valid bool, err error) {
	if s.PublicKey == nil {
		err = errorf.E("p256k: pubkey not initialized")
		return
	}
	var si *schnorr.Signature
	if si, err = schnorr.ParseSignature(sig); err != nil {
		err = errorf.D("failed to parse signature of %d bytes: %w", len(sig), err)
		return
	}
	valid = si.Verify(msg, s.PublicKey)
	return
}

// Zero wipes the bytes of the secret key.
func (s *Signer) Zero() {
	if s.SecretKey != nil {
		s.SecretKey.Zero()
	}
	clear(s.skb)
}

// ECDH creates a shared secret from the secret key and a provided x-only
// public key. The result is the unhashed x coordinate.
func (s *Signer) ECDH(pub []byte) (secret []byte, err error) {
	if s.SecretKey == nil {
		err = errorf.E("p256k: Signer not initialized")
		return
	}
	var pk *btcec.PublicKey
	if pk, err = btcec.ParsePubKey(append([]byte{0x02}, pub...)); err != nil {
		return nil, errorf.D("%w: %v", signer.ErrInvalidKey, err)
	}
	secret = btcec.GenerateSharedSecret(s.SecretKey, pk)
	return
}
