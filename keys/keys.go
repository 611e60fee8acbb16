// Package keys has helpers for turning user supplied secret key strings into
// signers.
package keys

import (
	"strings"

	"longform.lol/bech32encoding"
	"longform.lol/chk"
	"longform.lol/errorf"
	"longform.lol/hex"
	"longform.lol/p256k"
	"longform.lol/signer"
)

// GenerateSecretKeyHex creates a new random secret key in hex.
func GenerateSecretKeyHex() (sks string) {
	s := &p256k.Signer{}
	if err := s.Generate(); chk.E(err) {
		return
	}
	sks = hex.Enc(s.Sec())
	s.Zero()
	return
}

// GetPublicKeyHex derives the hex public key of a hex secret key.
func GetPublicKeyHex(sk string) (pk string, err error) {
	var s *p256k.Signer
	if s, err = ParseSecret(sk); err != nil {
		return
	}
	pk = hex.Enc(s.Pub())
	s.Zero()
	return
}

// ParseSecret accepts a secret key as 64 characters of hex or as an nsec,
// surrounding whitespace ignored, and returns an initialised signer. Anything
// else fails with signer.ErrInvalidKey.
func ParseSecret(secret string) (s *p256k.Signer, err error) {
	secret = strings.TrimSpace(secret)
	var sec []byte
	switch {
	case secret == "":
		return nil, errorf.D("%w: empty secret key", signer.ErrInvalidKey)
	case strings.HasPrefix(secret, bech32encoding.SecHRP+"1"):
		if sec, err = bech32encoding.NsecToBin(secret); err != nil {
			return nil, errorf.D("%w: %v", signer.ErrInvalidKey, err)
		}
	default:
		if sec, err = hex.DecFixed(strings.ToLower(secret), 32); err != nil {
			return nil, errorf.D("%w: %v", signer.ErrInvalidKey, err)
		}
	}
	s = &p256k.Signer{}
	err = s.InitSec(sec)
	clear(sec)
	if err != nil {
		return nil, err
	}
	return
}

// IsValid32ByteHex reports whether pk is 64 characters of lowercase hex.
func IsValid32ByteHex(pk string) bool {
	_, err := hex.DecFixed(pk, 32)
	return err == nil
}
