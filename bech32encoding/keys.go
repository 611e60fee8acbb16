// Package bech32encoding converts nostr keys between raw or hex form and the
// NIP-19 bech32 npub and nsec identifiers.
package bech32encoding

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"longform.lol/chk"
	"longform.lol/errorf"
	"longform.lol/hex"
)

// ErrMalformedIdentifier is returned for any string that is not a well formed
// identifier of the expected type.
var ErrMalformedIdentifier = errors.New("malformed identifier")

const (
	// MinKeyStringLen is 56 because Bech32 needs 52 characters plus 4 for the
	// HRP, any string shorter than this cannot be a nostr key.
	MinKeyStringLen = 56
	HexKeyLen       = 64
	KeyLen          = 32
)

const (
	SecHRP = "nsec"
	PubHRP = "npub"
)

// ConvertForBech32 performs the bit expansion required for encoding into
// Bech32.
func ConvertForBech32(b8 []byte) (b5 []byte, err error) { return bech32.ConvertBits(b8, 8, 5, true) }

// ConvertFromBech32 collapses together the bit expanded 5 bit numbers encoded
// in bech32. Non-zero padding is rejected.
func ConvertFromBech32(b5 []byte) (b8 []byte, err error) { return bech32.ConvertBits(b5, 5, 8, false) }

// Encode writes a 32 byte key under the given human readable part.
func Encode(hrp string, key []byte) (s string, err error) {
	if len(key) != KeyLen {
		return "", errorf.D("%w: key must be %d bytes, got %d", ErrMalformedIdentifier, KeyLen, len(key))
	}
	var b5 []byte
	if b5, err = ConvertForBech32(key); chk.E(err) {
		return
	}
	return bech32.Encode(hrp, b5)
}

// Decode reads a 32 byte key that must carry the given human readable part.
func Decode(hrp, s string) (key []byte, err error) {
	if len(s) < MinKeyStringLen {
		return nil, errorf.D("%w: %q is too short", ErrMalformedIdentifier, s)
	}
	var got string
	var b5 []byte
	if got, b5, err = bech32.Decode(s); err != nil {
		return nil, errorf.D("%w: %v", ErrMalformedIdentifier, err)
	}
	if got != hrp {
		return nil, errorf.D("%w: wrong human readable part, got '%s' want '%s'",
			ErrMalformedIdentifier, got, hrp)
	}
	if key, err = ConvertFromBech32(b5); err != nil {
		return nil, errorf.D("%w: %v", ErrMalformedIdentifier, err)
	}
	if len(key) != KeyLen {
		return nil, errorf.D("%w: decoded %d bytes, want %d", ErrMalformedIdentifier, len(key), KeyLen)
	}
	return
}

// EncodeIdentity renders a hex public key as an npub.
func EncodeIdentity(pubHex string) (npub string, err error) {
	var pub []byte
	if pub, err = hex.DecFixed(pubHex, KeyLen); err != nil {
		return "", errorf.D("%w: %v", ErrMalformedIdentifier, err)
	}
	return Encode(PubHRP, pub)
}

// DecodeIdentity reverses EncodeIdentity.
func DecodeIdentity(npub string) (pubHex string, err error) {
	var pub []byte
	if pub, err = Decode(PubHRP, npub); err != nil {
		return
	}
	return hex.Enc(pub), nil
}

// BinToNpub encodes a raw x-only public key as an npub.
func BinToNpub(pub []byte) (string, error) { return Encode(PubHRP, pub) }

// NpubToBin decodes an npub into the raw public key.
func NpubToBin(npub string) ([]byte, error) { return Decode(PubHRP, npub) }

// BinToNsec encodes a raw secret key as an nsec.
func BinToNsec(sec []byte) (string, error) { return Encode(SecHRP, sec) }

// NsecToBin decodes an nsec into the raw secret key.
func NsecToBin(nsec string) ([]byte, error) { return Decode(SecHRP, nsec) }
