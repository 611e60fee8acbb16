// Package hex is a set of aliases and helpers for lowercase hexadecimal,
// using the SIMD accelerated xhex encoder for the hot paths (event IDs,
// pubkeys and signatures are encoded on every marshal).
package hex

import (
	"encoding/hex"

	"github.com/templexxx/xhex"

	"longform.lol/chk"
	"longform.lol/errorf"
)

var (
	Enc      = hex.EncodeToString
	EncBytes = hex.Encode
	Dec      = hex.DecodeString
	DecBytes = hex.Decode
	DecLen   = hex.DecodedLen
)

type InvalidByteError = hex.InvalidByteError

// EncAppend appends the lowercase hex of src to dst.
func EncAppend(dst, src []byte) (b []byte) {
	l := len(dst)
	dst = append(dst, make([]byte, len(src)*2)...)
	xhex.Encode(dst[l:], src)
	return dst
}

// DecAppend appends the bytes decoded from the hex in src to dst.
func DecAppend(dst, src []byte) (b []byte, err error) {
	if len(src)%2 != 0 {
		err = errorf.D("odd length hex string: %d", len(src))
		return
	}
	l := len(dst)
	b = append(dst, make([]byte, len(src)/2)...)
	if err = xhex.Decode(b[l:], src); chk.D(err) {
		return
	}
	return
}

// DecFixed decodes s and requires it to be exactly n bytes long and in
// lowercase.
func DecFixed(s string, n int) (b []byte, err error) {
	if len(s) != n*2 {
		err = errorf.D("hex string must be %d characters, got %d", n*2, len(s))
		return
	}
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'F' {
			err = errorf.D("hex string must be lowercase")
			return
		}
	}
	return DecAppend(nil, []byte(s))
}
