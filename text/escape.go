// Package text holds the string escaping used by the canonical event
// encoding.
package text

import (
	"errors"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when a string that must be serialized
// canonically is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

const hexDigits = "0123456789abcdef"

// NostrEscape appends src to dst escaped for a JSON string according to
// NIP-01:
//
//	No whitespace, line breaks or other unnecessary formatting should be
//	included in the output JSON. No characters except the following should be
//	escaped, and instead should be included verbatim:
//
//	- A line break, 0x0A, as \n
//	- A double quote, 0x22, as \"
//	- A backslash, 0x5C, as \\
//	- A carriage return, 0x0D, as \r
//	- A tab character, 0x09, as \t
//	- A backspace, 0x08, as \b
//	- A form feed, 0x0C, as \f
//
// The remaining control characters below 0x20 cannot appear raw in JSON, they
// are written as \u00XX, which is what a JSON.stringify based client produces
// for the same event.
func NostrEscape(dst, src []byte) []byte {
	for _, c := range src {
		switch c {
		case '"':
			dst = append(dst, '\\', '"')
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\t':
			dst = append(dst, '\\', 't')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\f':
			dst = append(dst, '\\', 'f')
		case '\r':
			dst = append(dst, '\\', 'r')
		default:
			if c < 0x20 {
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			} else {
				dst = append(dst, c)
			}
		}
	}
	return dst
}

// AppendQuote appends src escaped by the escaping function and wrapped in
// double quotes.
func AppendQuote(dst, src []byte, escape func(dst, src []byte) []byte) []byte {
	dst = append(dst, '"')
	dst = escape(dst, src)
	return append(dst, '"')
}

// AppendCanonical quotes and escapes src after checking it is valid UTF-8.
func AppendCanonical(dst, src []byte) (b []byte, err error) {
	if !utf8.Valid(src) {
		return dst, ErrInvalidUTF8
	}
	return AppendQuote(dst, src, NostrEscape), nil
}
