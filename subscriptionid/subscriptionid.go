// Package subscriptionid is the label a client gives a REQ so the relay can tag
// the events and EOSE it sends back.
package subscriptionid

import (
	"github.com/btcsuite/btcd/btcutil/bech32"
	"lukechampine.com/frand"

	"longform.lol/chk"
	"longform.lol/errorf"
)

type T struct {
	T string
}

func (si *T) String() string { return si.T }

// IsValid returns true if the subscription id is between 1 and 64 characters.
func (si *T) IsValid() bool { return len(si.T) <= 64 && len(si.T) > 0 }

// New checks s and converts it to a T.
func New(s string) (si *T, err error) {
	si = &T{T: s}
	if !si.IsValid() {
		return nil, errorf.E("invalid subscription ID - length %d < 1 or > 64", len(s))
	}
	return
}

// MustNew is the same as New except it doesn't check if you feed it rubbish.
func MustNew(s string) *T { return &T{T: s} }

const (
	StdLen = 14
	StdHRP = "su"
)

// NewStd creates a random id, bech32 encoded so it is easy to pick out of logs.
func NewStd() (t *T) {
	src := frand.Bytes(StdLen)
	bits5, err := bech32.ConvertBits(src, 8, 5, true)
	if chk.E(err) {
		return &T{T: string(src)}
	}
	var dst string
	if dst, err = bech32.Encode(StdHRP, bits5); chk.E(err) {
		return &T{T: string(src)}
	}
	return &T{T: dst}
}
