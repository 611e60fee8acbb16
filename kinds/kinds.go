// Package kinds is a list of kind numbers as used in a filter.
package kinds

import (
	"encoding/json"

	"golang.org/x/exp/constraints"

	"longform.lol/kind"
)

// T is an array of kind.T, used in filter.T.
type T struct {
	K []*kind.T
}

// New creates a new kinds.T, if no parameter is given it just creates an empty
// zero kinds.T.
func New(k ...*kind.T) *T { return &T{k} }

// NewWithCap creates a new empty kinds.T with a given slice capacity.
func NewWithCap[V constraints.Integer](c V) *T { return &T{make([]*kind.T, 0, c)} }

// FromIntSlice converts a []int into a kinds.T.
func FromIntSlice(is []int) (k *T) {
	k = NewWithCap(len(is))
	for i := range is {
		k.K = append(k.K, kind.New(is[i]))
	}
	return
}

func (k *T) Len() (l int) {
	if k == nil {
		return
	}
	return len(k.K)
}

// Contains returns true if the provided element is found in the kinds.T.
func (k *T) Contains(s *kind.T) bool {
	if k == nil {
		return false
	}
	for i := range k.K {
		if k.K[i].Equal(s) {
			return true
		}
	}
	return false
}

// Append renders the kinds.T as a JSON array of integers.
func (k *T) Append(dst []byte) (b []byte) {
	b = append(dst, '[')
	for i := range k.K {
		if i > 0 {
			b = append(b, ',')
		}
		b = k.K[i].Append(b)
	}
	return append(b, ']')
}

func (k *T) MarshalJSON() ([]byte, error) { return k.Append(nil), nil }

func (k *T) UnmarshalJSON(b []byte) (err error) {
	var n []uint16
	if err = json.Unmarshal(b, &n); err != nil {
		return
	}
	k.K = make([]*kind.T, len(n))
	for i := range n {
		k.K[i] = kind.New(n[i])
	}
	return
}
