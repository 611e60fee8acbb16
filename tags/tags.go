// Package tags is the ordered list of tags carried by an event or used as
// constraints in a filter.
package tags

import (
	"bytes"
	"encoding/json"

	"longform.lol/tag"
)

// T is a list of tag.T, the order is significant to the event id.
type T struct {
	t []*tag.T
}

// New creates a tags.T from the given tags.
func New(t ...*tag.T) *T { return &T{t} }

// NewWithCap creates a new empty tags.T.
func NewWithCap(c int) *T { return &T{make([]*tag.T, 0, c)} }

func (t *T) Len() int {
	if t == nil {
		return 0
	}
	return len(t.t)
}

// Append adds tags at the end of the list.
func (t *T) Append(tt ...*tag.T) *T {
	if t == nil {
		t = &T{}
	}
	t.t = append(t.t, tt...)
	return t
}

// AppendTags adds every tag of the given lists.
func (t *T) AppendTags(lists ...*T) *T {
	for _, l := range lists {
		if l != nil {
			t = t.Append(l.t...)
		}
	}
	return t
}

// ToSlice returns the underlying slice.
func (t *T) ToSlice() []*tag.T {
	if t == nil {
		return nil
	}
	return t.t
}

// N returns the tag at position i or nil.
func (t *T) N(i int) *tag.T {
	if i < 0 || i >= t.Len() {
		return nil
	}
	return t.t[i]
}

// GetFirst returns the first tag whose key matches, or nil.
func (t *T) GetFirst(key []byte) *tag.T {
	for _, tt := range t.ToSlice() {
		if bytes.Equal(tt.Key(), key) {
			return tt
		}
	}
	return nil
}

// GetAll returns every tag whose key matches.
func (t *T) GetAll(key []byte) (all *T) {
	all = NewWithCap(0)
	for _, tt := range t.ToSlice() {
		if bytes.Equal(tt.Key(), key) {
			all.t = append(all.t, tt)
		}
	}
	return
}

// ContainsAny reports whether a tag with the key has one of the values in its
// value position.
func (t *T) ContainsAny(key []byte, values ...[]byte) bool {
	for _, tt := range t.ToSlice() {
		if tt.Len() < 2 || !bytes.Equal(tt.Key(), key) {
			continue
		}
		for _, v := range values {
			if bytes.Equal(tt.Value(), v) {
				return true
			}
		}
	}
	return false
}

// Clone makes a deep copy.
func (t *T) Clone() (c *T) {
	if t == nil {
		return
	}
	c = NewWithCap(t.Len())
	for _, tt := range t.t {
		c.t = append(c.t, tt.Clone())
	}
	return
}

func (t *T) Equal(t2 *T) bool {
	if t.Len() != t2.Len() {
		return false
	}
	for i := range t.t {
		if !t.t[i].Equal(t2.t[i]) {
			return false
		}
	}
	return true
}

// ToStringsSlice returns the tags as a [][]string.
func (t *T) ToStringsSlice() (s [][]string) {
	s = make([][]string, t.Len())
	for i := range s {
		s[i] = t.t[i].ToStrings()
	}
	return
}

// AppendCanonical writes the tags as a JSON array of arrays, escaped the way
// the event id hash requires.
func (t *T) AppendCanonical(dst []byte) (b []byte, err error) {
	b = append(dst, '[')
	for i, tt := range t.ToSlice() {
		if i > 0 {
			b = append(b, ',')
		}
		if b, err = tt.AppendCanonical(b); err != nil {
			return
		}
	}
	b = append(b, ']')
	return
}

func (t *T) MarshalJSON() ([]byte, error) { return t.AppendCanonical(nil) }

func (t *T) UnmarshalJSON(b []byte) (err error) {
	var s [][]string
	if err = json.Unmarshal(b, &s); err != nil {
		return
	}
	t.t = make([]*tag.T, len(s))
	for i := range s {
		t.t[i] = tag.New(s[i]...)
	}
	return
}
