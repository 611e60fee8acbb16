// Package tag provides an implementation of a nostr tag, an array of strings
// with a usually single letter first "key" field.
package tag

import (
	"bytes"
	"encoding/json"

	"golang.org/x/exp/constraints"

	"longform.lol/text"
)

// The tag position meanings, so they are clear when reading.
const (
	Key = iota
	Value
	Relay
)

// T is a list of strings with a literal ordering.
//
// Not a set, there can be repeating elements.
type T struct {
	field [][]byte
}

// New creates a new tag.T from a variadic parameter that can be either string
// or byte slice.
func New[V string | []byte](fields ...V) (t *T) {
	t = &T{field: make([][]byte, len(fields))}
	for i, field := range fields {
		t.field[i] = []byte(field)
	}
	return
}

// NewWithCap creates a new empty tag.T with a pre-allocated capacity for some
// number of fields.
func NewWithCap[V constraints.Integer](c V) *T { return &T{make([][]byte, 0, c)} }

// S returns a field of a tag.T as a string, empty if it is out of range.
func (t *T) S(i int) (s string) {
	if t.Len() <= i {
		return
	}
	return string(t.field[i])
}

// B returns a field of a tag.T as a byte slice.
func (t *T) B(i int) (b []byte) {
	if t.Len() <= i {
		return
	}
	return t.field[i]
}

func (t *T) Len() int {
	if t == nil {
		return 0
	}
	return len(t.field)
}

// Key returns the first field.
func (t *T) Key() []byte { return t.B(Key) }

// Value returns the second field.
func (t *T) Value() []byte { return t.B(Value) }

// Append adds fields to the tag.
func (t *T) Append(b ...[]byte) *T {
	if t == nil {
		t = &T{}
	}
	t.field = append(t.field, b...)
	return t
}

// Clone makes a deep copy.
func (t *T) Clone() (c *T) {
	if t == nil {
		return
	}
	c = &T{field: make([][]byte, len(t.field))}
	for i, f := range t.field {
		c.field[i] = bytes.Clone(f)
	}
	return
}

// Equal compares every field.
func (t *T) Equal(t2 *T) bool {
	if t.Len() != t2.Len() {
		return false
	}
	for i := range t.field {
		if !bytes.Equal(t.field[i], t2.field[i]) {
			return false
		}
	}
	return true
}

// ToStrings returns the fields as strings.
func (t *T) ToStrings() (s []string) {
	s = make([]string, t.Len())
	for i := range s {
		s[i] = string(t.field[i])
	}
	return
}

// AppendCanonical writes the tag as a JSON array of strings escaped the way
// the event id hash requires. Each field must be valid UTF-8.
func (t *T) AppendCanonical(dst []byte) (b []byte, err error) {
	b = append(dst, '[')
	for i := range t.Len() {
		if i > 0 {
			b = append(b, ',')
		}
		if b, err = text.AppendCanonical(b, t.field[i]); err != nil {
			return
		}
	}
	b = append(b, ']')
	return
}

func (t *T) MarshalJSON() ([]byte, error) { return t.AppendCanonical(nil) }

func (t *T) UnmarshalJSON(b []byte) (err error) {
	var s []string
	if err = json.Unmarshal(b, &s); err != nil {
		return
	}
	*t = *New(s...)
	return
}
