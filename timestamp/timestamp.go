// Package timestamp is a unix seconds timestamp as carried in events and
// filters.
package timestamp

import (
	"strconv"
	"time"

	"longform.lol/errorf"
)

// T is a convenience type for UNIX 64 bit timestamps of 1 second precision.
type T int64

func New() (t *T) {
	tt := T(0)
	return &tt
}

// Now returns the current UNIX timestamp of the current second.
func Now() *T {
	tt := T(time.Now().Unix())
	return &tt
}

// FromUnix converts from a standard int64 unix timestamp.
func FromUnix(t int64) *T {
	tt := T(t)
	return &tt
}

// FromTime returns a T from a time.Time.
func FromTime(t time.Time) *T { return FromUnix(t.Unix()) }

func (t *T) I64() int64 {
	if t == nil {
		return 0
	}
	return int64(*t)
}

func (t *T) U64() uint64 { return uint64(t.I64()) }

// Time converts the timestamp into a time.Time.
func (t *T) Time() time.Time { return time.Unix(t.I64(), 0) }

func (t *T) String() string { return strconv.FormatInt(t.I64(), 10) }

// Append writes the decimal form of the timestamp.
func (t *T) Append(dst []byte) []byte { return strconv.AppendInt(dst, t.I64(), 10) }

func (t *T) MarshalJSON() ([]byte, error) { return t.Append(nil), nil }

func (t *T) UnmarshalJSON(b []byte) (err error) {
	var n int64
	if n, err = strconv.ParseInt(string(b), 10, 64); err != nil {
		return errorf.E("timestamp: %s is not a valid timestamp: %w", b, err)
	}
	*t = T(n)
	return
}
