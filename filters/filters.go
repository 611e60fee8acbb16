// Package filters is the list of filters of one REQ, an event matches the list
// if it matches any of them.
package filters

import (
	"longform.lol/event"
	"longform.lol/filter"
)

type T struct {
	F []*filter.T
}

func New(ff ...*filter.T) (f *T) { return &T{F: ff} }

func (f *T) Len() int {
	if f == nil {
		return 0
	}
	return len(f.F)
}

// Match reports whether any filter matches the event.
func (f *T) Match(ev *event.T) bool {
	for _, ff := range f.F {
		if ff.Matches(ev) {
			return true
		}
	}
	return false
}

// Clone copies every filter.
func (f *T) Clone() (c *T) {
	c = &T{F: make([]*filter.T, len(f.F))}
	for i := range f.F {
		c.F[i] = f.F[i].Clone()
	}
	return
}

// Append writes the filters comma separated, the way they follow the
// subscription id in a REQ.
func (f *T) Append(dst []byte) (b []byte) {
	b = dst
	for i, ff := range f.F {
		if i > 0 {
			b = append(b, ',')
		}
		b = ff.Append(b)
	}
	return
}

func (f *T) String() string { return "[" + string(f.Append(nil)) + "]" }
