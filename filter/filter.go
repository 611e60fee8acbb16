// Package filter is the nostr query form sent in REQ messages, with a matcher
// that applies the relay side semantics on the client.
package filter

import (
	"encoding/json"
	"slices"
	"strconv"

	"longform.lol/errorf"
	"longform.lol/event"
	"longform.lol/hex"
	"longform.lol/kind"
	"longform.lol/kinds"
	"longform.lol/tag"
	"longform.lol/tags"
	"longform.lol/text"
	"longform.lol/timestamp"
)

// T is the primary query form for requesting events from a nostr relay.
//
// Marshal sorts the list fields so that the same set of constraints always
// produces the same JSON.
type T struct {
	IDs     []string
	Kinds   *kinds.T
	Authors []string
	// Tags holds the tag constraints, each a tag whose key is "#" followed by
	// a single letter and whose remaining fields are the accepted values.
	Tags  *tags.T
	Since *timestamp.T
	Until *timestamp.T
	Limit *uint
}

// New creates an empty filter, which matches everything.
func New() (f *T) { return &T{} }

// WithLimit is a convenience for setting Limit.
func (f *T) WithLimit(l uint) *T {
	f.Limit = &l
	return f
}

// AddTag adds a constraint on single letter tag name to one of values.
func (f *T) AddTag(name byte, values ...string) *T {
	t := tag.NewWithCap(len(values) + 1).Append([]byte{'#', name})
	for _, v := range values {
		t.Append([]byte(v))
	}
	f.Tags = f.Tags.Append(t)
	return f
}

// Clone returns a copy that can be modified without touching f.
func (f *T) Clone() (c *T) {
	c = &T{
		IDs:     slices.Clone(f.IDs),
		Authors: slices.Clone(f.Authors),
		Tags:    f.Tags.Clone(),
	}
	if f.Kinds != nil {
		c.Kinds = kinds.New(slices.Clone(f.Kinds.K)...)
	}
	if f.Since != nil {
		c.Since = timestamp.FromUnix(f.Since.I64())
	}
	if f.Until != nil {
		c.Until = timestamp.FromUnix(f.Until.I64())
	}
	if f.Limit != nil {
		l := *f.Limit
		c.Limit = &l
	}
	return
}

func appendKey(dst []byte, first *bool, key string) []byte {
	if !*first {
		dst = append(dst, ',')
	}
	*first = false
	dst = append(dst, '"')
	dst = append(dst, key...)
	return append(dst, '"', ':')
}

func appendStrings(dst []byte, s []string) []byte {
	dst = append(dst, '[')
	for i := range s {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = text.AppendQuote(dst, []byte(s[i]), text.NostrEscape)
	}
	return append(dst, ']')
}

func sorted(s []string) []string {
	s = slices.Clone(s)
	slices.Sort(s)
	return s
}

// Append writes the filter as minified JSON with a fixed field order.
func (f *T) Append(dst []byte) (b []byte) {
	first := true
	b = append(dst, '{')
	if len(f.IDs) > 0 {
		b = appendKey(b, &first, "ids")
		b = appendStrings(b, sorted(f.IDs))
	}
	if f.Kinds.Len() > 0 {
		b = appendKey(b, &first, "kinds")
		ks := kinds.New(slices.Clone(f.Kinds.K)...)
		slices.SortFunc(ks.K, func(x, y *kind.T) int { return int(x.K) - int(y.K) })
		b = ks.Append(b)
	}
	if len(f.Authors) > 0 {
		b = appendKey(b, &first, "authors")
		b = appendStrings(b, sorted(f.Authors))
	}
	for _, t := range f.sortedTags() {
		b = appendKey(b, &first, t.S(tag.Key))
		b = appendStrings(b, sorted(t.ToStrings()[1:]))
	}
	if f.Since != nil {
		b = appendKey(b, &first, "since")
		b = f.Since.Append(b)
	}
	if f.Until != nil {
		b = appendKey(b, &first, "until")
		b = f.Until.Append(b)
	}
	if f.Limit != nil {
		b = appendKey(b, &first, "limit")
		b = strconv.AppendUint(b, uint64(*f.Limit), 10)
	}
	return append(b, '}')
}

// sortedTags returns the well formed tag constraints ordered by key.
func (f *T) sortedTags() (out []*tag.T) {
	for _, t := range f.Tags.ToSlice() {
		if isTagKey(t.Key()) && t.Len() > 1 {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b *tag.T) int { return int(a.Key()[1]) - int(b.Key()[1]) })
	return
}

func isTagKey(k []byte) bool {
	return len(k) == 2 && k[0] == '#' &&
		(k[1] >= 'a' && k[1] <= 'z' || k[1] >= 'A' && k[1] <= 'Z')
}

func (f *T) MarshalJSON() ([]byte, error) { return f.Append(nil), nil }

// Serialize is the JSON form for logging.
func (f *T) Serialize() []byte { return f.Append(nil) }

func (f *T) UnmarshalJSON(b []byte) (err error) {
	var m map[string]json.RawMessage
	if err = json.Unmarshal(b, &m); err != nil {
		return
	}
	var nf T
	for k, v := range m {
		switch {
		case k == "ids":
			err = json.Unmarshal(v, &nf.IDs)
		case k == "authors":
			err = json.Unmarshal(v, &nf.Authors)
		case k == "kinds":
			nf.Kinds = kinds.New()
			err = nf.Kinds.UnmarshalJSON(v)
		case k == "since":
			nf.Since = timestamp.New()
			err = nf.Since.UnmarshalJSON(v)
		case k == "until":
			nf.Until = timestamp.New()
			err = nf.Until.UnmarshalJSON(v)
		case k == "limit":
			var l uint
			err = json.Unmarshal(v, &l)
			nf.Limit = &l
		case isTagKey([]byte(k)):
			var vals []string
			if err = json.Unmarshal(v, &vals); err == nil {
				nf.AddTag(k[1], vals...)
			}
		default:
			// search and other extensions are not used by this client
		}
		if err != nil {
			return errorf.D("filter: field %s: %w", k, err)
		}
	}
	*f = nf
	return
}

// Matches checks a filter against an event and determines if the event
// matches the filter. Limit is not considered.
func (f *T) Matches(ev *event.T) bool {
	if ev == nil {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, hex.Enc(ev.ID)) {
		return false
	}
	if f.Kinds.Len() > 0 && !f.Kinds.Contains(ev.Kind) {
		return false
	}
	if len(f.Authors) > 0 && !slices.Contains(f.Authors, hex.Enc(ev.PubKey)) {
		return false
	}
	for _, t := range f.Tags.ToSlice() {
		if !isTagKey(t.Key()) || t.Len() < 2 {
			continue
		}
		values := make([][]byte, 0, t.Len()-1)
		for i := 1; i < t.Len(); i++ {
			values = append(values, t.B(i))
		}
		if !ev.Tags.ContainsAny(t.Key()[1:], values...) {
			return false
		}
	}
	if f.Since != nil && ev.CreatedAt.I64() < f.Since.I64() {
		return false
	}
	if f.Until != nil && ev.CreatedAt.I64() > f.Until.I64() {
		return false
	}
	return true
}
