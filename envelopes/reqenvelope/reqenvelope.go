// Package reqenvelope is the REQ message that opens a subscription.
package reqenvelope

import (
	"encoding/json"

	"longform.lol/envelopes"
	"longform.lol/filter"
	"longform.lol/filters"
	"longform.lol/subscriptionid"
)

const L = "REQ"

type T struct {
	Subscription *subscriptionid.T
	Filters      *filters.T
}

var _ envelopes.Envelope = (*T)(nil)

func NewFrom(id *subscriptionid.T, ff *filters.T) *T { return &T{Subscription: id, Filters: ff} }

func (en *T) Label() string { return L }

func (en *T) Marshal(dst []byte) (b []byte, err error) {
	return envelopes.Marshal(dst, L, func(o []byte) ([]byte, error) {
		o = envelopes.AppendString(o, en.Subscription.T)
		if en.Filters.Len() > 0 {
			o = append(o, ',')
			o = en.Filters.Append(o)
		}
		return o, nil
	})
}

// Parse decodes the fields after the label.
func Parse(fields []json.RawMessage) (en *T, err error) {
	if err = envelopes.Fields(L, fields, 1); err != nil {
		return
	}
	var id string
	if id, err = envelopes.String(fields[0]); err != nil {
		return
	}
	en = &T{Subscription: subscriptionid.MustNew(id), Filters: filters.New()}
	for _, raw := range fields[1:] {
		f := filter.New()
		if err = f.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		en.Filters.F = append(en.Filters.F, f)
	}
	return
}
