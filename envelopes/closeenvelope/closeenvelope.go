// Package closeenvelope is the client's CLOSE message that ends a
// subscription.
package closeenvelope

import (
	"encoding/json"

	"longform.lol/envelopes"
	"longform.lol/subscriptionid"
)

const L = "CLOSE"

type T struct {
	ID *subscriptionid.T
}

var _ envelopes.Envelope = (*T)(nil)

func NewFrom(id *subscriptionid.T) *T { return &T{ID: id} }

func (en *T) Label() string { return L }

func (en *T) Marshal(dst []byte) (b []byte, err error) {
	return envelopes.Marshal(dst, L, func(o []byte) ([]byte, error) {
		return envelopes.AppendString(o, en.ID.T), nil
	})
}

func Parse(fields []json.RawMessage) (en *T, err error) {
	if err = envelopes.Fields(L, fields, 1); err != nil {
		return
	}
	var id string
	if id, err = envelopes.String(fields[0]); err != nil {
		return
	}
	return NewFrom(subscriptionid.MustNew(id)), nil
}
