// Package closedenvelope is the relay's notice that it ended or refused a
// subscription.
package closedenvelope

import (
	"encoding/json"

	"longform.lol/envelopes"
	"longform.lol/subscriptionid"
)

const L = "CLOSED"

type T struct {
	Subscription *subscriptionid.T
	Reason       string
}

var _ envelopes.Envelope = (*T)(nil)

func NewFrom(id *subscriptionid.T, reason string) *T { return &T{Subscription: id, Reason: reason} }

func (en *T) Label() string { return L }

func (en *T) Marshal(dst []byte) (b []byte, err error) {
	return envelopes.Marshal(dst, L, func(o []byte) ([]byte, error) {
		o = envelopes.AppendString(o, en.Subscription.T)
		o = append(o, ',')
		return envelopes.AppendString(o, en.Reason), nil
	})
}

func Parse(fields []json.RawMessage) (en *T, err error) {
	if err = envelopes.Fields(L, fields, 1); err != nil {
		return
	}
	en = &T{}
	var id string
	if id, err = envelopes.String(fields[0]); err != nil {
		return nil, err
	}
	en.Subscription = subscriptionid.MustNew(id)
	if len(fields) > 1 {
		if en.Reason, err = envelopes.String(fields[1]); err != nil {
			return nil, err
		}
	}
	return
}
