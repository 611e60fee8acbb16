// Package okenvelope is the relay's answer to a published event.
package okenvelope

import (
	"encoding/json"
	"strconv"

	"longform.lol/envelopes"
	"longform.lol/errorf"
	"longform.lol/hex"
)

const L = "OK"

type T struct {
	EventID []byte
	OK      bool
	Reason  string
}

var _ envelopes.Envelope = (*T)(nil)

func NewFrom(id []byte, ok bool, reason string) *T { return &T{EventID: id, OK: ok, Reason: reason} }

func (en *T) Label() string { return L }

func (en *T) Marshal(dst []byte) (b []byte, err error) {
	return envelopes.Marshal(dst, L, func(o []byte) ([]byte, error) {
		o = append(o, '"')
		o = hex.EncAppend(o, en.EventID)
		o = append(o, '"', ',')
		o = strconv.AppendBool(o, en.OK)
		o = append(o, ',')
		return envelopes.AppendString(o, en.Reason), nil
	})
}

// Parse decodes ["OK",<event id>,<true|false>,<message>]. A missing message
// is accepted as empty.
func Parse(fields []json.RawMessage) (en *T, err error) {
	if err = envelopes.Fields(L, fields, 2); err != nil {
		return
	}
	en = &T{}
	var id string
	if id, err = envelopes.String(fields[0]); err != nil {
		return nil, err
	}
	if en.EventID, err = hex.DecFixed(id, 32); err != nil {
		return nil, errorf.D("OK message event id: %w", err)
	}
	if err = json.Unmarshal(fields[1], &en.OK); err != nil {
		return nil, err
	}
	if len(fields) > 2 {
		if en.Reason, err = envelopes.String(fields[2]); err != nil {
			return nil, err
		}
	}
	return
}
