// Package noticeenvelope is a human readable message from a relay.
package noticeenvelope

import (
	"encoding/json"

	"longform.lol/envelopes"
)

const L = "NOTICE"

type T struct {
	Message string
}

var _ envelopes.Envelope = (*T)(nil)

func NewFrom(msg string) *T { return &T{Message: msg} }

func (en *T) Label() string { return L }

func (en *T) Marshal(dst []byte) (b []byte, err error) {
	return envelopes.Marshal(dst, L, func(o []byte) ([]byte, error) {
		return envelopes.AppendString(o, en.Message), nil
	})
}

func Parse(fields []json.RawMessage) (en *T, err error) {
	if err = envelopes.Fields(L, fields, 1); err != nil {
		return
	}
	var msg string
	if msg, err = envelopes.String(fields[0]); err != nil {
		return
	}
	return NewFrom(msg), nil
}
