// Package authenvelope defines the auth challenge (relay message) and response
// (client message) of the NIP-42 authentication protocol.
package authenvelope

import (
	"encoding/json"

	"longform.lol/envelopes"
	"longform.lol/event"
)

const L = "AUTH"

// Challenge is the relay's ["AUTH",<challenge>].
type Challenge struct {
	Challenge string
}

var _ envelopes.Envelope = (*Challenge)(nil)

func NewChallengeWith(challenge string) *Challenge { return &Challenge{Challenge: challenge} }

func (en *Challenge) Label() string { return L }

func (en *Challenge) Marshal(dst []byte) (b []byte, err error) {
	return envelopes.Marshal(dst, L, func(o []byte) ([]byte, error) {
		return envelopes.AppendString(o, en.Challenge), nil
	})
}

func ParseChallenge(fields []json.RawMessage) (en *Challenge, err error) {
	if err = envelopes.Fields(L, fields, 1); err != nil {
		return
	}
	var c string
	if c, err = envelopes.String(fields[0]); err != nil {
		return
	}
	return NewChallengeWith(c), nil
}

// Response is the client's ["AUTH",<signed kind 22242 event>].
type Response struct {
	Event *event.T
}

var _ envelopes.Envelope = (*Response)(nil)

func NewResponseWith(ev *event.T) *Response { return &Response{Event: ev} }

func (en *Response) Label() string { return L }

func (en *Response) Marshal(dst []byte) (b []byte, err error) {
	return envelopes.Marshal(dst, L, en.Event.Append)
}

func ParseResponse(fields []json.RawMessage) (en *Response, err error) {
	if err = envelopes.Fields(L, fields, 1); err != nil {
		return
	}
	ev := event.New()
	if err = ev.UnmarshalJSON(fields[0]); err != nil {
		return
	}
	return NewResponseWith(ev), nil
}
