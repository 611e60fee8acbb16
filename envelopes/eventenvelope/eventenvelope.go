// Package eventenvelope is the EVENT message, sent by a client to publish an
// event and by a relay to deliver one to a subscription.
package eventenvelope

import (
	"encoding/json"

	"longform.lol/envelopes"
	"longform.lol/event"
	"longform.lol/subscriptionid"
)

const L = "EVENT"

// Submission is the client's ["EVENT",<event>].
type Submission struct {
	*event.T
}

var _ envelopes.Envelope = (*Submission)(nil)

func NewSubmissionWith(ev *event.T) *Submission { return &Submission{T: ev} }

func (en *Submission) Label() string { return L }

func (en *Submission) Marshal(dst []byte) (b []byte, err error) {
	return envelopes.Marshal(dst, L, en.T.Append)
}

// Result is the relay's ["EVENT",<subscription id>,<event>].
type Result struct {
	Subscription *subscriptionid.T
	Event        *event.T
}

var _ envelopes.Envelope = (*Result)(nil)

func NewResultWith(id string, ev *event.T) *Result {
	return &Result{Subscription: subscriptionid.MustNew(id), Event: ev}
}

func (en *Result) Label() string { return L }

func (en *Result) Marshal(dst []byte) (b []byte, err error) {
	return envelopes.Marshal(dst, L, func(o []byte) ([]byte, error) {
		o = envelopes.AppendString(o, en.Subscription.T)
		o = append(o, ',')
		return en.Event.Append(o)
	})
}

// ParseResult decodes the fields after the label of a relay EVENT message.
func ParseResult(fields []json.RawMessage) (en *Result, err error) {
	if err = envelopes.Fields(L, fields, 2); err != nil {
		return
	}
	var id string
	if id, err = envelopes.String(fields[0]); err != nil {
		return
	}
	ev := event.New()
	if err = ev.UnmarshalJSON(fields[1]); err != nil {
		return
	}
	return NewResultWith(id, ev), nil
}

// ParseSubmission decodes the fields after the label of a client EVENT
// message.
func ParseSubmission(fields []json.RawMessage) (en *Submission, err error) {
	if err = envelopes.Fields(L, fields, 1); err != nil {
		return
	}
	ev := event.New()
	if err = ev.UnmarshalJSON(fields[0]); err != nil {
		return
	}
	return NewSubmissionWith(ev), nil
}
