// Package envelopes frames and identifies the JSON array messages exchanged
// with a relay. The first element is the label, the rest depends on it.
package envelopes

import (
	"encoding/json"
	"io"

	"longform.lol/errorf"
	"longform.lol/text"
)

// Envelope is a message that can be written to a relay.
type Envelope interface {
	Label() string
	Marshal(dst []byte) (b []byte, err error)
}

// Marshaler writes the fields that follow the label.
type Marshaler func(dst []byte) (b []byte, err error)

// Marshal writes ["<label>",<fields>].
func Marshal(dst []byte, label string, m Marshaler) (b []byte, err error) {
	b = append(dst, '[', '"')
	b = append(b, label...)
	b = append(b, '"', ',')
	if b, err = m(b); err != nil {
		return
	}
	b = append(b, ']')
	return
}

// Write marshals the envelope into w.
func Write(w io.Writer, en Envelope) (err error) {
	var b []byte
	if b, err = en.Marshal(nil); err != nil {
		return
	}
	_, err = w.Write(b)
	return
}

// Identify splits a message into its label and the raw JSON of the remaining
// fields.
func Identify(b []byte) (label string, fields []json.RawMessage, err error) {
	var all []json.RawMessage
	if err = json.Unmarshal(b, &all); err != nil {
		err = errorf.D("message is not a JSON array: %w", err)
		return
	}
	if len(all) == 0 {
		err = errorf.D("empty message")
		return
	}
	if err = json.Unmarshal(all[0], &label); err != nil {
		err = errorf.D("message label is not a string: %w", err)
		return
	}
	fields = all[1:]
	return
}

// Fields checks there are at least n fields after the label.
func Fields(label string, fields []json.RawMessage, n int) (err error) {
	if len(fields) < n {
		err = errorf.D("%s message has %d fields, need %d", label, len(fields), n)
	}
	return
}

// String decodes a JSON string field.
func String(raw json.RawMessage) (s string, err error) {
	err = json.Unmarshal(raw, &s)
	return
}

// AppendString writes s as an escaped JSON string.
func AppendString(dst []byte, s string) []byte {
	return text.AppendQuote(dst, []byte(s), text.NostrEscape)
}
