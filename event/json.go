package event

import (
	"encoding/json"

	"longform.lol/errorf"
	"longform.lol/hex"
	"longform.lol/kind"
	"longform.lol/tag"
	"longform.lol/tags"
	"longform.lol/text"
	"longform.lol/timestamp"
)

// Append writes the JSON wire form of the event.
func (ev *T) Append(dst []byte) (b []byte, err error) {
	b = append(dst, `{"id":"`...)
	b = hex.EncAppend(b, ev.ID)
	b = append(b, `","pubkey":"`...)
	b = hex.EncAppend(b, ev.PubKey)
	b = append(b, `","created_at":`...)
	b = ev.CreatedAt.Append(b)
	b = append(b, `,"kind":`...)
	b = ev.Kind.Append(b)
	b = append(b, `,"tags":`...)
	if b, err = ev.Tags.AppendCanonical(b); err != nil {
		return
	}
	b = append(b, `,"content":`...)
	if b, err = text.AppendCanonical(b, ev.Content); err != nil {
		return
	}
	b = append(b, `,"sig":"`...)
	b = hex.EncAppend(b, ev.Sig)
	b = append(b, `"}`...)
	return
}

func (ev *T) MarshalJSON() ([]byte, error) { return ev.Append(nil) }

// AppendTemplate writes the event without id and sig, the form a remote
// signer is asked to sign. The pubkey is left out when it is not set.
func (ev *T) AppendTemplate(dst []byte) (b []byte, err error) {
	b = append(dst, '{')
	if len(ev.PubKey) > 0 {
		b = append(b, `"pubkey":"`...)
		b = hex.EncAppend(b, ev.PubKey)
		b = append(b, `",`...)
	}
	b = append(b, `"created_at":`...)
	b = ev.CreatedAt.Append(b)
	b = append(b, `,"kind":`...)
	b = ev.Kind.Append(b)
	b = append(b, `,"tags":`...)
	if b, err = ev.Tags.AppendCanonical(b); err != nil {
		return
	}
	b = append(b, `,"content":`...)
	if b, err = text.AppendCanonical(b, ev.Content); err != nil {
		return
	}
	b = append(b, '}')
	return
}

// Serialize is MarshalJSON without the error, for logging.
func (ev *T) Serialize() (b []byte) {
	b, _ = ev.Append(nil)
	return
}

// J is the plain JSON shape of an event.
type J struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      uint16     `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// UnmarshalJSON decodes the wire form. Hex fields must be lowercase and of the
// right length.
func (ev *T) UnmarshalJSON(b []byte) (err error) {
	var j J
	if err = json.Unmarshal(b, &j); err != nil {
		return errorf.D("event: %w", err)
	}
	var e T
	if e.ID, err = hex.DecFixed(j.ID, 32); err != nil {
		return errorf.D("event: id: %w", err)
	}
	if e.PubKey, err = hex.DecFixed(j.PubKey, 32); err != nil {
		return errorf.D("event: pubkey: %w", err)
	}
	if e.Sig, err = hex.DecFixed(j.Sig, 64); err != nil {
		return errorf.D("event: sig: %w", err)
	}
	e.CreatedAt = timestamp.FromUnix(j.CreatedAt)
	e.Kind = kind.New(j.Kind)
	e.Tags = tags.NewWithCap(len(j.Tags))
	for _, t := range j.Tags {
		e.Tags.Append(tag.New(t...))
	}
	e.Content = []byte(j.Content)
	*ev = e
	return
}
