package event

import (
	"longform.lol/hex"
	"longform.lol/text"
)

// ToCanonical converts the event to the canonical encoding used to derive the
// event ID:
//
//	[0,"<pubkey hex>",<created_at>,<kind>,<tags>,"<content>"]
//
// with no whitespace. It fails with text.ErrInvalidUTF8 when the content or a
// tag field is not valid UTF-8.
func (ev *T) ToCanonical(dst []byte) (b []byte, err error) {
	b = append(dst, "[0,\""...)
	b = hex.EncAppend(b, ev.PubKey)
	b = append(b, "\","...)
	b = ev.CreatedAt.Append(b)
	b = append(b, ',')
	b = ev.Kind.Append(b)
	b = append(b, ',')
	if b, err = ev.Tags.AppendCanonical(b); err != nil {
		return
	}
	b = append(b, ',')
	if b, err = text.AppendCanonical(b, ev.Content); err != nil {
		return
	}
	b = append(b, ']')
	return
}

// ComputeID returns the SHA256 hash of the canonical form of the event.
func (ev *T) ComputeID() (id []byte, err error) {
	var b []byte
	if b, err = ev.ToCanonical(nil); err != nil {
		return
	}
	return Hash(b), nil
}
