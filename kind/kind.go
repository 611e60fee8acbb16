// Package kind holds the event kind type and the kinds this client produces
// or reads.
package kind

import (
	"strconv"

	"longform.lol/errorf"
)

// T is the event type in the nostr protocol.
type T struct {
	K uint16
}

// New creates a kind.T from any integer type.
func New[V uint16 | uint32 | int32 | int | uint64 | int64](k V) (ki *T) { return &T{uint16(k)} }

func (k *T) ToU16() uint16 {
	if k == nil {
		return 0
	}
	return k.K
}

func (k *T) ToInt() int {
	if k == nil {
		return 0
	}
	return int(k.K)
}

func (k *T) Equal(k2 *T) bool {
	if k == nil || k2 == nil {
		return k == k2
	}
	return k.K == k2.K
}

// Name returns a human readable identifier for the kind.
func (k *T) Name() string {
	if k == nil {
		return ""
	}
	if n, ok := Map[k.K]; ok {
		return n
	}
	return "Unknown"
}

// IsEphemeral reports whether relays are expected not to store the kind.
func (k *T) IsEphemeral() bool { return k.K >= 20000 && k.K < 30000 }

// IsParameterizedReplaceable reports whether the kind is addressed by author,
// kind and the value of its d tag.
func (k *T) IsParameterizedReplaceable() bool { return k.K >= 30000 && k.K < 40000 }

// Append writes the decimal form of the kind.
func (k *T) Append(dst []byte) []byte { return strconv.AppendUint(dst, uint64(k.ToU16()), 10) }

func (k *T) MarshalJSON() ([]byte, error) { return k.Append(nil), nil }

func (k *T) UnmarshalJSON(b []byte) (err error) {
	var n uint64
	if n, err = strconv.ParseUint(string(b), 10, 16); err != nil {
		return errorf.E("kind: %s is not a valid kind: %w", b, err)
	}
	k.K = uint16(n)
	return
}

var (
	// ProfileMetadata carries a JSON object with the author's name, about,
	// picture and so on.
	ProfileMetadata = &T{0}
	// TextNote is a short plain text note.
	TextNote = &T{1}
	// ClientAuthentication is the NIP-42 response to a relay AUTH challenge.
	ClientAuthentication = &T{22242}
	// NostrConnect carries NIP-46 remote signer requests and responses.
	NostrConnect = &T{24133}
	// LongFormContent is a NIP-23 article.
	LongFormContent = &T{30023}
)

var Map = map[uint16]string{
	ProfileMetadata.K:      "ProfileMetadata",
	TextNote.K:             "TextNote",
	ClientAuthentication.K: "ClientAuthentication",
	NostrConnect.K:         "NostrConnect",
	LongFormContent.K:      "LongFormContent",
}
