package bunker

import (
	"encoding/json"

	"longform.lol/chk"
	"longform.lol/encryption"
	"longform.lol/errorf"
	"longform.lol/event"
	"longform.lol/hex"
	"longform.lol/kind"
	"longform.lol/signer"
	"longform.lol/tag"
	"longform.lol/tags"
	"longform.lol/timestamp"
)

// Session is one end of an encrypted NIP-46 conversation.
type Session struct {
	keys            signer.I
	Peer            []byte
	ConversationKey []byte
}

// NewSession creates the side of keys talking to peer.
func NewSession(keys signer.I, peer []byte) (s *Session, err error) {
	s = &Session{keys: keys, Peer: peer}
	if s.ConversationKey, err = encryption.GenerateConversationKey(keys, peer); chk.E(err) {
		return nil, err
	}
	return
}

// Seal encrypts v as JSON into a signed kind 24133 event addressed to the peer.
func (s *Session) Seal(v any) (ev *event.T, err error) {
	var j []byte
	if j, err = json.Marshal(v); chk.E(err) {
		return
	}
	var content string
	if content, err = encryption.Encrypt(string(j), s.ConversationKey); chk.E(err) {
		return
	}
	ev = &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.NostrConnect,
		Tags:      tags.New(tag.New("p", hex.Enc(s.Peer))),
		Content:   []byte(content),
	}
	if err = ev.Sign(s.keys); chk.E(err) {
		return nil, err
	}
	return
}

// Open decrypts a kind 24133 event from the peer into v.
func (s *Session) Open(ev *event.T, v any) (err error) {
	if !ev.Kind.Equal(kind.NostrConnect) {
		return errorf.D("event kind is %s, expected %s", ev.Kind.Name(), kind.NostrConnect.Name())
	}
	var plain string
	if plain, err = encryption.Decrypt(string(ev.Content), s.ConversationKey); chk.D(err) {
		return
	}
	if err = json.Unmarshal([]byte(plain), v); chk.D(err) {
		return
	}
	return
}
