// Package bunker is a NIP-46 client: it asks a remote signer, reached through
// relays with kind 24133 events carrying NIP-44 encrypted JSON-RPC, for the
// user's public key and for signatures, without ever seeing the secret key.
package bunker

import (
	"encoding/json"

	"longform.lol/chk"
)

const (
	MethodConnect      = "connect"
	MethodGetPublicKey = "get_public_key"
	MethodSignEvent    = "sign_event"
	MethodPing         = "ping"

	// AuthURL is the result a signer sends, with the URL in Error, when the
	// user has to approve the client elsewhere first.
	AuthURL = "auth_url"
)

type Request struct {
	ID     string   `json:"id"`
	Method string   `json:"method"`
	Params []string `json:"params"`
}

func (r *Request) String() (s string) {
	j, err := json.Marshal(r)
	if chk.E(err) {
		return
	}
	return string(j)
}

type Response struct {
	ID     string `json:"id"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r *Response) String() (s string) {
	j, err := json.Marshal(r)
	if chk.E(err) {
		return
	}
	return string(j)
}
