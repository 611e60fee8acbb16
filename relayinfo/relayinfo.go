// Package relayinfo reads the NIP-11 information document a relay serves over
// HTTP at its websocket address.
package relayinfo

import (
	"slices"
)

// Limitation is the subset of the NIP-11 limitation object a client acts on.
type Limitation struct {
	MaxMessageLength int  `json:"max_message_length,omitempty"`
	MaxSubscriptions int  `json:"max_subscriptions,omitempty"`
	MaxLimit         int  `json:"max_limit,omitempty"`
	MaxContentLength int  `json:"max_content_length,omitempty"`
	AuthRequired     bool `json:"auth_required"`
	PaymentRequired  bool `json:"payment_required"`
	RestrictedWrites bool `json:"restricted_writes"`
}

// T is a relay information document.
type T struct {
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	PubKey        string      `json:"pubkey"`
	Contact       string      `json:"contact"`
	Nips          []int       `json:"supported_nips"`
	Software      string      `json:"software"`
	Version       string      `json:"version"`
	Limitation    *Limitation `json:"limitation,omitempty"`
	PaymentsURL   string      `json:"payments_url,omitempty"`
	PostingPolicy string      `json:"posting_policy,omitempty"`
	Icon          string      `json:"icon,omitempty"`
}

// Supports reports whether the relay lists NIP n.
func (ri *T) Supports(n int) bool { return slices.Contains(ri.Nips, n) }

// RequiresAuth reports whether the relay says it wants NIP-42 auth before
// anything else.
func (ri *T) RequiresAuth() bool { return ri.Limitation != nil && ri.Limitation.AuthRequired }
