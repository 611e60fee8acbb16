// Package profile is the kind 0 user metadata.
package profile

import (
	"encoding/json"

	"longform.lol/errorf"
	"longform.lol/event"
	"longform.lol/kind"
	"longform.lol/tags"
	"longform.lol/timestamp"
)

// T is the JSON object in the content of a kind 0 event.
type T struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	About       string `json:"about,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Banner      string `json:"banner,omitempty"`
	Website     string `json:"website,omitempty"`
	Nip05       string `json:"nip05,omitempty"`
	Lud16       string `json:"lud16,omitempty"`

	// PubKey and UpdatedAt come from the event, not the content.
	PubKey    string       `json:"-"`
	UpdatedAt *timestamp.T `json:"-"`
}

// FromEvent reads the profile in a kind 0 event. Unknown fields are ignored.
func FromEvent(ev *event.T) (p *T, err error) {
	if ev == nil || !ev.Kind.Equal(kind.ProfileMetadata) {
		return nil, errorf.D("not a profile metadata event")
	}
	p = &T{}
	if err = json.Unmarshal(ev.Content, p); err != nil {
		return nil, errorf.D("profile %s: %w", ev.IDString(), err)
	}
	p.PubKey = ev.PubKeyString()
	p.UpdatedAt = ev.CreatedAt
	return
}

// Event builds the unsigned kind 0 event carrying p.
func (p *T) Event() (ev *event.T, err error) {
	var content []byte
	if content, err = json.Marshal(p); err != nil {
		return
	}
	ev = &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.ProfileMetadata,
		Tags:      tags.New(),
		Content:   content,
	}
	return
}

// BestName is the display name, then the name, then empty.
func (p *T) BestName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}
