package bunker

import (
	"net/url"
	"strings"

	"longform.lol/errorf"
	"longform.lol/hex"
	"longform.lol/normalize"
)

// URL is a parsed bunker://<signer pubkey>?relay=...&secret=... address.
type URL struct {
	Signer []byte
	Relays []string
	Secret string
}

// ParseURL reads a bunker URL. It needs the signer's public key as hex and at
// least one relay.
func ParseURL(s string) (u *URL, err error) {
	var p *url.URL
	if p, err = url.Parse(strings.TrimSpace(s)); err != nil {
		return nil, errorf.D("bunker url: %w", err)
	}
	if p.Scheme != "bunker" {
		return nil, errorf.D("wrong scheme '%s', must be bunker://", p.Scheme)
	}
	u = &URL{Secret: p.Query().Get("secret")}
	if u.Signer, err = hex.DecFixed(p.Host, 32); err != nil {
		return nil, errorf.D("bunker url: signer public key: %w", err)
	}
	for _, r := range p.Query()["relay"] {
		if r = normalize.URL(r); r != "" {
			u.Relays = append(u.Relays, r)
		}
	}
	if len(u.Relays) == 0 {
		return nil, errorf.D("bunker url has no relays")
	}
	return
}

// IsValidURL reports whether s parses as a bunker URL.
func IsValidURL(s string) bool {
	_, err := ParseURL(s)
	return err == nil
}

func (u *URL) String() string {
	q := url.Values{"relay": u.Relays}
	if u.Secret != "" {
		q.Set("secret", u.Secret)
	}
	return (&url.URL{Scheme: "bunker", Host: hex.Enc(u.Signer), RawQuery: q.Encode()}).String()
}
