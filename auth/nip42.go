// Package auth builds and checks NIP-42 relay authentication events.
package auth

import (
	"bytes"
	"encoding/base64"
	"net/url"
	"strings"
	"time"

	"lukechampine.com/frand"

	"longform.lol/chk"
	"longform.lol/errorf"
	"longform.lol/event"
	"longform.lol/kind"
	"longform.lol/tag"
	"longform.lol/tags"
	"longform.lol/timestamp"
)

var (
	ChallengeTag = []byte("challenge")
	RelayTag     = []byte("relay")
)

// GenerateChallenge creates a random base64 challenge string.
func GenerateChallenge() string { return base64.StdEncoding.EncodeToString(frand.Bytes(12)) }

// CreateUnsigned creates the event sent in an AUTH response. Once signed and
// accepted the connection is authenticated as the signer's pubkey.
func CreateUnsigned(challenge, relayURL string) (ev *event.T) {
	return &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.ClientAuthentication,
		Tags: tags.New(
			tag.New("relay", relayURL),
			tag.New("challenge", challenge),
		),
	}
}

func parseURL(input string) (*url.URL, error) {
	return url.Parse(strings.ToLower(strings.TrimSuffix(input, "/")))
}

// Validate checks whether ev is a valid NIP-42 response to challenge for the
// relay at relayURL.
func Validate(ev *event.T, challenge, relayURL string) (ok bool, err error) {
	if !ev.Kind.Equal(kind.ClientAuthentication) {
		err = errorf.D("event incorrect kind for auth: %d %s", ev.Kind.ToU16(), ev.Kind.Name())
		return
	}
	if c := ev.Tags.GetFirst(ChallengeTag); c == nil || !bytes.Equal(c.Value(), []byte(challenge)) {
		err = errorf.D("challenge tag missing from auth response")
		return
	}
	r := ev.Tags.GetFirst(RelayTag)
	if r == nil || len(r.Value()) == 0 {
		err = errorf.D("relay tag missing from auth response")
		return
	}
	var expected, found *url.URL
	if expected, err = parseURL(relayURL); chk.D(err) {
		return
	}
	if found, err = parseURL(string(r.Value())); chk.D(err) {
		return
	}
	if expected.Scheme != found.Scheme || expected.Host != found.Host || expected.Path != found.Path {
		err = errorf.D("relay url mismatch: expected '%s' got '%s'", expected, found)
		return
	}
	now := time.Now()
	if ev.CreatedAt.Time().After(now.Add(10*time.Minute)) ||
		ev.CreatedAt.Time().Before(now.Add(-10*time.Minute)) {
		err = errorf.D("auth event more than 10 minutes before or after current time")
		return
	}
	return ev.Verify()
}
