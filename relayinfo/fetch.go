package relayinfo

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"longform.lol/chk"
	"longform.lol/context"
	"longform.lol/errorf"
	"longform.lol/normalize"
)

// DefaultTimeout bounds a fetch whose context has no deadline.
const DefaultTimeout = 7 * time.Second

// maxDocument caps how much of a response is read.
const maxDocument = 1 << 20

// HTTPURL turns a relay address into the http(s) address of its document.
func HTTPURL(relay string) (u string) {
	u = normalize.URL(relay)
	switch {
	case strings.HasPrefix(u, "wss://"):
		u = "https://" + strings.TrimPrefix(u, "wss://")
	case strings.HasPrefix(u, "ws://"):
		u = "http://" + strings.TrimPrefix(u, "ws://")
	}
	return
}

// Fetch fetches the NIP-11 document of a relay.
func Fetch(c context.T, relay string) (info *T, err error) {
	if _, ok := c.Deadline(); !ok {
		var cancel context.F
		c, cancel = context.Timeout(c, DefaultTimeout)
		defer cancel()
	}
	u := HTTPURL(relay)
	if u == "" {
		return nil, errorf.D("invalid relay address %q", relay)
	}
	var req *http.Request
	if req, err = http.NewRequestWithContext(c, http.MethodGet, u, nil); chk.E(err) {
		return
	}
	req.Header.Add("Accept", "application/nostr+json")
	var resp *http.Response
	if resp, err = http.DefaultClient.Do(req); err != nil {
		return nil, errorf.D("request to %s failed: %w", u, err)
	}
	defer func() { chk.D(resp.Body.Close()) }()
	if resp.StatusCode != http.StatusOK {
		return nil, errorf.D("%s: %s", u, resp.Status)
	}
	var b []byte
	if b, err = io.ReadAll(io.LimitReader(resp.Body, maxDocument)); chk.D(err) {
		return
	}
	info = &T{}
	if err = json.Unmarshal(b, info); err != nil {
		return nil, errorf.D("%s: %w", u, err)
	}
	return
}
