package ws

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"golang.org/x/net/websocket"

	"longform.lol/auth"
	"longform.lol/envelopes"
	"longform.lol/envelopes/authenvelope"
	"longform.lol/envelopes/closeenvelope"
	"longform.lol/envelopes/eoseenvelope"
	"longform.lol/envelopes/eventenvelope"
	"longform.lol/envelopes/okenvelope"
	"longform.lol/envelopes/reqenvelope"
	"longform.lol/event"
	"longform.lol/normalize"
)

// fakeRelay answers EVENT with OK, REQ with its stored events and EOSE, and
// records CLOSE. With a challenge set it demands NIP-42 auth before
// accepting anything.
type fakeRelay struct {
	t         *testing.T
	srv       *httptest.Server
	accept    func(ev *event.T) (ok bool, reason string)
	stored    []*event.T
	challenge string

	mu       sync.Mutex
	received []*event.T
	closed   []string
	authed   bool
}

func newFakeRelay(t *testing.T, stored ...*event.T) *fakeRelay {
	return startRelay(t, &fakeRelay{stored: stored})
}

// startRelay serves a relay configured by the caller, it must not be changed
// afterwards.
func startRelay(t *testing.T, r *fakeRelay) *fakeRelay {
	r.t = t
	if r.accept == nil {
		r.accept = func(*event.T) (bool, string) { return true, "" }
	}
	r.srv = newWebsocketServer(r.serve)
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRelay) URL() string { return normalize.URL(r.srv.URL) }

func (r *fakeRelay) send(conn *websocket.Conn, en envelopes.Envelope) {
	b, err := en.Marshal(nil)
	if err != nil {
		r.t.Errorf("marshal %s: %v", en.Label(), err)
		return
	}
	_ = websocket.Message.Send(conn, string(b))
}

func (r *fakeRelay) isAuthed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.challenge == "" || r.authed
}

func (r *fakeRelay) Received() []*event.T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*event.T(nil), r.received...)
}

func (r *fakeRelay) Closed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

func (r *fakeRelay) serve(conn *websocket.Conn) {
	if r.challenge != "" {
		r.send(conn, authenvelope.NewChallengeWith(r.challenge))
	}
	for {
		var msg []byte
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			return
		}
		label, fields, err := envelopes.Identify(msg)
		if err != nil {
			r.t.Errorf("bad message %s: %v", msg, err)
			return
		}
		switch label {
		case eventenvelope.L:
			env, err := eventenvelope.ParseSubmission(fields)
			if err != nil {
				r.t.Errorf("bad EVENT: %v", err)
				return
			}
			r.mu.Lock()
			r.received = append(r.received, env.T)
			r.mu.Unlock()
			if !r.isAuthed() {
				r.send(conn, okenvelope.NewFrom(env.T.ID, false,
					normalize.AuthRequired.F("log in first")))
				continue
			}
			ok, reason := r.accept(env.T)
			r.send(conn, okenvelope.NewFrom(env.T.ID, ok, reason))
		case reqenvelope.L:
			env, err := reqenvelope.Parse(fields)
			if err != nil {
				r.t.Errorf("bad REQ: %v", err)
				return
			}
			for _, ev := range r.stored {
				if env.Filters.Match(ev) {
					r.send(conn, eventenvelope.NewResultWith(env.Subscription.String(), ev))
				}
			}
			r.send(conn, eoseenvelope.NewFrom(env.Subscription))
		case closeenvelope.L:
			env, err := closeenvelope.Parse(fields)
			if err != nil {
				r.t.Errorf("bad CLOSE: %v", err)
				return
			}
			r.mu.Lock()
			r.closed = append(r.closed, env.ID.String())
			r.mu.Unlock()
		case authenvelope.L:
			env, err := authenvelope.ParseResponse(fields)
			if err != nil {
				r.t.Errorf("bad AUTH: %v", err)
				return
			}
			ok, err := auth.Validate(env.Event, r.challenge, r.URL())
			reason := ""
			if err != nil {
				reason = normalize.Invalid.F("%v", err)
			}
			r.mu.Lock()
			r.authed = ok
			r.mu.Unlock()
			r.send(conn, okenvelope.NewFrom(env.Event.ID, ok, reason))
		}
	}
}

func newWebsocketServer(handler func(*websocket.Conn)) *httptest.Server {
	return httptest.NewServer(&websocket.Server{
		Handshake: anyOriginHandshake,
		Handler:   handler,
	})
}

// anyOriginHandshake skips the origin check of golang.org/x/net/websocket,
// clients send no origin.
var anyOriginHandshake = func(conf *websocket.Config, r *http.Request) error {
	return nil
}

// deadRelay is an address nothing listens on.
func deadRelay(t *testing.T) string {
	srv := httptest.NewServer(http.NotFoundHandler())
	u := normalize.URL(srv.URL)
	srv.Close()
	return u
}

// silentRelay accepts a connection and reads from it but never answers.
func silentRelay(t *testing.T) string {
	srv := newWebsocketServer(func(conn *websocket.Conn) {
		for {
			var msg []byte
			if err := websocket.Message.Receive(conn, &msg); err != nil {
				return
			}
		}
	})
	t.Cleanup(srv.Close)
	return normalize.URL(srv.URL)
}
