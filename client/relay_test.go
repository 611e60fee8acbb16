package client

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"golang.org/x/net/websocket"

	"longform.lol/envelopes"
	"longform.lol/envelopes/eoseenvelope"
	"longform.lol/envelopes/eventenvelope"
	"longform.lol/envelopes/okenvelope"
	"longform.lol/envelopes/reqenvelope"
	"longform.lol/event"
	"longform.lol/normalize"
)

// relay keeps every event it accepts and serves them back to REQ.
type relay struct {
	t   *testing.T
	srv *httptest.Server

	mu     sync.Mutex
	events []*event.T
}

func newRelay(t *testing.T, stored ...*event.T) (r *relay) {
	r = &relay{t: t, events: stored}
	r.srv = httptest.NewServer(&websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   r.serve,
	})
	t.Cleanup(r.srv.Close)
	return
}

func (r *relay) URL() string { return normalize.URL(r.srv.URL) }

func (r *relay) Events() []*event.T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*event.T(nil), r.events...)
}

func (r *relay) send(conn *websocket.Conn, en envelopes.Envelope) {
	b, err := en.Marshal(nil)
	if err != nil {
		r.t.Errorf("marshal %s: %v", en.Label(), err)
		return
	}
	_ = websocket.Message.Send(conn, string(b))
}

func (r *relay) serve(conn *websocket.Conn) {
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
			ok, err := env.T.Verify()
			reason := ""
			if !ok {
				reason = normalize.Invalid.F("%v", err)
			} else {
				r.mu.Lock()
				r.events = append(r.events, env.T)
				r.mu.Unlock()
			}
			r.send(conn, okenvelope.NewFrom(env.T.ID, ok, reason))
		case reqenvelope.L:
			env, err := reqenvelope.Parse(fields)
			if err != nil {
				r.t.Errorf("bad REQ: %v", err)
				return
			}
			for _, ev := range r.Events() {
				if env.Filters.Match(ev) {
					r.send(conn, eventenvelope.NewResultWith(env.Subscription.String(), ev))
				}
			}
			r.send(conn, eoseenvelope.NewFrom(env.Subscription))
		}
	}
}
