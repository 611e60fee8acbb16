package ws

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"longform.lol/context"
	"longform.lol/envelopes"
	"longform.lol/envelopes/eoseenvelope"
	"longform.lol/envelopes/eventenvelope"
	"longform.lol/envelopes/reqenvelope"
	"longform.lol/event"
	"longform.lol/filter"
	"longform.lol/filters"
	"longform.lol/hex"
	"longform.lol/normalize"
	"longform.lol/sign"
)

func rejecting(t *testing.T) *fakeRelay {
	return startRelay(t, &fakeRelay{accept: func(*event.T) (bool, string) {
		return false, normalize.Blocked.F("not today")
	}})
}

func writeOnly(urls ...string) (eps []Endpoint) {
	for _, u := range urls {
		eps = append(eps, Endpoint{URL: u, Write: true})
	}
	return
}

func readOnly(urls ...string) (eps []Endpoint) {
	for _, u := range urls {
		eps = append(eps, Endpoint{URL: u, Read: true})
	}
	return
}

func TestQuorum(t *testing.T) {
	for _, tc := range []struct {
		q    Quorum
		n    int
		want int
	}{
		{AtLeastOne, 4, 1},
		{AtLeastOne, 0, 0},
		{Majority, 4, 3},
		{Majority, 3, 2},
		{Majority, 1, 1},
		{All, 4, 4},
	} {
		assert.Equal(t, tc.want, tc.q.Needed(tc.n), "%s of %d", tc.q, tc.n)
	}
	q, err := ParseQuorum(" Majority ")
	require.NoError(t, err)
	assert.Equal(t, Majority, q)
	q, err = ParseQuorum("")
	require.NoError(t, err)
	assert.Equal(t, AtLeastOne, q)
	_, err = ParseQuorum("most")
	assert.Error(t, err)
}

func TestNewPoolEndpoints(t *testing.T) {
	p := NewPool(context.Bg(), []Endpoint{
		{URL: "relay.example.com", Read: true},
		{URL: "wss://relay.example.com/", Write: true},
		{URL: "", Read: true},
		{URL: "localhost:99999", Read: true},
		{URL: "https://other.example.com", Read: true},
	})
	defer p.Close()
	assert.Equal(t, []Endpoint{
		{URL: "wss://relay.example.com", Read: true, Write: true},
		{URL: "wss://other.example.com", Read: true},
	}, p.Endpoints())
	assert.Equal(t, []string{"wss://relay.example.com"}, p.Writable())
	assert.Len(t, p.Readable(), 2)
}

func TestPublishOneOfFour(t *testing.T) {
	good := newFakeRelay(t)
	p := NewPool(context.Bg(), writeOnly(
		rejecting(t).srv.URL,
		deadRelay(t),
		good.srv.URL,
		rejecting(t).srv.URL,
	))
	defer p.Close()
	ev := note(t, newKeys(t), 1700000000, "quorum")
	require.NoError(t, p.Publish(context.Bg(), ev))
	require.Len(t, good.Received(), 1)
	require.Eventually(t, func() bool { return len(p.Status()) == 4 },
		5*time.Second, 10*time.Millisecond)
	accepted := 0
	for u, s := range p.Status() {
		if s.Accepted {
			accepted++
			assert.Equal(t, good.URL(), u)
		} else {
			assert.Error(t, s.Err)
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestPublishNoneOfFour(t *testing.T) {
	p := NewPool(context.Bg(), writeOnly(
		rejecting(t).srv.URL,
		deadRelay(t),
		rejecting(t).srv.URL,
		deadRelay(t),
	))
	defer p.Close()
	err := p.Publish(context.Bg(), note(t, newKeys(t), 1700000000, "nobody"))
	assert.ErrorIs(t, err, ErrNoRelayAccepted)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestPublishMajority(t *testing.T) {
	ev := note(t, newKeys(t), 1700000000, "majority")
	p := NewPool(context.Bg(), writeOnly(
		newFakeRelay(t).srv.URL,
		rejecting(t).srv.URL,
		rejecting(t).srv.URL,
	), WithQuorum(Majority))
	defer p.Close()
	assert.ErrorIs(t, p.Publish(context.Bg(), ev), ErrNoRelayAccepted)

	p2 := NewPool(context.Bg(), writeOnly(
		newFakeRelay(t).srv.URL,
		newFakeRelay(t).srv.URL,
	), WithQuorum(All), WithTimeout(2*time.Second))
	defer p2.Close()
	assert.NoError(t, p2.Publish(context.Bg(), ev))
}

func TestPublishNoWritable(t *testing.T) {
	p := NewPool(context.Bg(), readOnly(newFakeRelay(t).srv.URL))
	defer p.Close()
	err := p.Publish(context.Bg(), note(t, newKeys(t), 1700000000, "x"))
	assert.ErrorIs(t, err, ErrNoRelayAccepted)
}

func TestPublishAuth(t *testing.T) {
	relay := startRelay(t, &fakeRelay{challenge: "challenge-1"})
	keys := newKeys(t)
	local, err := sign.NewLocal(keys)
	require.NoError(t, err)

	p := NewPool(context.Bg(), writeOnly(relay.srv.URL))
	err = p.Publish(context.Bg(), note(t, keys, 1700000000, "first"))
	assert.ErrorIs(t, err, ErrNoRelayAccepted)
	require.NoError(t, p.Close())

	p = NewPool(context.Bg(), writeOnly(relay.srv.URL),
		WithAuthHandler(func() sign.Provider { return local }))
	defer p.Close()
	require.NoError(t, p.Publish(context.Bg(), note(t, keys, 1700000001, "second")))
	assert.True(t, relay.isAuthed())
}

func TestSubscribeMerges(t *testing.T) {
	keys := newKeys(t)
	shared := note(t, keys, 300, "shared")
	a := note(t, keys, 100, "a")
	b := note(t, keys, 200, "b")
	c := note(t, keys, 400, "c")
	r1 := newFakeRelay(t, shared, a)
	r2 := newFakeRelay(t, b, shared, c)
	p := NewPool(context.Bg(), readOnly(r1.srv.URL, r2.srv.URL, deadRelay(t)))
	defer p.Close()

	s := p.Subscribe(context.Bg(), notes())
	select {
	case <-s.Loaded():
	case <-time.After(5 * time.Second):
		t.Fatal("stream never loaded")
	}
	items := s.Items()
	require.Len(t, items, 4)
	for i, want := range []*event.T{c, shared, b, a} {
		assert.Equal(t, want.IDString(), items[i].IDString(), "position %d", i)
	}
	seen := make(map[string]int)
	deadline := time.After(5 * time.Second)
	for len(seen) < 4 {
		select {
		case u := <-s.Updates():
			for _, ev := range u.Added {
				seen[ev.IDString()]++
			}
		case <-deadline:
			t.Fatalf("only %d distinct events delivered", len(seen))
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "event %s delivered more than once", id)
	}

	s.Cancel()
	for _, r := range []*fakeRelay{r1, r2} {
		require.Eventually(t, func() bool { return len(r.Closed()) == 1 },
			5*time.Second, 10*time.Millisecond, "relay %s got no CLOSE", r.URL())
	}
	_, more := <-s.Updates()
	assert.False(t, more)
}

func TestSubscribeCap(t *testing.T) {
	keys := newKeys(t)
	var stored []*event.T
	for i := range 5 {
		stored = append(stored, note(t, keys, int64(100+i), "n"))
	}
	p := NewPool(context.Bg(), readOnly(newFakeRelay(t, stored...).srv.URL))
	defer p.Close()
	s := p.Subscribe(context.Bg(), notes(), WithCap(2))
	defer s.Cancel()
	<-s.Loaded()
	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, stored[4].ID, items[0].ID)
	assert.Equal(t, stored[3].ID, items[1].ID)
}

func TestSubscribeIndependent(t *testing.T) {
	keys := newKeys(t)
	relay := newFakeRelay(t, note(t, keys, 100, "a"))
	p := NewPool(context.Bg(), readOnly(relay.srv.URL))
	defer p.Close()
	s1 := p.Subscribe(context.Bg(), notes())
	s2 := p.Subscribe(context.Bg(), notes())
	<-s1.Loaded()
	<-s2.Loaded()
	s1.Cancel()
	select {
	case <-s2.Done():
		t.Fatal("canceling one stream ended the other")
	default:
	}
	assert.Len(t, s2.Items(), 1)
	s2.Cancel()
}

func TestQuerySingle(t *testing.T) {
	keys := newKeys(t)
	ev := note(t, keys, 100, "only")
	p := NewPool(context.Bg(), readOnly(newFakeRelay(t).srv.URL,
		newFakeRelay(t, ev).srv.URL))
	defer p.Close()
	got, err := p.QuerySingle(context.Bg(), &filter.T{IDs: []string{ev.IDString()}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ev.ID, got.ID)

	got, err = p.QuerySingle(context.Bg(), &filter.T{IDs: []string{hex.Enc(make([]byte, 32))}})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPoolClose(t *testing.T) {
	relay := newFakeRelay(t)
	p := NewPool(context.Bg(), []Endpoint{{URL: relay.srv.URL, Read: true, Write: true}})
	s := p.Subscribe(context.Bg(), notes())
	<-s.Loaded()
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	select {
	case <-s.Done():
	default:
		t.Fatal("stream outlived the pool")
	}
	assert.ErrorIs(t, p.Publish(context.Bg(), note(t, newKeys(t), 1, "late")), ErrPoolClosed)
	late := p.Subscribe(context.Bg(), notes())
	<-late.Done()
	_, err := p.EnsureRelay(context.Bg(), relay.srv.URL)
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPublishSilentRelayTimesOut(t *testing.T) {
	silent := silentRelay(t)
	acking := newFakeRelay(t)
	p := NewPool(context.Bg(), writeOnly(silent, acking.srv.URL),
		WithTimeout(300*time.Millisecond))
	defer p.Close()
	require.NoError(t, p.Publish(context.Bg(), note(t, newKeys(t), 100, "x")))
	require.Eventually(t, func() bool {
		st, ok := p.Status()[silent]
		return ok && !st.Accepted && errors.Is(st.Err, ErrTimeout)
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, p.Status()[acking.URL()].Accepted)
}

func TestPublishOnlySilentRelay(t *testing.T) {
	p := NewPool(context.Bg(), writeOnly(silentRelay(t)),
		WithTimeout(300*time.Millisecond))
	defer p.Close()
	start := time.Now()
	err := p.Publish(context.Bg(), note(t, newKeys(t), 100, "x"))
	assert.ErrorIs(t, err, ErrNoRelayAccepted)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestQuerySingleTimeoutUnderLongerDeadline(t *testing.T) {
	p := NewPool(context.Bg(), readOnly(silentRelay(t)),
		WithTimeout(300*time.Millisecond))
	defer p.Close()
	c, cancel := context.Timeout(context.Bg(), 5*time.Second)
	defer cancel()
	start := time.Now()
	ev, err := p.QuerySingle(c, &filter.T{IDs: []string{hex.Enc(make([]byte, 32))}})
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Less(t, time.Since(start), 2*time.Second)
}

// flakyRelay drops its first connection right after EOSE and remembers the
// filters every later REQ carried.
type flakyRelay struct {
	t      *testing.T
	first  *event.T
	second *event.T

	mu    sync.Mutex
	conns int
	reqs  []*filters.T
}

func (r *flakyRelay) Reqs() []*filters.T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*filters.T(nil), r.reqs...)
}

func (r *flakyRelay) send(conn *websocket.Conn, en envelopes.Envelope) {
	b, err := en.Marshal(nil)
	if err != nil {
		r.t.Errorf("marshal %s: %v", en.Label(), err)
		return
	}
	_ = websocket.Message.Send(conn, string(b))
}

func (r *flakyRelay) serve(conn *websocket.Conn) {
	r.mu.Lock()
	r.conns++
	n := r.conns
	r.mu.Unlock()
	for {
		var msg []byte
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			return
		}
		label, fields, err := envelopes.Identify(msg)
		if err != nil || label != reqenvelope.L {
			continue
		}
		env, err := reqenvelope.Parse(fields)
		if err != nil {
			r.t.Errorf("bad REQ: %v", err)
			return
		}
		id := env.Subscription.String()
		if n == 1 {
			r.send(conn, eventenvelope.NewResultWith(id, r.first))
			r.send(conn, eoseenvelope.NewFrom(env.Subscription))
			return
		}
		r.mu.Lock()
		r.reqs = append(r.reqs, env.Filters)
		r.mu.Unlock()
		r.send(conn, eoseenvelope.NewFrom(env.Subscription))
		r.send(conn, eventenvelope.NewResultWith(id, r.second))
	}
}

func TestSubscribeReconnects(t *testing.T) {
	saved := initialBackoff
	initialBackoff = 50 * time.Millisecond
	t.Cleanup(func() { initialBackoff = saved })

	keys := newKeys(t)
	relay := &flakyRelay{
		t:      t,
		first:  note(t, keys, 100, "before the drop"),
		second: note(t, keys, time.Now().Unix()+60, "after the drop"),
	}
	srv := newWebsocketServer(relay.serve)
	t.Cleanup(srv.Close)

	p := NewPool(context.Bg(), readOnly(srv.URL), WithReconnect(true))
	defer p.Close()
	s := p.Subscribe(context.Bg(), notes())
	defer s.Cancel()
	require.Eventually(t, func() bool { return len(s.Items()) == 2 },
		5*time.Second, 20*time.Millisecond)
	items := s.Items()
	assert.Equal(t, relay.second.ID, items[0].ID)
	assert.Equal(t, relay.first.ID, items[1].ID)

	reqs := relay.Reqs()
	require.NotEmpty(t, reqs)
	require.NotNil(t, reqs[0].F[0].Since)
	assert.GreaterOrEqual(t, reqs[0].F[0].Since.I64(), relay.first.CreatedAt.I64())
}
