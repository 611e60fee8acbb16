package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longform.lol/context"
	"longform.lol/event"
	"longform.lol/feed"
)

func TestListenDeliversEverythingOnce(t *testing.T) {
	keys := newKeys(t)
	var stored []*event.T
	for i := range feed.DefaultCap + 10 {
		stored = append(stored, note(t, keys, int64(100+i), "n"))
	}
	r1 := newFakeRelay(t, stored...)
	r2 := newFakeRelay(t, stored...)
	p := NewPool(context.Bg(), readOnly(r1.srv.URL, r2.srv.URL))
	defer p.Close()

	l := p.Listen(context.Bg(), notes())
	seen := make(map[string]int)
	deadline := time.After(5 * time.Second)
	for len(seen) < len(stored) {
		select {
		case ev := <-l.Events():
			seen[ev.IDString()]++
		case <-deadline:
			t.Fatalf("only %d of %d events delivered", len(seen), len(stored))
		}
	}
	<-l.Loaded()
	for id, n := range seen {
		assert.Equal(t, 1, n, "event %s delivered more than once", id)
	}
	select {
	case ev := <-l.Events():
		t.Fatalf("copy of %s delivered", ev.IDString())
	case <-time.After(100 * time.Millisecond):
	}

	l.Cancel()
	l.Cancel()
	_, more := <-l.Events()
	assert.False(t, more)
	for _, r := range []*fakeRelay{r1, r2} {
		require.Eventually(t, func() bool { return len(r.Closed()) == 1 },
			5*time.Second, 10*time.Millisecond, "relay %s got no CLOSE", r.URL())
	}
}

func TestListenEndsWithPool(t *testing.T) {
	p := NewPool(context.Bg(), readOnly(newFakeRelay(t).srv.URL, deadRelay(t)))
	l := p.Listen(context.Bg(), notes())
	select {
	case <-l.Loaded():
	case <-time.After(5 * time.Second):
		t.Fatal("listener never loaded")
	}
	require.NoError(t, p.Close())
	_, more := <-l.Events()
	assert.False(t, more)

	late := p.Listen(context.Bg(), notes())
	<-late.Done()
	<-late.Loaded()
}
