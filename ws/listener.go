package ws

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"longform.lol/context"
	"longform.lol/event"
)

// seenTTL is how long a Listener remembers an event id. Copies of one event
// from several relays arrive within moments of each other.
const seenTTL = time.Minute

// sink is what the per relay loops of a pool subscription feed.
type sink interface {
	Push(ev *event.T) bool
	SourceDone()
}

// canceler is a subscription the pool ends on Close.
type canceler interface {
	Cancel()
}

// Listener delivers each event the relays of a subscription send once, in the
// order they arrive. Nothing is dropped for being old, so it suits request and
// response traffic where a feed.Stream would evict replies.
type Listener struct {
	ctx    context.T
	cancel context.F
	events chan *event.T
	done   chan struct{}
	seen   *xsync.MapOf[string, time.Time]

	mx         sync.Mutex
	remaining  int
	loaded     chan struct{}
	loadedOnce sync.Once

	sources    sync.WaitGroup
	cancelOnce sync.Once
}

func newListener(c context.T, sources int) (l *Listener) {
	l = &Listener{
		events:    make(chan *event.T),
		done:      make(chan struct{}),
		seen:      xsync.NewMapOf[string, time.Time](),
		loaded:    make(chan struct{}),
		remaining: sources,
	}
	l.ctx, l.cancel = context.Cancel(c)
	if sources <= 0 {
		l.markLoaded()
	}
	return
}

// start runs once every source is registered with Go.
func (l *Listener) start() {
	go func() {
		ticker := time.NewTicker(seenTTL)
		defer ticker.Stop()
		for {
			select {
			case <-l.ctx.Done():
				l.sources.Wait()
				close(l.events)
				close(l.done)
				return
			case now := <-ticker.C:
				l.seen.Range(func(id string, at time.Time) bool {
					if now.Sub(at) > seenTTL {
						l.seen.Delete(id)
					}
					return true
				})
			}
		}
	}()
}

// Go runs a source until the listener ends.
func (l *Listener) Go(f func(c context.T)) {
	l.sources.Add(1)
	go func() {
		defer l.sources.Done()
		f(l.ctx)
	}()
}

// Push hands ev to the consumer unless its id was delivered recently. It waits
// for the consumer, or for the listener to end.
func (l *Listener) Push(ev *event.T) (delivered bool) {
	if ev == nil || len(ev.ID) == 0 || l.ctx.Err() != nil {
		return
	}
	if _, dup := l.seen.LoadOrStore(string(ev.ID), time.Now()); dup {
		return
	}
	select {
	case l.events <- ev:
		return true
	case <-l.ctx.Done():
		return
	}
}

// SourceDone records that one relay has sent its stored events or dropped out.
func (l *Listener) SourceDone() {
	l.mx.Lock()
	l.remaining--
	last := l.remaining == 0
	l.mx.Unlock()
	if last {
		l.markLoaded()
	}
}

func (l *Listener) markLoaded() { l.loadedOnce.Do(func() { close(l.loaded) }) }

// Events delivers the events, it is closed when the listener ends.
func (l *Listener) Events() <-chan *event.T { return l.events }

// Loaded is closed once every relay has answered the subscription or dropped
// out.
func (l *Listener) Loaded() <-chan struct{} { return l.loaded }

// Done is closed when the listener has been canceled.
func (l *Listener) Done() <-chan struct{} { return l.ctx.Done() }

// Cancel closes the subscription on every relay and waits until Events is
// closed. It is safe to call more than once.
func (l *Listener) Cancel() {
	l.cancelOnce.Do(l.cancel)
	<-l.done
	l.markLoaded()
}
