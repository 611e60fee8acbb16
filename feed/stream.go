package feed

import (
	"slices"
	"sync"

	"longform.lol/context"
	"longform.lol/event"
)

// Update is what a consumer of a Stream receives: the events that entered the
// buffer since the previous update and a snapshot of the whole buffer, both in
// buffer order.
type Update struct {
	Added []*event.T
	Items []*event.T
}

// Stream is the consumer side of a merged subscription. Sources push events
// into it, and a dispatcher goroutine coalesces them into Updates so a slow
// consumer only sees fewer, larger updates and never blocks a source.
type Stream struct {
	merger  *Merger
	ctx     context.T
	cancel  context.F
	updates chan Update
	notify  chan struct{}
	done    chan struct{}

	mx      sync.Mutex
	pending []*event.T

	loaded     chan struct{}
	loadedOnce sync.Once
	remaining  int

	sources    sync.WaitGroup
	cancelOnce sync.Once
}

// NewStream creates a stream over merger that is loaded once sources sources
// have reported done. The stream ends when c is canceled or Cancel is called.
func NewStream(c context.T, merger *Merger, sources int) (s *Stream) {
	s = &Stream{
		merger:    merger,
		updates:   make(chan Update),
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
		loaded:    make(chan struct{}),
		remaining: sources,
	}
	s.ctx, s.cancel = context.Cancel(c)
	if sources <= 0 {
		s.markLoaded()
	}
	go s.dispatch()
	return
}

// Context is canceled when the stream ends, sources stop when it is.
func (s *Stream) Context() context.T { return s.ctx }

// Updates delivers coalesced updates. It is closed when the stream ends.
func (s *Stream) Updates() <-chan Update { return s.updates }

// Loaded is closed once every source has finished sending stored events or has
// dropped out, or the stream has ended.
func (s *Stream) Loaded() <-chan struct{} { return s.loaded }

// Items is a snapshot of the merged buffer.
func (s *Stream) Items() []*event.T { return s.merger.Items() }

// Go runs a source. Cancel waits for every source to return.
func (s *Stream) Go(f func(c context.T)) {
	s.sources.Add(1)
	go func() {
		defer s.sources.Done()
		f(s.ctx)
	}()
}

// Push offers an event from a source. It never blocks.
func (s *Stream) Push(ev *event.T) (kept bool) {
	if s.ctx.Err() != nil {
		return
	}
	if kept = s.merger.Add(ev); !kept {
		return
	}
	s.mx.Lock()
	s.pending = append(s.pending, ev)
	s.mx.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return
}

// SourceDone records that one source has delivered its stored events or has
// gone away. Each source calls it at most once.
func (s *Stream) SourceDone() {
	s.mx.Lock()
	s.remaining--
	last := s.remaining == 0
	s.mx.Unlock()
	if last {
		s.markLoaded()
	}
}

func (s *Stream) markLoaded() { s.loadedOnce.Do(func() { close(s.loaded) }) }

func (s *Stream) dispatch() {
	defer func() {
		close(s.updates)
		close(s.done)
	}()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.notify:
		}
		s.mx.Lock()
		pending := s.pending
		s.pending = nil
		s.mx.Unlock()
		items := s.merger.Items()
		present := make(map[string]struct{}, len(items))
		for _, ev := range items {
			present[string(ev.ID)] = struct{}{}
		}
		added := pending[:0]
		for _, ev := range pending {
			if _, ok := present[string(ev.ID)]; ok {
				added = append(added, ev)
			}
		}
		if len(added) == 0 {
			continue
		}
		slices.SortFunc(added, event.Compare)
		select {
		case s.updates <- Update{Added: added, Items: items}:
		case <-s.ctx.Done():
			return
		}
	}
}

// Cancel ends the stream. It waits for the sources to stop, so per relay
// subscriptions are closed, and for the dispatcher to exit, so no update is
// delivered after it returns. It is safe to call more than once.
func (s *Stream) Cancel() {
	s.cancelOnce.Do(s.cancel)
	s.sources.Wait()
	<-s.done
	s.markLoaded()
}

// Done is closed when the stream has ended.
func (s *Stream) Done() <-chan struct{} { return s.ctx.Done() }
