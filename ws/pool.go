package ws

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"

	"longform.lol/context"
	"longform.lol/errorf"
	"longform.lol/event"
	"longform.lol/feed"
	"longform.lol/filter"
	"longform.lol/filters"
	"longform.lol/log"
	"longform.lol/normalize"
	"longform.lol/sign"
	"longform.lol/timestamp"
)

// initialBackoff is how long a dropped subscription waits before the first
// redial, it grows up to maxBackoff.
var initialBackoff = 3 * time.Second

const maxBackoff = time.Minute

// Endpoint is a relay and what the pool uses it for.
type Endpoint struct {
	URL   string
	Read  bool
	Write bool
}

// Quorum is how many writable relays must accept an event for a publish to
// succeed.
type Quorum int

const (
	AtLeastOne Quorum = iota
	Majority
	All
)

// Needed is the number of acceptances required out of n.
func (q Quorum) Needed(n int) int {
	switch q {
	case Majority:
		return n/2 + 1
	case All:
		return n
	}
	return min(1, n)
}

func (q Quorum) String() string {
	switch q {
	case Majority:
		return "majority"
	case All:
		return "all"
	}
	return "one"
}

// ParseQuorum reads one, majority or all.
func ParseQuorum(s string) (q Quorum, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "one", "any", "atleastone":
		return AtLeastOne, nil
	case "majority":
		return Majority, nil
	case "all":
		return All, nil
	}
	err = errorf.E("unknown quorum %q", s)
	return
}

// Status is the last publish result of one relay.
type Status struct {
	URL      string
	At       time.Time
	Accepted bool
	Err      error
}

// Pool owns a fixed set of endpoints and the connections to them.
type Pool struct {
	ctx       context.T
	cancel    context.F
	endpoints []Endpoint
	relays    *xsync.MapOf[string, *Client]
	locks     *xsync.MapOf[string, *sync.Mutex]
	status    *xsync.MapOf[string, Status]
	streams   *xsync.MapOf[canceler, struct{}]
	closed    atomic.Bool
	closeOnce sync.Once

	timeout       time.Duration
	quorum        Quorum
	reconnect     bool
	assumeValid   bool
	feedCap       int
	authHandler   func() sign.Provider
	noticeHandler func(url, msg string)
}

// PoolOption configures a Pool.
type PoolOption interface {
	ApplyPoolOption(*Pool)
}

func (o WithTimeout) ApplyPoolOption(p *Pool) {
	if o > 0 {
		p.timeout = time.Duration(o)
	}
}

func (o WithNoticeHandler) ApplyPoolOption(p *Pool) { p.noticeHandler = o }

func (o WithAssumeValid) ApplyPoolOption(p *Pool) { p.assumeValid = bool(o) }

// WithQuorum sets the publish success policy.
type WithQuorum Quorum

func (o WithQuorum) ApplyPoolOption(p *Pool) { p.quorum = Quorum(o) }

// WithReconnect makes subscriptions redial dropped relays with backoff.
type WithReconnect bool

func (o WithReconnect) ApplyPoolOption(p *Pool) { p.reconnect = bool(o) }

// WithAuthHandler supplies the provider that answers NIP-42 challenges when a
// relay refuses with auth-required. It may return nil when nobody is logged in.
type WithAuthHandler func() sign.Provider

func (o WithAuthHandler) ApplyPoolOption(p *Pool) { p.authHandler = o }

// WithCap sets the size of the merged buffer of a subscription.
type WithCap int

func (o WithCap) ApplyPoolOption(p *Pool) { p.feedCap = int(o) }

func (WithCap) IsSubscriptionOption() {}

// NewPool creates a pool over endpoints. Relays are dialed on first use.
// Endpoints with an invalid URL are dropped, duplicates are merged.
func NewPool(c context.T, endpoints []Endpoint, opts ...PoolOption) (p *Pool) {
	p = &Pool{
		relays:  xsync.NewMapOf[string, *Client](),
		locks:   xsync.NewMapOf[string, *sync.Mutex](),
		status:  xsync.NewMapOf[string, Status](),
		streams: xsync.NewMapOf[canceler, struct{}](),
		timeout: DefaultTimeout,
		feedCap: feed.DefaultCap,
	}
	p.ctx, p.cancel = context.Cancel(c)
	for _, o := range opts {
		o.ApplyPoolOption(p)
	}
	index := make(map[string]int)
	for _, ep := range endpoints {
		u := normalize.URL(ep.URL)
		if u == "" {
			log.W.F("dropping invalid relay URL %q", ep.URL)
			continue
		}
		if i, ok := index[u]; ok {
			p.endpoints[i].Read = p.endpoints[i].Read || ep.Read
			p.endpoints[i].Write = p.endpoints[i].Write || ep.Write
			continue
		}
		index[u] = len(p.endpoints)
		p.endpoints = append(p.endpoints, Endpoint{URL: u, Read: ep.Read, Write: ep.Write})
	}
	return
}

// Endpoints is a copy of the endpoint set.
func (p *Pool) Endpoints() []Endpoint { return append([]Endpoint(nil), p.endpoints...) }

// Readable is the URLs subscriptions go to.
func (p *Pool) Readable() (urls []string) {
	for _, ep := range p.endpoints {
		if ep.Read {
			urls = append(urls, ep.URL)
		}
	}
	return
}

// Writable is the URLs events are published to.
func (p *Pool) Writable() (urls []string) {
	for _, ep := range p.endpoints {
		if ep.Write {
			urls = append(urls, ep.URL)
		}
	}
	return
}

func (p *Pool) clientOptions() (opts []Option) {
	opts = []Option{WithTimeout(p.timeout), WithAssumeValid(p.assumeValid)}
	if p.noticeHandler != nil {
		opts = append(opts, WithNoticeHandler(p.noticeHandler))
	}
	return
}

// EnsureRelay returns a connected client for url, dialing if there is none.
// The dial is bounded by c and the pool timeout, the connection lives until
// the pool is closed or it drops.
func (p *Pool) EnsureRelay(c context.T, url string) (r *Client, err error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	url = normalize.URL(url)
	mx, _ := p.locks.LoadOrStore(url, &sync.Mutex{})
	mx.Lock()
	defer mx.Unlock()
	var ok bool
	if r, ok = p.relays.Load(url); ok && r.IsConnected() {
		return
	}
	r = NewClient(p.ctx, url, p.clientOptions()...)
	if err = r.Connect(c); err != nil {
		return nil, err
	}
	p.relays.Store(url, r)
	return
}

// Publish sends ev to every writable relay at once and returns as soon as the
// quorum has accepted it. Once so many relays have failed that the quorum
// cannot be reached it returns ErrNoRelayAccepted. The remaining sends carry
// on in the background and only update Status.
func (p *Pool) Publish(c context.T, ev *event.T) (err error) {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	urls := p.Writable()
	n := len(urls)
	if n == 0 {
		return errorf.E("%w: no writable relays", ErrNoRelayAccepted)
	}
	need := p.quorum.Needed(n)
	// buffered so sends finishing after we return never block
	results := make(chan error, n)
	for _, u := range urls {
		go func() { results <- p.publishTo(u, ev) }()
	}
	var acks, fails int
	for range n {
		select {
		case err = <-results:
			if err == nil {
				if acks++; acks >= need {
					return
				}
				continue
			}
			if fails++; n-fails < need {
				return errorf.E("%w: %d of %d relays failed, quorum %s needs %d",
					ErrNoRelayAccepted, fails, n, p.quorum, need)
			}
		case <-c.Done():
			return c.Err()
		}
	}
	return errorf.E("%w", ErrNoRelayAccepted)
}

func (p *Pool) publishTo(url string, ev *event.T) (err error) {
	defer func() {
		p.status.Store(url, Status{URL: url, At: time.Now(), Accepted: err == nil, Err: err})
		if err != nil {
			log.W.F("publish %s to %s: %v", ev.IDString(), url, err)
		}
	}()
	var r *Client
	if r, err = p.EnsureRelay(p.ctx, url); err != nil {
		return
	}
	if err = r.Publish(p.ctx, ev); err == nil {
		return
	}
	var rej *Rejection
	if errors.As(err, &rej) && normalize.AuthRequired.IsPrefix(rej.Reason) {
		if err = p.auth(r); err != nil {
			return
		}
		err = r.Publish(p.ctx, ev)
	}
	return
}

func (p *Pool) auth(r *Client) (err error) {
	var provider sign.Provider
	if p.authHandler != nil {
		provider = p.authHandler()
	}
	if provider == nil {
		return errorf.D("%s requires auth and nobody is logged in", r.URL())
	}
	return r.Auth(p.ctx, provider)
}

// Status is the last publish result of each relay that has had one.
func (p *Pool) Status() (m map[string]Status) {
	m = make(map[string]Status)
	p.status.Range(func(u string, s Status) bool {
		m[u] = s
		return true
	})
	return
}

// Subscribe opens ff on every readable relay and merges what they send into
// one stream. A relay failing only stops its own contribution. Canceling c or
// the stream closes the subscription on every relay.
func (p *Pool) Subscribe(c context.T, ff *filters.T, opts ...SubscriptionOption) (s *feed.Stream) {
	urls := p.Readable()
	capacity := p.feedCap
	for _, o := range opts {
		if v, ok := o.(WithCap); ok {
			capacity = int(v)
		}
	}
	s = feed.NewStream(c, feed.NewMerger(capacity), len(urls))
	p.streams.Store(s, struct{}{})
	if p.closed.Load() {
		p.streams.Delete(s)
		s.Cancel()
		return
	}
	go func() {
		<-s.Done()
		p.streams.Delete(s)
	}()
	for _, u := range urls {
		f := ff.Clone()
		s.Go(func(c context.T) { p.listen(c, s, u, f, opts) })
	}
	return
}

func (p *Pool) listen(c context.T, s sink, url string, ff *filters.T,
	opts []SubscriptionOption) {

	var once sync.Once
	done := func() { once.Do(s.SourceDone) }
	defer done()
	interval := initialBackoff
	for {
		subscribed := p.listenOnce(c, s, url, ff, opts, done)
		if !p.reconnect || c.Err() != nil {
			return
		}
		// a relay that is down does not hold back Loaded
		done()
		if subscribed {
			interval = initialBackoff
			// stored events were already delivered
			now := timestamp.Now()
			for _, f := range ff.F {
				f.Since = now
			}
		}
		log.D.F("resubscribing to %s in %v", url, interval)
		select {
		case <-c.Done():
			return
		case <-time.After(interval):
		}
		interval = min(interval*17/10, maxBackoff)
	}
}

// listenOnce runs one subscription on url until it ends, reporting whether the
// REQ was sent at all.
func (p *Pool) listenOnce(c context.T, s sink, url string, ff *filters.T,
	opts []SubscriptionOption, done func()) (subscribed bool) {

	r, err := p.EnsureRelay(c, url)
	if err != nil {
		log.D.F("subscribe to %s: %v", url, err)
		return
	}
	authed := false
	for {
		var sub *Subscription
		if sub, err = r.Subscribe(c, ff, opts...); err != nil {
			log.D.F("subscribe to %s: %v", url, err)
			return
		}
		subscribed = true
		eose := sub.EndOfStoredEvents
		retry := false
	events:
		for {
			select {
			case ev, more := <-sub.Events:
				if !more {
					return
				}
				s.Push(ev)
			case <-eose:
				eose = nil
				done()
			case reason := <-sub.ClosedReason:
				sub.Unsub()
				if !authed && normalize.AuthRequired.IsPrefix(reason) {
					authed = true
					if err = p.auth(r); err == nil {
						retry = true
						break events
					}
				}
				log.D.F("%s closed subscription: %s", url, reason)
				return
			}
		}
		if !retry {
			return
		}
	}
}

// Listen opens ff on every readable relay like Subscribe, but delivers every
// event once in arrival order instead of merging into a bounded buffer.
func (p *Pool) Listen(c context.T, ff *filters.T, opts ...SubscriptionOption) (l *Listener) {
	urls := p.Readable()
	l = newListener(c, len(urls))
	p.streams.Store(l, struct{}{})
	if p.closed.Load() {
		p.streams.Delete(l)
		l.start()
		l.Cancel()
		return
	}
	for _, u := range urls {
		f := ff.Clone()
		l.Go(func(c context.T) { p.listen(c, l, u, f, opts) })
	}
	l.start()
	go func() {
		<-l.Done()
		p.streams.Delete(l)
	}()
	return
}

// QuerySingle asks every readable relay for f and returns the first event any
// of them sends, or nil if none has one before its EOSE.
func (p *Pool) QuerySingle(c context.T, f *filter.T) (ev *event.T, err error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	urls := p.Readable()
	c, cancel := context.Timeout(c, p.timeout)
	defer cancel()
	ff := filters.New(f.Clone().WithLimit(1))
	found := make(chan *event.T, len(urls))
	g, gc := errgroup.WithContext(c)
	for _, u := range urls {
		g.Go(func() error {
			r, err := p.EnsureRelay(gc, u)
			if err != nil {
				log.D.F("query %s: %v", u, err)
				return nil
			}
			sub, err := r.Subscribe(gc, ff, WithLabel("single"))
			if err != nil {
				log.D.F("query %s: %v", u, err)
				return nil
			}
			defer sub.Unsub()
			select {
			case e, more := <-sub.Events:
				if more {
					found <- e
					cancel()
				}
			case <-sub.EndOfStoredEvents:
			case <-sub.ClosedReason:
			case <-gc.Done():
			}
			return nil
		})
	}
	_ = g.Wait()
	select {
	case ev = <-found:
	default:
	}
	return
}

// Close ends every subscription, sending CLOSE to the relays, then closes
// every connection. It is safe to call more than once.
func (p *Pool) Close() (err error) {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		var g errgroup.Group
		p.streams.Range(func(s canceler, _ struct{}) bool {
			g.Go(func() error {
				s.Cancel()
				return nil
			})
			return true
		})
		_ = g.Wait()
		p.relays.Range(func(_ string, r *Client) bool {
			g.Go(r.Close)
			return true
		})
		err = g.Wait()
		p.cancel()
	})
	return
}

func (p *Pool) String() string {
	return fmt.Sprintf("pool of %d relays, quorum %s", len(p.endpoints), p.quorum)
}
