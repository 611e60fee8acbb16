// Package ws is the relay transport: one websocket Client per relay, REQ
// Subscriptions on it, and a Pool that fans publishes out to and merges
// subscriptions in from a static set of endpoints.
package ws

import (
	"bytes"
	"errors"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"longform.lol/auth"
	"longform.lol/chk"
	"longform.lol/context"
	"longform.lol/envelopes"
	"longform.lol/envelopes/authenvelope"
	"longform.lol/envelopes/closedenvelope"
	"longform.lol/envelopes/eoseenvelope"
	"longform.lol/envelopes/eventenvelope"
	"longform.lol/envelopes/noticeenvelope"
	"longform.lol/envelopes/okenvelope"
	"longform.lol/errorf"
	"longform.lol/event"
	"longform.lol/filters"
	"longform.lol/hex"
	"longform.lol/log"
	"longform.lol/normalize"
	"longform.lol/sign"
	"longform.lol/subscriptionid"
)

// DefaultTimeout bounds every single relay operation unless configured.
const DefaultTimeout = 5 * time.Second

const pingInterval = 29 * time.Second

// Client is a connection to one relay.
type Client struct {
	// Ctx is done when the connection closes, its cause says why.
	Ctx    context.T
	cancel context.C
	once   sync.Once
	url    string
	// RequestHeader is sent with the handshake, e.g. an Origin.
	RequestHeader http.Header
	Connection    *Connection
	Subscriptions *xsync.MapOf[string, *Subscription]
	connected     atomic.Bool
	counter       atomic.Int32

	challengeMx sync.Mutex
	challenge   string

	// okWaiters holds every publish waiting on an OK, by event id.
	okWaiters  *xsync.MapOf[string, []*okWaiter]
	writeQueue chan writeRequest

	timeout       time.Duration
	noticeHandler func(url, msg string)
	// AssumeValid skips signature checks on events from this relay.
	AssumeValid bool
}

type okWaiter struct{ f func(ok bool, reason string) }

type writeRequest struct {
	msg    []byte
	answer chan error
}

// Option configures a Client.
type Option interface {
	ApplyClientOption(*Client)
}

// WithTimeout bounds each relay operation.
type WithTimeout time.Duration

func (o WithTimeout) ApplyClientOption(r *Client) {
	if o > 0 {
		r.timeout = time.Duration(o)
	}
}

// WithNoticeHandler receives the NOTICE messages of a relay.
type WithNoticeHandler func(url, msg string)

func (o WithNoticeHandler) ApplyClientOption(r *Client) { r.noticeHandler = o }

// WithAssumeValid skips signature verification of received events.
type WithAssumeValid bool

func (o WithAssumeValid) ApplyClientOption(r *Client) { r.AssumeValid = bool(o) }

// NewClient creates a client for url. Canceling c closes the connection.
func NewClient(c context.T, url string, opts ...Option) (r *Client) {
	r = &Client{
		url:           normalize.URL(url),
		Subscriptions: xsync.NewMapOf[string, *Subscription](),
		okWaiters:     xsync.NewMapOf[string, []*okWaiter](),
		writeQueue:    make(chan writeRequest),
		timeout:       DefaultTimeout,
	}
	r.Ctx, r.cancel = context.CancelCause(c)
	for _, o := range opts {
		o.ApplyClientOption(r)
	}
	return
}

// Connect creates a client and connects it.
func Connect(c context.T, url string, opts ...Option) (r *Client, err error) {
	r = NewClient(c, url, opts...)
	err = r.Connect(c)
	return
}

func (r *Client) URL() string { return r.url }

func (r *Client) String() string { return r.url }

// IsConnected reports whether the connection is up.
func (r *Client) IsConnected() bool { return r.connected.Load() && r.Ctx.Err() == nil }

// Challenge is the last NIP-42 challenge the relay sent.
func (r *Client) Challenge() string {
	r.challengeMx.Lock()
	defer r.challengeMx.Unlock()
	return r.challenge
}

// Connect dials the relay, bounded by the client timeout, and starts the read
// and write loops. Once connected, canceling c has no effect; use Close.
func (r *Client) Connect(c context.T) (err error) {
	if r.Ctx == nil || r.Subscriptions == nil {
		return errorf.E("client must be created with NewClient")
	}
	if r.url == "" {
		return errorf.E("%w: invalid relay URL", ErrConnection)
	}
	dc, cancel := context.Timeout(c, r.timeout)
	defer cancel()
	if r.Connection, err = NewConnection(dc, r.url, r.RequestHeader, nil); err != nil {
		if errors.Is(dc.Err(), context.DeadlineExceeded) {
			err = errorf.D("%w: %w", ErrTimeout, err)
		}
		r.closeWith(err)
		return
	}
	r.connected.Store(true)
	go func() {
		<-r.Ctx.Done()
		chk.T(r.Connection.Close())
		r.Subscriptions.Range(func(_ string, sub *Subscription) bool {
			sub.cancel()
			return true
		})
	}()
	go r.writeLoop()
	go r.readLoop()
	return
}

func (r *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.Connection.Ping(); err != nil {
				log.D.F("ping %s: %v", r.url, err)
				r.closeWith(err)
				return
			}
		case wr := <-r.writeQueue:
			log.T.F("{%s} sending %s", r.url, wr.msg)
			err := r.Connection.WriteMessage(r.Ctx, wr.msg)
			wr.answer <- err
			if err != nil {
				r.closeWith(err)
				return
			}
		case <-r.Ctx.Done():
			return
		}
	}
}

func (r *Client) readLoop() {
	buf := new(bytes.Buffer)
	for {
		buf.Reset()
		if err := r.Connection.ReadMessage(r.Ctx, buf); err != nil {
			r.closeWith(err)
			return
		}
		log.T.F("{%s} received %s", r.url, buf.Bytes())
		r.handle(buf.Bytes())
	}
}

func (r *Client) handle(msg []byte) {
	label, fields, err := envelopes.Identify(msg)
	if chk.D(err) {
		return
	}
	switch label {
	case noticeenvelope.L:
		var env *noticeenvelope.T
		if env, err = noticeenvelope.Parse(fields); chk.D(err) {
			return
		}
		log.I.F("NOTICE from %s: '%s'", r.url, env.Message)
		if r.noticeHandler != nil {
			r.noticeHandler(r.url, env.Message)
		}
	case authenvelope.L:
		var env *authenvelope.Challenge
		if env, err = authenvelope.ParseChallenge(fields); chk.D(err) {
			return
		}
		r.challengeMx.Lock()
		r.challenge = env.Challenge
		r.challengeMx.Unlock()
	case eventenvelope.L:
		var env *eventenvelope.Result
		if env, err = eventenvelope.ParseResult(fields); chk.D(err) {
			return
		}
		sub, ok := r.Subscriptions.Load(env.Subscription.String())
		if !ok {
			log.T.F("{%s} event for unknown subscription %s", r.url, env.Subscription)
			return
		}
		if !sub.Filters.Match(env.Event) {
			log.D.F("{%s} filter does not match event %s", r.url, env.Event.IDString())
			return
		}
		if !r.AssumeValid {
			var valid bool
			if valid, err = env.Event.Verify(); !valid {
				log.D.F("{%s} bad signature on %s: %v", r.url, env.Event.IDString(), err)
				return
			}
		}
		sub.dispatchEvent(env.Event)
	case eoseenvelope.L:
		var env *eoseenvelope.T
		if env, err = eoseenvelope.Parse(fields); chk.D(err) {
			return
		}
		if sub, ok := r.Subscriptions.Load(env.Subscription.String()); ok {
			sub.dispatchEose()
		}
	case closedenvelope.L:
		var env *closedenvelope.T
		if env, err = closedenvelope.Parse(fields); chk.D(err) {
			return
		}
		if sub, ok := r.Subscriptions.Load(env.Subscription.String()); ok {
			sub.dispatchClosed(env.Reason)
		}
	case okenvelope.L:
		var env *okenvelope.T
		if env, err = okenvelope.Parse(fields); chk.D(err) {
			return
		}
		if ws, ok := r.okWaiters.Load(hex.Enc(env.EventID)); ok {
			for _, w := range ws {
				w.f(env.OK, env.Reason)
			}
		}
	default:
		log.D.F("{%s} unknown message %s", r.url, label)
	}
}

// lost is the error for an operation cut short by the connection closing.
func (r *Client) lost() error {
	if cause := context.Cause(r.Ctx); cause != nil {
		return cause
	}
	return ErrConnection
}

// Write queues msg and waits for it to be written.
func (r *Client) Write(msg []byte) (err error) {
	answer := make(chan error, 1)
	t := time.NewTimer(r.timeout)
	defer t.Stop()
	select {
	case r.writeQueue <- writeRequest{msg: msg, answer: answer}:
	case <-r.Ctx.Done():
		return r.lost()
	case <-t.C:
		return errorf.D("%w: write to %s", ErrTimeout, r.url)
	}
	select {
	case err = <-answer:
		if err != nil {
			err = errorf.D("%w: %s: %w", ErrConnection, r.url, err)
		}
	case <-r.Ctx.Done():
		err = r.lost()
	}
	return
}

// Publish sends an event and waits for the relay's OK.
func (r *Client) Publish(c context.T, ev *event.T) error {
	return r.publish(c, ev.ID, eventenvelope.NewSubmissionWith(ev))
}

// Auth answers the relay's last challenge with an event signed by p.
func (r *Client) Auth(c context.T, p sign.Provider) (err error) {
	challenge := r.Challenge()
	if challenge == "" {
		return errorf.D("%s has not sent an auth challenge", r.url)
	}
	ev := auth.CreateUnsigned(challenge, r.url)
	if err = p.Sign(c, ev); err != nil {
		return
	}
	return r.publish(c, ev.ID, authenvelope.NewResponseWith(ev))
}

func (r *Client) publish(c context.T, id []byte, en envelopes.Envelope) (err error) {
	c, cancel := context.Timeout(c, r.timeout)
	defer cancel()
	key := hex.Enc(id)
	result := make(chan error, 1)
	w := &okWaiter{func(ok bool, reason string) {
		var res error
		if !ok {
			res = &Rejection{URL: r.url, Reason: reason}
			log.D.Ln(res)
		}
		select {
		case result <- res:
		default:
		}
	}}
	r.addWaiter(key, w)
	defer r.removeWaiter(key, w)
	var b []byte
	if b, err = en.Marshal(nil); chk.E(err) {
		return
	}
	if err = r.Write(b); err != nil {
		return
	}
	select {
	case err = <-result:
	case <-c.Done():
		if errors.Is(c.Err(), context.DeadlineExceeded) {
			err = errorf.D("%w: no OK from %s", ErrTimeout, r.url)
		} else {
			err = c.Err()
		}
	case <-r.Ctx.Done():
		err = r.lost()
	}
	return
}

// addWaiter registers w for the OK of key. The slices are never modified in
// place, the read loop may be ranging over an older one.
func (r *Client) addWaiter(key string, w *okWaiter) {
	r.okWaiters.Compute(key, func(old []*okWaiter, _ bool) ([]*okWaiter, bool) {
		return append(slices.Clone(old), w), false
	})
}

func (r *Client) removeWaiter(key string, w *okWaiter) {
	r.okWaiters.Compute(key, func(old []*okWaiter, _ bool) ([]*okWaiter, bool) {
		ws := slices.DeleteFunc(slices.Clone(old), func(o *okWaiter) bool { return o == w })
		return ws, len(ws) == 0
	})
}

// Subscribe sends a REQ for ff. The subscription ends when c is canceled.
func (r *Client) Subscribe(c context.T, ff *filters.T,
	opts ...SubscriptionOption) (sub *Subscription, err error) {

	sub = r.PrepareSubscription(c, ff, opts...)
	if !r.IsConnected() {
		sub.cancel()
		return nil, r.lost()
	}
	if err = sub.Fire(); err != nil {
		return nil, err
	}
	return
}

// PrepareSubscription registers a subscription without sending the REQ.
func (r *Client) PrepareSubscription(c context.T, ff *filters.T,
	opts ...SubscriptionOption) (sub *Subscription) {

	sub = &Subscription{
		Relay:             r,
		Filters:           ff,
		counter:           int(r.counter.Add(1)),
		Events:            make(event.C),
		EndOfStoredEvents: make(chan struct{}),
		ClosedReason:      make(chan string, 1),
	}
	for _, o := range opts {
		if label, ok := o.(WithLabel); ok {
			sub.label = string(label)
		}
	}
	if sub.label == "" {
		sub.label = subscriptionid.NewStd().String()
	}
	sub.Context, sub.cancel = context.Cancel(c)
	r.Subscriptions.Store(sub.GetID().String(), sub)
	go sub.start()
	return
}

func (r *Client) closeWith(err error) {
	r.once.Do(func() {
		r.connected.Store(false)
		if err == nil {
			err = errorf.T("%w: %s closed", ErrConnection, r.url)
		} else if !errors.Is(err, ErrConnection) {
			err = errorf.T("%w: %s: %w", ErrConnection, r.url, err)
		}
		r.cancel(err)
	})
}

// Close closes the connection. It is safe to call more than once.
func (r *Client) Close() error {
	r.closeWith(nil)
	return nil
}
