package bunker

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"lukechampine.com/frand"

	"longform.lol/chk"
	"longform.lol/context"
	"longform.lol/errorf"
	"longform.lol/event"
	"longform.lol/filter"
	"longform.lol/filters"
	"longform.lol/hex"
	"longform.lol/kind"
	"longform.lol/kinds"
	"longform.lol/log"
	"longform.lol/p256k"
	"longform.lol/sign"
	"longform.lol/signer"
	"longform.lol/timestamp"
	"longform.lol/ws"
)

// DefaultTimeout bounds one request, the signer may be waiting on its user.
const DefaultTimeout = time.Minute

// Client talks to one remote signer.
type Client struct {
	serial    atomic.Uint64
	keys      signer.I
	session   *Session
	ctx       context.T
	cancel    context.F
	pool      *ws.Pool
	listener  *ws.Listener
	listeners *xsync.MapOf[string, chan Response]
	idPrefix  string
	timeout   time.Duration
	onAuth    func(url string)
	closeOnce sync.Once

	pubMx sync.Mutex
	pub   []byte
}

var _ sign.Capability = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithKeys sets the client's own key pair, a fresh one is made otherwise.
func WithKeys(keys signer.I) Option { return func(c *Client) { c.keys = keys } }

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithContext sets the context the relay connections live in. They are
// closed when it ends or on Close, whichever is first. The default is
// context.Bg.
func WithContext(c context.T) Option { return func(cl *Client) { cl.ctx = c } }

// WithAuthHandler is called with the URL a signer asks the user to visit.
func WithAuthHandler(f func(url string)) Option { return func(c *Client) { c.onAuth = f } }

// Connect dials the signer named by a bunker URL and sends connect with its
// secret.
func Connect(c context.T, bunkerURL string, opts ...Option) (cl *Client, err error) {
	var u *URL
	if u, err = ParseURL(bunkerURL); err != nil {
		return
	}
	if cl, err = New(c, u.Signer, u.Relays, opts...); err != nil {
		return
	}
	var result string
	if result, err = cl.RPC(c, MethodConnect, hex.Enc(u.Signer), u.Secret); err != nil {
		cl.Close()
		return nil, err
	}
	if result != "ack" && result != u.Secret {
		cl.Close()
		return nil, errorf.E("signer answered connect with %q", result)
	}
	return
}

// New starts listening for responses from target on relays. It returns once
// the relays have answered the subscription. c only bounds that wait, the
// connections outlive it.
func New(c context.T, target []byte, relays []string, opts ...Option) (cl *Client, err error) {
	cl = &Client{
		ctx:       context.Bg(),
		listeners: xsync.NewMapOf[string, chan Response](),
		idPrefix:  hex.Enc(frand.Bytes(4)),
		timeout:   DefaultTimeout,
	}
	for _, o := range opts {
		o(cl)
	}
	cl.ctx, cl.cancel = context.Cancel(cl.ctx)
	if cl.keys == nil {
		k := &p256k.Signer{}
		if err = k.Generate(); chk.E(err) {
			cl.cancel()
			return nil, err
		}
		cl.keys = k
	}
	if cl.session, err = NewSession(cl.keys, target); err != nil {
		cl.cancel()
		return nil, err
	}
	endpoints := make([]ws.Endpoint, len(relays))
	for i, r := range relays {
		endpoints[i] = ws.Endpoint{URL: r, Read: true, Write: true}
	}
	cl.pool = ws.NewPool(cl.ctx, endpoints, ws.WithReconnect(true))
	f := filter.New()
	f.Kinds = kinds.New(kind.NostrConnect)
	f.Authors = []string{hex.Enc(target)}
	f.AddTag('p', hex.Enc(cl.keys.Pub()))
	f.Since = timestamp.Now()
	// replies are read straight off the relays, a merged feed would drop
	// them once it filled up
	cl.listener = cl.pool.Listen(cl.ctx, filters.New(f))
	select {
	case <-cl.listener.Loaded():
	case <-c.Done():
		cl.Close()
		return nil, c.Err()
	}
	go cl.dispatch()
	return
}

func (cl *Client) dispatch() {
	for ev := range cl.listener.Events() {
		cl.handle(ev)
	}
}

func (cl *Client) handle(ev *event.T) {
	var resp Response
	if err := cl.session.Open(ev, &resp); err != nil {
		log.D.F("unreadable signer message %s: %v", ev.IDString(), err)
		return
	}
	if resp.Result == AuthURL {
		if cl.onAuth != nil {
			cl.onAuth(resp.Error)
		} else {
			log.I.F("signer asks for approval at %s", resp.Error)
		}
		return
	}
	if ch, ok := cl.listeners.Load(resp.ID); ok {
		select {
		case ch <- resp:
		default:
		}
	}
}

// RPC sends one request and waits for its response.
func (cl *Client) RPC(c context.T, method string, params ...string) (result string, err error) {
	c, cancel := context.Timeout(c, cl.timeout)
	defer cancel()
	if params == nil {
		params = []string{}
	}
	req := &Request{
		ID:     cl.idPrefix + "-" + strconv.FormatUint(cl.serial.Add(1), 10),
		Method: method,
		Params: params,
	}
	var ev *event.T
	if ev, err = cl.session.Seal(req); err != nil {
		return
	}
	ch := make(chan Response, 1)
	cl.listeners.Store(req.ID, ch)
	defer cl.listeners.Delete(req.ID)
	log.T.F("bunker request %s", req)
	if err = cl.pool.Publish(c, ev); err != nil {
		return
	}
	select {
	case resp := <-ch:
		if resp.Error != "" {
			return "", errorf.D("%s: %s", method, resp.Error)
		}
		result = resp.Result
	case <-c.Done():
		err = errorf.D("%s: %w", method, c.Err())
	}
	return
}

func (cl *Client) Ping(c context.T) (err error) {
	_, err = cl.RPC(c, MethodPing)
	return
}

// GetPublicKey asks for the user's public key once and remembers it.
func (cl *Client) GetPublicKey(c context.T) (pub []byte, err error) {
	cl.pubMx.Lock()
	defer cl.pubMx.Unlock()
	if cl.pub != nil {
		return cl.pub, nil
	}
	var result string
	if result, err = cl.RPC(c, MethodGetPublicKey); err != nil {
		return
	}
	if pub, err = hex.DecFixed(result, 32); err != nil {
		return nil, errorf.D("signer returned bad public key: %w", err)
	}
	cl.pub = pub
	return
}

// SignEvent has the signer sign the template of unsigned.
func (cl *Client) SignEvent(c context.T, unsigned *event.T) (signed *event.T, err error) {
	var tmpl []byte
	if tmpl, err = unsigned.AppendTemplate(nil); err != nil {
		return
	}
	var result string
	if result, err = cl.RPC(c, MethodSignEvent, string(tmpl)); err != nil {
		return
	}
	signed = event.New()
	if err = signed.UnmarshalJSON([]byte(result)); err != nil {
		return nil, errorf.D("signer returned bad event: %w", err)
	}
	return
}

// Close stops listening and closes the relay connections.
func (cl *Client) Close() {
	cl.closeOnce.Do(func() {
		if cl.listener != nil {
			cl.listener.Cancel()
		}
		if cl.pool != nil {
			chk.D(cl.pool.Close())
		}
		cl.cancel()
	})
}
