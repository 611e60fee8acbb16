// Package client is the surface the presentation layer talks to: log in with a
// bunker or a local key, publish articles and notes, follow a merged article
// feed and look up profiles over the configured relays.
package client

import (
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"longform.lol/article"
	"longform.lol/bech32encoding"
	"longform.lol/bunker"
	"longform.lol/chk"
	"longform.lol/config"
	"longform.lol/context"
	"longform.lol/errorf"
	"longform.lol/event"
	"longform.lol/filter"
	"longform.lol/filters"
	"longform.lol/keys"
	"longform.lol/kind"
	"longform.lol/kinds"
	"longform.lol/log"
	"longform.lol/profile"
	"longform.lol/relayinfo"
	"longform.lol/session"
	"longform.lol/sign"
	"longform.lol/tags"
	"longform.lol/timestamp"
	"longform.lol/ws"
)

// ArticleLimit is how many articles a feed asks each relay for.
const ArticleLimit = 50

var (
	// ErrProfileNotFound is returned when no relay has metadata for a key.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNoBunker is returned by the default probe when no bunker url is set.
	ErrNoBunker = errors.New("no bunker url configured")
)

// T is a client bound to one relay pool and one login session.
type T struct {
	cfg     *config.C
	ctx     context.T
	cancel  context.F
	pool    *ws.Pool
	session *session.T
	now     func() time.Time

	probe       sign.Probe
	poolOptions []ws.PoolOption

	mx     sync.Mutex
	remote *bunker.Client
}

// Option changes how a client is built.
type Option func(*T)

// WithProbe replaces the bunker lookup used by AuthenticateDelegated.
func WithProbe(p sign.Probe) Option { return func(t *T) { t.probe = p } }

// WithClock replaces time.Now for building events.
func WithClock(now func() time.Time) Option { return func(t *T) { t.now = now } }

// WithPoolOptions adds options to the relay pool after those from the
// configuration.
func WithPoolOptions(opts ...ws.PoolOption) Option {
	return func(t *T) { t.poolOptions = append(t.poolOptions, opts...) }
}

// New creates a client over the relays of cfg. Nothing is dialed until the
// first publish or subscription.
func New(c context.T, cfg *config.C, opts ...Option) (t *T, err error) {
	if cfg == nil {
		if cfg, err = config.New(); err != nil {
			return
		}
	}
	var eps []ws.Endpoint
	if eps, err = cfg.Endpoints(); chk.E(err) {
		return
	}
	t = &T{cfg: cfg, now: time.Now}
	t.probe = t.bunkerProbe
	for _, o := range opts {
		o(t)
	}
	t.session = session.New(t.probe)
	t.ctx, t.cancel = context.Cancel(c)
	po := append(cfg.PoolOptions(), ws.WithAuthHandler(t.session.Provider))
	t.pool = ws.NewPool(t.ctx, eps, append(po, t.poolOptions...)...)
	log.D.F("client over %s", t.pool)
	return
}

// bunkerProbe connects to the bunker named in the configuration.
func (t *T) bunkerProbe(c context.T) (capability sign.Capability, err error) {
	if t.cfg.Bunker == "" {
		return nil, ErrNoBunker
	}
	var b *bunker.Client
	if b, err = bunker.Connect(c, t.cfg.Bunker, bunker.WithContext(t.ctx)); err != nil {
		return
	}
	t.mx.Lock()
	old := t.remote
	t.remote = b
	t.mx.Unlock()
	if old != nil {
		old.Close()
	}
	return b, nil
}

func (t *T) closeRemote() {
	t.mx.Lock()
	b := t.remote
	t.remote = nil
	t.mx.Unlock()
	if b != nil {
		b.Close()
	}
}

// Pool is the relay pool, for diagnostics.
func (t *T) Pool() *ws.Pool { return t.pool }

// Session is the login state.
func (t *T) Session() *session.T { return t.session }

// AuthenticateDelegated logs in through the external signer.
func (t *T) AuthenticateDelegated(c context.T) (err error) {
	if err = t.session.AuthenticateDelegated(c); err != nil {
		t.closeRemote()
	}
	return
}

// AuthenticateLocalKey logs in with a hex or nsec secret key.
func (t *T) AuthenticateLocalKey(secret string) (err error) {
	t.closeRemote()
	return t.session.AuthenticateLocalKey(secret)
}

// Authenticate logs in with NSEC when it is configured, otherwise through
// the bunker.
func (t *T) Authenticate(c context.T) (err error) {
	if t.cfg.Nsec != "" {
		return t.AuthenticateLocalKey(t.cfg.Nsec)
	}
	return t.AuthenticateDelegated(c)
}

// Logout forgets the identity and keeps the relay connections.
func (t *T) Logout() {
	t.session.Disconnect()
	t.closeRemote()
}

// Disconnect forgets the identity and closes every relay connection. It is
// safe to call more than once.
func (t *T) Disconnect() {
	t.Logout()
	chk.D(t.pool.Close())
	t.cancel()
}

// PublicKey is the hex public key of the current identity, empty when logged
// out.
func (t *T) PublicKey() string {
	if id := t.session.Identity(); id != nil {
		return id.PublicKeyHex()
	}
	return ""
}

// publish signs ev as the current identity and sends it to the writable
// relays.
func (t *T) publish(c context.T, ev *event.T) (err error) {
	if err = t.session.Sign(c, ev); err != nil {
		return
	}
	if err = t.pool.Publish(c, ev); err != nil {
		return
	}
	log.I.F("published %s kind %d", ev.IDString(), ev.Kind.ToInt())
	return
}

// PublishArticle publishes a long form article. summary and image may be
// empty.
func (t *T) PublishArticle(c context.T, title, content, summary, image string) (a *article.T, err error) {
	ev := article.New(title, content, summary, image, t.now())
	if err = t.publish(c, ev); err != nil {
		return
	}
	return article.FromEvent(ev)
}

// PublishNote publishes a short text note.
func (t *T) PublishNote(c context.T, content string) (ev *event.T, err error) {
	ev = &event.T{
		CreatedAt: timestamp.FromTime(t.now()),
		Kind:      kind.TextNote,
		Tags:      tags.New(),
		Content:   []byte(content),
	}
	if err = t.publish(c, ev); err != nil {
		return nil, err
	}
	return
}

// PublishProfile replaces the metadata of the current identity.
func (t *T) PublishProfile(c context.T, p *profile.T) (ev *event.T, err error) {
	if ev, err = p.Event(); err != nil {
		return
	}
	ev.CreatedAt = timestamp.FromTime(t.now())
	if err = t.publish(c, ev); err != nil {
		return nil, err
	}
	return
}

// GetProfile fetches the newest metadata one relay has for a hex public key.
func (t *T) GetProfile(c context.T, pubHex string) (p *profile.T, err error) {
	if !keys.IsValid32ByteHex(pubHex) {
		return nil, errorf.D("%w: %q", bech32encoding.ErrMalformedIdentifier, pubHex)
	}
	f := &filter.T{
		Kinds:   kinds.New(kind.ProfileMetadata),
		Authors: []string{pubHex},
	}
	var ev *event.T
	if ev, err = t.pool.QuerySingle(c, f.WithLimit(1)); err != nil {
		return
	}
	if ev == nil {
		return nil, ErrProfileNotFound
	}
	return profile.FromEvent(ev)
}

// SubscribeToArticles follows the newest articles of authors, or of everyone
// when none are given. Authors may be hex or npub.
func (t *T) SubscribeToArticles(c context.T, authors ...string) (s *ArticleStream, err error) {
	f := &filter.T{Kinds: kinds.New(kind.LongFormContent)}
	for _, a := range authors {
		var pub string
		if pub, err = normalizeAuthor(a); err != nil {
			return
		}
		f.Authors = append(f.Authors, pub)
	}
	return newArticleStream(t.pool.Subscribe(c, filters.New(f.WithLimit(ArticleLimit)))), nil
}

func normalizeAuthor(a string) (pub string, err error) {
	a = strings.TrimSpace(a)
	if keys.IsValid32ByteHex(a) {
		return strings.ToLower(a), nil
	}
	return bech32encoding.DecodeIdentity(a)
}

// EncodeIdentity renders a hex public key as npub.
func EncodeIdentity(pubHex string) (string, error) { return bech32encoding.EncodeIdentity(pubHex) }

// DecodeIdentity turns an npub into a hex public key.
func DecodeIdentity(npub string) (string, error) { return bech32encoding.DecodeIdentity(npub) }

// RelayReport is what is known about one configured relay.
type RelayReport struct {
	ws.Endpoint
	Info *relayinfo.T
	// InfoErr is why Info could not be fetched.
	InfoErr error
	// Last is the result of the most recent publish, if there was one.
	Last *ws.Status
}

// Relays fetches the information document of every configured relay and pairs
// it with the last publish result.
func (t *T) Relays(c context.T) (reports []RelayReport) {
	eps := t.pool.Endpoints()
	status := t.pool.Status()
	reports = make([]RelayReport, len(eps))
	var g errgroup.Group
	g.SetLimit(4)
	for i, ep := range eps {
		reports[i].Endpoint = ep
		if st, ok := status[ep.URL]; ok {
			reports[i].Last = &st
		}
		g.Go(func() error {
			reports[i].Info, reports[i].InfoErr = relayinfo.Fetch(c, ep.URL)
			return nil
		})
	}
	_ = g.Wait()
	return
}
