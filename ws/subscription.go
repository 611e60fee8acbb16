package ws

import (
	"strconv"
	"sync"
	"sync/atomic"

	"longform.lol/chk"
	"longform.lol/context"
	"longform.lol/envelopes/closeenvelope"
	"longform.lol/envelopes/reqenvelope"
	"longform.lol/event"
	"longform.lol/filters"
	"longform.lol/subscriptionid"
)

// Subscription is one REQ on one relay.
type Subscription struct {
	label   string
	counter int

	Relay   *Client
	Filters *filters.T

	// Events emits the matching events the relay sends. It is closed when
	// the subscription ends.
	Events event.C
	mu     sync.Mutex

	// EndOfStoredEvents is closed when the relay sends EOSE. Every event
	// sent before the EOSE has been received from Events by then.
	EndOfStoredEvents chan struct{}

	// ClosedReason receives the message of a CLOSED from the relay.
	ClosedReason chan string

	// Context is done when the subscription ends.
	Context context.T
	cancel  context.F

	live   atomic.Bool
	eosed  atomic.Bool
	closed atomic.Bool
}

// SubscriptionOption configures a subscription.
type SubscriptionOption interface {
	IsSubscriptionOption()
}

// WithLabel sets the prefix of the subscription id sent to relays.
type WithLabel string

func (WithLabel) IsSubscriptionOption() {}

var _ SubscriptionOption = WithLabel("")

// GetID is the label and a per client serial number.
func (sub *Subscription) GetID() *subscriptionid.T {
	return subscriptionid.MustNew(sub.label + ":" + strconv.Itoa(sub.counter))
}

func (sub *Subscription) start() {
	<-sub.Context.Done()
	sub.Unsub()
	sub.mu.Lock()
	close(sub.Events)
	sub.mu.Unlock()
}

// dispatchEvent runs on the read loop and blocks it until the event is taken
// or the subscription ends, which keeps events ahead of the EOSE.
func (sub *Subscription) dispatchEvent(ev *event.T) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.live.Load() {
		return
	}
	select {
	case sub.Events <- ev:
	case <-sub.Context.Done():
	}
}

func (sub *Subscription) dispatchEose() {
	if sub.eosed.CompareAndSwap(false, true) {
		close(sub.EndOfStoredEvents)
	}
}

func (sub *Subscription) dispatchClosed(reason string) {
	if sub.closed.CompareAndSwap(false, true) {
		sub.ClosedReason <- reason
	}
}

// Unsub ends the subscription, sending CLOSE if the relay still has it open.
func (sub *Subscription) Unsub() {
	sub.cancel()
	if sub.live.CompareAndSwap(true, false) && !sub.closed.Load() {
		sub.Close()
	}
	sub.Relay.Subscriptions.Delete(sub.GetID().String())
}

// Close only sends the CLOSE, Unsub also ends the subscription locally.
func (sub *Subscription) Close() {
	if !sub.Relay.IsConnected() {
		return
	}
	b, err := closeenvelope.NewFrom(sub.GetID()).Marshal(nil)
	if chk.E(err) {
		return
	}
	chk.D(sub.Relay.Write(b))
}

// Fire sends the REQ.
func (sub *Subscription) Fire() (err error) {
	var b []byte
	if b, err = reqenvelope.NewFrom(sub.GetID(), sub.Filters).Marshal(nil); chk.E(err) {
		return
	}
	sub.live.Store(true)
	if err = sub.Relay.Write(b); err != nil {
		sub.cancel()
		return
	}
	return
}
