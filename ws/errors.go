package ws

import "errors"

var (
	// ErrConnection is a failure to reach a relay or a connection to it
	// dropping.
	ErrConnection = errors.New("relay connection failed")
	// ErrTimeout is a relay not answering within the operation bound.
	ErrTimeout = errors.New("relay timed out")
	// ErrRejected is a relay answering OK false.
	ErrRejected = errors.New("relay rejected event")
	// ErrNoRelayAccepted is a publish that could not reach its quorum.
	ErrNoRelayAccepted = errors.New("no relay accepted the event")
	// ErrPoolClosed is any use of a pool after Close.
	ErrPoolClosed = errors.New("relay pool is closed")
)

// Rejection is an OK false from a relay, it matches ErrRejected.
type Rejection struct {
	URL    string
	Reason string
}

func (e *Rejection) Error() string { return ErrRejected.Error() + ": " + e.URL + ": " + e.Reason }

func (e *Rejection) Unwrap() error { return ErrRejected }
