// Package interrupt runs registered handlers once when the process receives
// SIGINT or SIGTERM, or when Request is called.
package interrupt

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"longform.lol/log"
)

var (
	mx       sync.Mutex
	handlers []func()
	started  bool
	once     sync.Once
	done     = make(chan struct{})
	signals  = make(chan os.Signal, 1)
)

// AddHandler registers a function to run on interrupt. Handlers run in reverse
// order of registration.
func AddHandler(h func()) {
	mx.Lock()
	defer mx.Unlock()
	handlers = append(handlers, h)
	if !started {
		started = true
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		go listen()
	}
}

func listen() {
	select {
	case sig := <-signals:
		log.I.F("received %s, shutting down", sig)
		Request()
	case <-done:
	}
}

// Request runs the handlers as though a signal had arrived. Only the first call
// has any effect.
func Request() {
	once.Do(func() {
		mx.Lock()
		hh := make([]func(), len(handlers))
		copy(hh, handlers)
		mx.Unlock()
		for i := len(hh) - 1; i >= 0; i-- {
			hh[i]()
		}
		signal.Stop(signals)
		close(done)
	})
}

// HandlersDone is closed once every handler has returned.
func HandlersDone() <-chan struct{} { return done }
