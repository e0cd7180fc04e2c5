package client

import (
	"sync"
	"time"

	"knightcam.github.io/camlink/backoff"
	"knightcam.github.io/camlink/xerr"
)

// Retrier drives the reconnection policy: bounded attempts at a fixed pace.
// An auth-class failure aborts the whole run; any other failure schedules the
// next attempt.
type Retrier struct {
	mu      sync.Mutex
	limit   int
	backoff backoff.Backoff
	stop    chan struct{}
}

func NewRetrier(limit int, b backoff.Backoff) *Retrier {
	return &Retrier{limit: limit, backoff: b}
}

// Run calls do with attempt numbers 1..limit until it succeeds, fails with
// an auth-class error, is canceled, or attempts are exhausted. Run returns
// nil on success and the last failure otherwise. Only one run at a time.
func (r *Retrier) Run(do func(attempt int) *xerr.Error) *xerr.Error {
	r.mu.Lock()
	if r.stop != nil {
		r.mu.Unlock()
		return xerr.New(xerr.CodeUnknown, "reconnect already in progress")
	}
	stop := make(chan struct{})
	r.stop = stop
	r.mu.Unlock()
	defer r.finish(stop)

	var last *xerr.Error
	for attempt := 1; attempt <= r.limit; attempt++ {
		select {
		case <-stop:
			return xerr.New(xerr.CodeUnknown, "reconnect canceled")
		default:
		}
		last = do(attempt)
		if last == nil {
			return nil
		}
		if last.AuthClass() {
			return last
		}
		if attempt == r.limit {
			break
		}
		select {
		case <-time.After(r.backoff.Next(int64(attempt))):
		case <-stop:
			return xerr.New(xerr.CodeUnknown, "reconnect canceled")
		}
	}
	return last
}

// Cancel aborts an in-progress run between attempts.
func (r *Retrier) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

func (r *Retrier) finish(stop chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop == stop {
		r.stop = nil
	}
}
