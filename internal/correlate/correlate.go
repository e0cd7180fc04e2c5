// Package correlate matches inbound responses to their originating request
// by message id.
package correlate

import (
	"fmt"
	"sync/atomic"
	"time"

	"knightcam.github.io/camlink/envelope"
	"knightcam.github.io/camlink/internal/result"
	"knightcam.github.io/camlink/internal/safe"
)

// pending is one outstanding request. The channel is buffered so resolution
// never blocks the read loop, and an entry is removed from the table before
// anything is sent, which makes resolution exactly-once.
type pending struct {
	id      string
	created time.Time
	ch      chan result.Result[*envelope.Response]
}

// Table tracks the outstanding requests of one connection object. Ids are
// derived from a counter plus a timestamp, so they stay unique across
// reconnects within the connection lifetime.
type Table struct {
	seq     atomic.Uint64
	pending safe.Map[string, *pending]
}

func New() *Table {
	return &Table{}
}

// NextID returns a fresh message id.
func (t *Table) NextID() string {
	return fmt.Sprintf("%d-%d", t.seq.Add(1), time.Now().UnixMilli())
}

// Register creates a pending entry for id and returns the channel its result
// will arrive on.
func (t *Table) Register(id string) <-chan result.Result[*envelope.Response] {
	p := &pending{
		id:      id,
		created: time.Now(),
		ch:      make(chan result.Result[*envelope.Response], 1),
	}
	t.pending.Set(id, p)
	return p.ch
}

// Resolve delivers a response to the request with the matching id. It reports
// false when no request is waiting, which happens for responses arriving
// after a timeout removed the entry.
func (t *Table) Resolve(id string, resp *envelope.Response) bool {
	p, ok := t.pending.Pop(id)
	if !ok {
		return false
	}
	p.ch <- result.OK(resp)
	return true
}

// Fail resolves the request with the matching id to a failure result.
func (t *Table) Fail(id string, err error) bool {
	p, ok := t.pending.Pop(id)
	if !ok {
		return false
	}
	p.ch <- result.Err[*envelope.Response](err)
	return true
}

// Remove drops a pending entry without resolving it. Used by the caller that
// owns the entry when its own timeout fires.
func (t *Table) Remove(id string) bool {
	_, ok := t.pending.Pop(id)
	return ok
}

// FailAll resolves every outstanding request with err. Called on connection
// loss so callers blocked on in-flight requests never wait out their timeout.
func (t *Table) FailAll(err error) {
	for _, p := range t.pending.Drain() {
		p.ch <- result.Err[*envelope.Response](err)
	}
}

func (t *Table) Len() int {
	return t.pending.Len()
}
