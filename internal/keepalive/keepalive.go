// Package keepalive issues periodic liveness pings over an established
// channel. A failed ping is advisory telemetry: the authoritative liveness
// signal stays the channel close event, so a slow cycle alone never tears the
// connection down. Escalation after N consecutive failures is opt-in.
package keepalive

import (
	"sync"
	"sync/atomic"
	"time"
)

type Monitor struct {
	mu            sync.Mutex
	stop          chan struct{}
	interval      time.Duration
	timeout       time.Duration
	pingFunc      func(timeout time.Duration) error
	failFunc      func(err error)
	escalateFunc  func(failures int)
	escalateAfter int
	inflight      atomic.Bool
	failures      atomic.Int32
}

func New(interval, timeout time.Duration) *Monitor {
	return &Monitor{
		interval: interval,
		timeout:  timeout,
	}
}

// PingFunc sets the function issuing one liveness request. It must block for
// at most the given timeout and return nil on a confirmed round trip.
func (m *Monitor) PingFunc(f func(timeout time.Duration) error) {
	m.pingFunc = f
}

// FailFunc is called for every failed ping.
func (m *Monitor) FailFunc(f func(err error)) {
	m.failFunc = f
}

// EscalateAfter arranges for f to run once ping failures reach n consecutive
// misses. n <= 0 disables escalation.
func (m *Monitor) EscalateAfter(n int, f func(failures int)) {
	m.escalateAfter = n
	m.escalateFunc = f
}

func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return
	}
	m.failures.Store(0)
	m.stop = make(chan struct{})
	go m.run(m.stop)
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

func (m *Monitor) run(stop chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// The ping timeout outlives the interval, so skip the
			// tick while one is still in flight.
			if !m.inflight.CompareAndSwap(false, true) {
				continue
			}
			go m.ping(stop)
		}
	}
}

func (m *Monitor) ping(stop chan struct{}) {
	defer m.inflight.Store(false)
	err := m.pingFunc(m.timeout)
	select {
	case <-stop:
		return
	default:
	}
	if err == nil {
		m.failures.Store(0)
		return
	}
	failures := int(m.failures.Add(1))
	if m.failFunc != nil {
		m.failFunc(err)
	}
	if m.escalateAfter > 0 && failures == m.escalateAfter && m.escalateFunc != nil {
		m.escalateFunc(failures)
	}
}
