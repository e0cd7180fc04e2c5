// Package metrics provides the counters and moving-average meters backing
// the client connection statistics.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

type Counter interface {
	Inc()
	Count() uint64
}

func NewCounter() Counter {
	return &counter{}
}

type counter struct {
	count atomic.Uint64
}

func (c *counter) Inc() {
	c.count.Add(1)
}

func (c *counter) Count() uint64 {
	return c.count.Load()
}

// Meter counts events and keeps an exponentially-weighted moving average
// rate per second. The average decays lazily on access, so a meter needs no
// background goroutine and stopping it is just dropping the reference.
type Meter interface {
	Mark(n int64)
	Count() int64
	Rate() float64
	RateMean() float64
}

// NewMeter returns a meter averaged over roughly the given window.
func NewMeter(window time.Duration) Meter {
	return &meter{
		window:    window,
		startTime: time.Now(),
		lastTick:  time.Now(),
	}
}

type meter struct {
	mu        sync.Mutex
	window    time.Duration
	startTime time.Time
	lastTick  time.Time
	count     int64
	uncounted int64
	rate      float64
	primed    bool
}

func (m *meter) Mark(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count += n
	m.uncounted += n
	m.decay()
}

func (m *meter) Count() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *meter) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decay()
	return m.rate
}

// RateMean returns the mean rate of events per second since the meter was
// created.
func (m *meter) RateMean() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.count) / elapsed
}

// decay folds events seen since the last tick into the moving average.
// Caller must hold mu.
func (m *meter) decay() {
	elapsed := time.Since(m.lastTick)
	if elapsed < time.Second {
		return
	}
	instant := float64(m.uncounted) / elapsed.Seconds()
	if !m.primed {
		m.rate = instant
		m.primed = true
	} else {
		alpha := 1 - math.Exp(-elapsed.Seconds()/m.window.Seconds())
		m.rate += alpha * (instant - m.rate)
	}
	m.uncounted = 0
	m.lastTick = time.Now()
}
