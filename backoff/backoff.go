// Package backoff provides pacing strategies for retry loops.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Backoff yields the delay before the next retry attempt.
type Backoff interface {
	// Next returns the delay to wait before attempt number count.
	Next(count int64) time.Duration
}

// Default is the pacing used by the reconnection policy: a fixed 3s interval.
func Default() Backoff {
	return Constant(time.Second * 3)
}

// Constant returns the same delay for every attempt.
func Constant(dur time.Duration) Backoff {
	return constantBackoff{duration: dur}
}

// Linear grows the delay by step for each attempt, starting at base.
func Linear(base, step time.Duration) Backoff {
	return linearBackoff{base: base, step: step}
}

// Exponential grows the delay as base * exp^count.
func Exponential(base time.Duration, exp float64) Backoff {
	return exponentialBackoff{base: base, exponent: exp}
}

// Random picks a uniform delay between min and max for every attempt.
func Random(min, max time.Duration) Backoff {
	return randomBackoff{min: min, max: max}
}

type constantBackoff struct {
	duration time.Duration
}

func (b constantBackoff) Next(count int64) time.Duration {
	return b.duration
}

type linearBackoff struct {
	base time.Duration
	step time.Duration
}

func (b linearBackoff) Next(count int64) time.Duration {
	return b.base + time.Duration(count)*b.step
}

type exponentialBackoff struct {
	base     time.Duration
	exponent float64
}

func (b exponentialBackoff) Next(count int64) time.Duration {
	return time.Duration(float64(b.base) * math.Pow(b.exponent, float64(count)))
}

type randomBackoff struct {
	min time.Duration
	max time.Duration
}

func (b randomBackoff) Next(count int64) time.Duration {
	return time.Duration(float64(b.min) + float64(b.max-b.min)*rand.Float64())
}
