package metrics

import (
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	c := NewCounter()
	for i := 0; i < 5; i++ {
		c.Inc()
	}
	if c.Count() != 5 {
		t.Error("expected 5, got", c.Count())
	}
}

func TestMeterCount(t *testing.T) {
	m := NewMeter(time.Minute)
	m.Mark(3)
	m.Mark(2)
	if m.Count() != 5 {
		t.Error("expected 5, got", m.Count())
	}
}

func TestMeterRateMean(t *testing.T) {
	m := NewMeter(time.Minute)
	m.Mark(100)
	time.Sleep(time.Millisecond * 20)
	if mean := m.RateMean(); mean <= 0 {
		t.Error("expected positive mean rate, got", mean)
	}
}

func TestMeterRateBeforeFirstTick(t *testing.T) {
	m := NewMeter(time.Minute)
	m.Mark(10)
	// the average only folds in after a full tick
	if rate := m.Rate(); rate != 0 {
		t.Error("expected 0 before the first tick, got", rate)
	}
}
