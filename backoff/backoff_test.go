package backoff

import (
	"testing"
	"time"
)

func TestConstant(t *testing.T) {
	b := Constant(time.Second * 3)
	for _, count := range []int64{1, 5, 20} {
		if got := b.Next(count); got != time.Second*3 {
			t.Errorf("attempt %d: expected 3s, got %s", count, got)
		}
	}
}

func TestDefault(t *testing.T) {
	if got := Default().Next(1); got != time.Second*3 {
		t.Error("expected 3s, got", got)
	}
}

func TestLinear(t *testing.T) {
	b := Linear(time.Second, time.Second*2)
	if got := b.Next(3); got != time.Second*7 {
		t.Error("expected 7s, got", got)
	}
}

func TestExponential(t *testing.T) {
	b := Exponential(time.Second, 2)
	if got := b.Next(3); got != time.Second*8 {
		t.Error("expected 8s, got", got)
	}
}

func TestRandomWithinBounds(t *testing.T) {
	b := Random(time.Second, time.Second*5)
	for i := int64(0); i < 100; i++ {
		got := b.Next(i)
		if got < time.Second || got > time.Second*5 {
			t.Fatal("out of bounds:", got)
		}
	}
}
