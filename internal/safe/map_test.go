package safe

import (
	"sync"
	"testing"
)

func TestSetGetDelete(t *testing.T) {
	var m Map[string, int]
	m.Set("a", 1)
	m.Set("b", 2)
	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Error("get a:", v, ok)
	}
	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Error("a not deleted")
	}
	if m.Len() != 1 {
		t.Error("expected len 1, got", m.Len())
	}
}

func TestPop(t *testing.T) {
	var m Map[string, int]
	m.Set("a", 1)
	if v, ok := m.Pop("a"); !ok || v != 1 {
		t.Error("pop a:", v, ok)
	}
	if _, ok := m.Pop("a"); ok {
		t.Error("second pop must miss")
	}
}

func TestDrain(t *testing.T) {
	var m Map[string, int]
	m.Set("a", 1)
	m.Set("b", 2)
	got := m.Drain()
	if len(got) != 2 {
		t.Error("drain returned", got)
	}
	if m.Len() != 0 {
		t.Error("map not emptied:", m.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	var m Map[int, int]
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Set(i, i)
			m.Get(i)
			m.Pop(i)
		}()
	}
	wg.Wait()
	if m.Len() != 0 {
		t.Error("expected empty map, got", m.Len())
	}
}
