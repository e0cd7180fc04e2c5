package safe

import (
	"sync"
)

// Map is a write-first thread-safe map.
// It is safe for concurrent access by multiple goroutines.
type Map[K comparable, V any] struct {
	m  map[K]V
	mu sync.RWMutex
}

func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.m == nil {
		m.m = make(map[K]V)
	}
	m.m[key] = value
}

func (m *Map[K, V]) Get(key K) (actual V, loaded bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	actual, loaded = m.m[key]
	return actual, loaded
}

// Pop removes the value for a key and returns it if present.
func (m *Map[K, V]) Pop(key K) (actual V, loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if actual, loaded = m.m[key]; loaded {
		delete(m.m, key)
	}
	return actual, loaded
}

// Drain removes every entry and returns the removed values.
func (m *Map[K, V]) Drain() []V {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.m) == 0 {
		return nil
	}
	values := make([]V, 0, len(m.m))
	for k, v := range m.m {
		values = append(values, v)
		delete(m.m, k)
	}
	return values
}

func (m *Map[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, loaded := m.m[key]; loaded {
		delete(m.m, key)
		return true
	}
	return false
}

func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.m {
		if !f(k, v) {
			break
		}
	}
}
