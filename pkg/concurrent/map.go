// Package concurrent holds small generic containers safe for concurrent use.
package concurrent

import "sync"

type Map[K comparable, V any] struct {
	mu     sync.RWMutex
	values map[K]V
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		values: make(map[K]V),
	}
}

func (m *Map[K, V]) Load(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.values[key]
	return val, ok
}

func (m *Map[K, V]) Store(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
}

// Update replaces the value of key with the result of fn, atomically. fn
// receives the current value and whether it exists; returning false from
// fn leaves the map unchanged.
func (m *Map[K, V]) Update(key K, fn func(current V, exists bool) (V, bool)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.values[key]
	next, ok := fn(cur, exists)
	if ok {
		m.values[key] = next
	}
	return ok
}

// Delete removes key and reports whether it was present.
func (m *Map[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.values[key]
	delete(m.values, key)
	return ok
}

func (m *Map[K, V]) Length() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.values)
}

// Range calls f for every entry until f returns false. f must not modify
// the map.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for k, v := range m.values {
		if !f(k, v) {
			break
		}
	}
}
