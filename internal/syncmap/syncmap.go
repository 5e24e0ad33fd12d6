// Package syncmap provides a generic concurrent map.
package syncmap

import (
	"slices"
	"sync"
)

// Map is a type-safe concurrent map guarded by a RWMutex.
// It suits read-heavy workloads with occasional writes.
type Map[K comparable, V any] struct {
	m  map[K]V
	mu sync.RWMutex
}

// New creates an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		m: make(map[K]V),
	}
}

// Load returns the value stored for key. ok reports whether it was present.
func (sm *Map[K, V]) Load(key K) (value V, ok bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	value, ok = sm.m[key]
	return
}

// Store sets the value for a key.
func (sm *Map[K, V]) Store(key K, value V) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.m[key] = value
}

// LoadOrCreate returns the existing value for key, or stores and returns
// the result of create. create runs at most once per missing key and under
// the write lock, so it must not touch the map.
func (sm *Map[K, V]) LoadOrCreate(key K, create func() V) (actual V, loaded bool) {
	sm.mu.RLock()
	actual, loaded = sm.m[key]
	sm.mu.RUnlock()
	if loaded {
		return actual, true
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	// Another goroutine may have stored between the locks.
	if actual, loaded = sm.m[key]; loaded {
		return actual, true
	}
	actual = create()
	sm.m[key] = actual
	return actual, false
}

// LoadAndDelete removes key and returns its previous value.
func (sm *Map[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	value, loaded = sm.m[key]
	delete(sm.m, key)
	return
}

// Delete deletes the value for a key.
func (sm *Map[K, V]) Delete(key K) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.m, key)
}

// Len returns the number of items in the map.
func (sm *Map[K, V]) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.m)
}

// Keys returns a snapshot of the keys in unspecified order.
func (sm *Map[K, V]) Keys() []K {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	keys := make([]K, 0, len(sm.m))
	for k := range sm.m {
		keys = append(keys, k)
	}
	return slices.Clip(keys)
}
