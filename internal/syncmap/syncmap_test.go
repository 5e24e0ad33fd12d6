package syncmap

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMap_BasicOperations(t *testing.T) {
	sm := New[string, int]()

	sm.Store("one", 1)
	sm.Store("two", 2)

	if val, ok := sm.Load("one"); !ok || val != 1 {
		t.Errorf("Load(one) = %v, %v; want 1, true", val, ok)
	}
	if val, ok := sm.Load("three"); ok {
		t.Errorf("Load(three) = %v, %v; want 0, false", val, ok)
	}

	keys := sm.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "one" || keys[1] != "two" {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestMap_LoadOrCreate(t *testing.T) {
	sm := New[string, int]()

	actual, loaded := sm.LoadOrCreate("key1", func() int { return 100 })
	if actual != 100 || loaded {
		t.Errorf("first LoadOrCreate = %v, %v; want 100, false", actual, loaded)
	}

	actual, loaded = sm.LoadOrCreate("key1", func() int {
		t.Error("create must not run for an existing key")
		return 200
	})
	if actual != 100 || !loaded {
		t.Errorf("second LoadOrCreate = %v, %v; want 100, true", actual, loaded)
	}
}

func TestMap_LoadOrCreateRunsOnceUnderContention(t *testing.T) {
	sm := New[string, int]()
	var calls atomic.Int32

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sm.LoadOrCreate("shared", func() int {
				calls.Add(1)
				return 7
			})
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("create ran %d times, want 1", calls.Load())
	}
}

func TestMap_Delete(t *testing.T) {
	sm := New[string, int]()
	sm.Store("key1", 1)
	sm.Store("key2", 2)

	sm.Delete("key1")
	if _, ok := sm.Load("key1"); ok {
		t.Error("Load(key1) should return false after Delete")
	}

	v, ok := sm.LoadAndDelete("key2")
	if !ok || v != 2 {
		t.Errorf("LoadAndDelete(key2) = %v, %v", v, ok)
	}
	if sm.Len() != 0 {
		t.Errorf("Len() = %d; want 0", sm.Len())
	}

	// Delete non-existent key should not panic.
	sm.Delete("nonexistent")
}
