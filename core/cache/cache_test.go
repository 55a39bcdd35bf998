package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLRUCache_BasicOperations(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 3})

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v; want 2, true", v, ok)
	}
	if v, ok := cache.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = %d, %v; want 3, true", v, ok)
	}
	if _, ok := cache.Get("d"); ok {
		t.Error("Get(d) should return false")
	}
	if n := cache.Stats().Size; n != 3 {
		t.Errorf("Stats().Size = %d; want 3", n)
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 2})

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3) // evicts "a"

	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) should return false after eviction")
	}

	cache.Get("b")    // "b" becomes most recent
	cache.Put("d", 4) // evicts "c"

	if _, ok := cache.Get("c"); ok {
		t.Error("Get(c) should return false after eviction")
	}
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v; want 2, true", v, ok)
	}
	if v, ok := cache.Get("d"); !ok || v != 4 {
		t.Errorf("Get(d) = %d, %v; want 4, true", v, ok)
	}
	if s := cache.Stats(); s.Evictions != 2 {
		t.Errorf("Stats().Evictions = %d; want 2", s.Evictions)
	}
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 2})
	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("a", 10) // refreshes "a"
	cache.Put("c", 3)  // evicts "b"

	if v, ok := cache.Get("a"); !ok || v != 10 {
		t.Errorf("Get(a) = %d, %v; want 10, true", v, ok)
	}
	if _, ok := cache.Get("b"); ok {
		t.Error("Get(b) should return false after eviction")
	}
}

func TestLRUCache_RecencyOrder(t *testing.T) {
	cache := NewLRUCache[int, string](Config{MaxSize: 4})
	for i := 1; i <= 4; i++ {
		cache.Put(i, fmt.Sprint(i))
	}
	cache.Get(1)
	cache.Get(2)
	cache.Put(5, "5") // evicts 3
	cache.Put(6, "6") // evicts 4

	for _, key := range []int{1, 2, 5, 6} {
		if _, ok := cache.Get(key); !ok {
			t.Errorf("Get(%d) should hit", key)
		}
	}
	for _, key := range []int{3, 4} {
		if _, ok := cache.Get(key); ok {
			t.Errorf("Get(%d) should miss after eviction", key)
		}
	}
}

func TestLRUCache_Remove(t *testing.T) {
	var evicted []string
	cache := NewLRUCache[string, int](Config{
		OnEvict: func(key, value any) { evicted = append(evicted, key.(string)) },
	})
	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	cache.Remove("b")
	cache.Remove("missing")
	if _, ok := cache.Get("b"); ok {
		t.Error("Get(b) should return false after Remove")
	}
	if diff := cmp.Diff([]string{"b"}, evicted); diff != "" {
		t.Errorf("OnEvict calls mismatch (-want +got):\n%s", diff)
	}
	if n := cache.Stats().Size; n != 2 {
		t.Errorf("Stats().Size after Remove = %d; want 2", n)
	}
}

func TestLRUCache_TTL(t *testing.T) {
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	origNow := now
	defer func() { now = origNow }()
	now = func() time.Time { return current }

	var expired []string
	cache := NewLRUCache[string, int](Config{
		TTL:     time.Minute,
		OnEvict: func(key, value any) { expired = append(expired, key.(string)) },
	})
	cache.Put("a", 1)

	current = current.Add(30 * time.Second)
	cache.Put("b", 2)
	if _, ok := cache.Get("a"); !ok {
		t.Fatal("Get(a) should hit before TTL")
	}

	current = current.Add(45 * time.Second)
	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) should miss after TTL")
	}
	if n := cache.Stats().Size; n != 1 {
		t.Errorf("Stats().Size = %d; want 1 after the expired entry is dropped", n)
	}
	if diff := cmp.Diff([]string{"a"}, expired); diff != "" {
		t.Errorf("OnEvict calls mismatch (-want +got):\n%s", diff)
	}

	current = current.Add(time.Minute)
	if _, ok := cache.Get("b"); ok {
		t.Error("Get(b) should miss after TTL")
	}
}

func TestLRUCache_Stats(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 5})
	if rate := cache.Stats().HitRate(); rate != 0 {
		t.Errorf("HitRate() with no lookups = %v; want 0", rate)
	}

	cache.Put("a", 1)
	cache.Get("a")
	cache.Get("a")
	cache.Get("a")
	cache.Get("b")

	s := cache.Stats()
	want := Stats{Hits: 3, Misses: 1, Size: 1, MaxSize: 5}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
	if rate := s.HitRate(); rate != 0.75 {
		t.Errorf("HitRate() = %v; want 0.75", rate)
	}
}

func TestLRUCache_Unlimited(t *testing.T) {
	cache := NewLRUCache[int, int](Config{MaxSize: -1})
	for i := 0; i < 1000; i++ {
		cache.Put(i, i)
	}
	if n := cache.Stats().Size; n != 1000 {
		t.Errorf("Stats().Size = %d; want 1000", n)
	}
	if s := cache.Stats(); s.Evictions != 0 || s.MaxSize != 0 {
		t.Errorf("Stats() = %+v; want no evictions and MaxSize 0", s)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.MaxSize != 256 {
		t.Errorf("MaxSize = %d; want 256", config.MaxSize)
	}
	if config.TTL != 0 {
		t.Errorf("TTL = %v; want 0", config.TTL)
	}
}

func TestLRUCache_Concurrent(t *testing.T) {
	cache := NewLRUCache[int, int](Config{MaxSize: 50})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := (g*500 + i) % 120
				cache.Put(key, i)
				cache.Get(key)
				if i%50 == 0 {
					cache.Remove(key)
					cache.Stats()
				}
			}
		}(g)
	}
	wg.Wait()

	if n := cache.Stats().Size; n > 50 {
		t.Errorf("Stats().Size = %d; want <= 50", n)
	}
}
