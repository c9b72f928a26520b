package assets

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

// now advances one second per call so every access is strictly ordered.
func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func loadNote(body string, calls *atomic.Int32) LoadFunc {
	return func() (*LoadResult, error) {
		if calls != nil {
			calls.Add(1)
		}
		return &LoadResult{Value: &note{body: body}, Type: resources.ResourceTypeText}, nil
	}
}

func TestCacheGetOrLoadIsIdempotent(t *testing.T) {
	c := NewCache()
	var calls atomic.Int32

	a, err := c.GetOrLoad("notes/a.note", loadNote("a", &calls))
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.GetOrLoad("notes/a.note", loadNote("other", &calls))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("second load returned a different instance")
	}
	if calls.Load() != 1 {
		t.Fatalf("loader ran %d times, want 1", calls.Load())
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Loads != 1 {
		t.Fatalf("got stats %+v", st)
	}
	if st.HitRate() != 0.5 {
		t.Errorf("got hit rate %v, want 0.5", st.HitRate())
	}
}

func TestCacheSingleFlight(t *testing.T) {
	c := NewCache()
	var calls atomic.Int32
	gate := make(chan struct{})
	started := make(chan struct{})

	load := func() (*LoadResult, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-gate
		return &LoadResult{Value: &note{body: "shared"}, Type: resources.ResourceTypeText}, nil
	}

	const n = 32
	results := make([]resources.Resource, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.GetOrLoad("shared.note", load)
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = res
		}(i)
	}

	<-started
	close(gate)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("loader ran %d times, want 1", calls.Load())
	}
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different instance", i)
		}
	}
}

func TestCacheFailedLoadLeavesNoEntry(t *testing.T) {
	c := NewCache()
	boom := errors.New("boom")

	_, err := c.GetOrLoad("bad.note", func() (*LoadResult, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed load left %d entries", c.Len())
	}

	// The next request tries again.
	var calls atomic.Int32
	if _, err := c.GetOrLoad("bad.note", loadNote("fixed", &calls)); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Fatalf("loader ran %d times, want 1", calls.Load())
	}
}

func TestCacheRejectsNonReferences(t *testing.T) {
	c := NewCache()

	tests := []struct {
		name  string
		value resources.Resource
	}{
		{"struct value", note{}},
		{"string", "text"},
		{"typed nil", (*note)(nil)},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.GetOrLoad(tt.name, func() (*LoadResult, error) {
				return &LoadResult{Value: tt.value}, nil
			})
			var lerr *resources.LoadError
			if !errors.As(err, &lerr) {
				t.Fatalf("expected a LoadError, got %v", err)
			}
			if _, ok := c.Info(tt.name); ok {
				t.Fatal("rejected value was cached")
			}
		})
	}
}

func TestCacheRetainRelease(t *testing.T) {
	c := NewCache()
	if _, err := c.GetOrLoad("p", loadNote("p", nil)); err != nil {
		t.Fatal(err)
	}

	if err := c.Release("p"); !errors.Is(err, resources.ErrNotRetained) {
		t.Fatalf("release without retain: got %v, want ErrNotRetained", err)
	}
	if err := c.Retain("missing"); !errors.Is(err, resources.ErrNotCached) {
		t.Fatalf("retain of missing path: got %v, want ErrNotCached", err)
	}

	// Retained twice, released once: still pinned.
	c.Retain("p")
	c.Retain("p")
	if err := c.Release("p"); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.RefCount("p"); n != 1 {
		t.Fatalf("got ref count %d, want 1", n)
	}
	if c.Evict("p") {
		t.Fatal("retained entry was evicted")
	}
	if c.Clear() != 0 {
		t.Fatal("Clear removed a retained entry")
	}

	// Balanced: eligible again, but not evicted until asked.
	if err := c.Release("p"); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Info("p"); !ok {
		t.Fatal("release evicted the entry")
	}
	if !c.Evict("p") {
		t.Fatal("unretained entry was not evicted")
	}
	if c.Evict("p") {
		t.Fatal("evicting a missing entry reported success")
	}
}

func TestCacheIdentityFollowsEntries(t *testing.T) {
	c := NewCache()
	res, err := c.GetOrLoad("a", loadNote("a", nil))
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := c.PathOf(res); !ok || p != "a" {
		t.Fatalf("PathOf = %q, %v", p, ok)
	}
	if _, ok := c.PathOf(note{}); ok {
		t.Fatal("PathOf matched a value")
	}

	c.Evict("a")
	if _, ok := c.PathOf(res); ok {
		t.Fatal("identity survived eviction")
	}

	if err := c.Put("b", &LoadResult{Value: res}); err != nil {
		t.Fatal(err)
	}
	if err := c.Put("b", &LoadResult{Value: &note{}}); !errors.Is(err, resources.ErrAlreadyCached) {
		t.Fatalf("got %v, want ErrAlreadyCached", err)
	}
	if p, _ := c.PathOf(res); p != "b" {
		t.Fatalf("PathOf = %q, want b", p)
	}

	if n := c.Purge(); n != 1 {
		t.Fatalf("Purge removed %d, want 1", n)
	}
	if _, ok := c.PathOf(res); ok {
		t.Fatal("identity survived purge")
	}
}

func TestCacheRefusesInstanceUnderSecondPath(t *testing.T) {
	c := NewCache()
	res, err := c.GetOrLoad("a", loadNote("a", nil))
	if err != nil {
		t.Fatal(err)
	}

	same := func() (*LoadResult, error) {
		return &LoadResult{Value: res, Type: resources.ResourceTypeText}, nil
	}
	if _, err := c.GetOrLoad("b", same); !errors.Is(err, resources.ErrAlreadyCached) {
		t.Fatalf("GetOrLoad: got %v, want ErrAlreadyCached", err)
	}
	if err := c.Put("c", &LoadResult{Value: res}); !errors.Is(err, resources.ErrAlreadyCached) {
		t.Fatalf("Put: got %v, want ErrAlreadyCached", err)
	}
	if c.Len() != 1 {
		t.Fatalf("cache holds %v, want only a", c.Paths())
	}
	if p, _ := c.PathOf(res); p != "a" {
		t.Fatalf("PathOf = %q, want a", p)
	}

	// Evicting the owner drops the identity, nothing dangles.
	c.Evict("a")
	if _, ok := c.PathOf(res); ok {
		t.Fatal("identity survived eviction")
	}
	if _, err := c.GetOrLoad("b", same); err != nil {
		t.Fatalf("GetOrLoad after evict failed: %v", err)
	}
	if p, _ := c.PathOf(res); p != "b" {
		t.Fatalf("PathOf = %q, want b", p)
	}
}

func TestCacheLRUEviction(t *testing.T) {
	clock := &fakeClock{}
	var evicted []string
	c := NewCache(
		WithMaxEntries(2),
		WithClock(clock.now),
		WithEvictHandler(func(info EntryInfo) {
			evicted = append(evicted, info.Path)
		}),
	)

	c.GetOrLoad("a", loadNote("a", nil))
	c.GetOrLoad("b", loadNote("b", nil))
	c.Get("a")
	c.GetOrLoad("c", loadNote("c", nil))

	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted %v, want [b]", evicted)
	}

	// Retained entries survive even when they are the oldest.
	c.Retain("a")
	c.GetOrLoad("d", loadNote("d", nil))
	if _, ok := c.Info("a"); !ok {
		t.Fatal("retained entry was evicted")
	}
	if _, ok := c.Info("c"); ok {
		t.Fatal("expected c to be evicted")
	}
	if got := c.Paths(); len(got) != 2 || got[0] != "a" || got[1] != "d" {
		t.Fatalf("got paths %v", got)
	}
}

func TestCacheResetStats(t *testing.T) {
	c := NewCache()
	c.Get("missing")
	c.ResetStats()
	if st := c.Stats(); st != (StatsSnapshot{}) {
		t.Fatalf("got %+v after reset", st)
	}
	if c.Stats().HitRate() != 0 {
		t.Fatal("hit rate of an unused cache should be 0")
	}
}
