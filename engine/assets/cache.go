package assets

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/singleflight"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// LoadResult is what a LoadFunc hands to the cache on a miss.
type LoadResult struct {
	Value    resources.Resource
	Type     resources.ResourceType
	Loader   resources.Loader
	FullPath string
}

// LoadFunc produces the value of a missing cache entry. It runs without any
// cache lock held and may block on I/O.
type LoadFunc func() (*LoadResult, error)

// EntryInfo is a snapshot of one cache entry.
type EntryInfo struct {
	Path       string
	Value      resources.Resource
	Type       resources.ResourceType
	Loader     resources.Loader
	FullPath   string
	RefCount   int
	LoadedAt   time.Time
	LastAccess time.Time
	ReloadedAt time.Time
}

type cacheEntry struct {
	value        resources.Resource
	resourceType resources.ResourceType
	loader       resources.Loader
	fullPath     string
	refs         int
	loadedAt     time.Time
	lastAccess   time.Time
	reloadedAt   time.Time
}

func (e *cacheEntry) info(path string) EntryInfo {
	return EntryInfo{
		Path:       path,
		Value:      e.value,
		Type:       e.resourceType,
		Loader:     e.loader,
		FullPath:   e.fullPath,
		RefCount:   e.refs,
		LoadedAt:   e.loadedAt,
		LastAccess: e.lastAccess,
		ReloadedAt: e.reloadedAt,
	}
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMaxEntries bounds the number of entries. Once exceeded, the least
// recently used entries without outstanding retains are evicted.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithEvictHandler registers fn to be called, outside the cache lock, for
// every entry that leaves the cache.
func WithEvictHandler(fn func(EntryInfo)) CacheOption {
	return func(c *Cache) {
		c.onEvict = fn
	}
}

/*
Cache deduplicates loaded resources by normalized path.

The path map and the reverse identity map (resource -> path) are only ever
mutated together under mu. Loads run outside mu and are coalesced per path
through a singleflight group, so at most one loader invocation per path is in
flight at any time.
*/
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	identity map[resources.Resource]string

	flight singleflight.Group
	stats  Stats

	maxEntries int
	now        func() time.Time
	onEvict    func(EntryInfo)
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries:  make(map[string]*cacheEntry),
		identity: make(map[resources.Resource]string),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached resource at path without loading it, recording a
// hit or a miss.
func (c *Cache) Get(path string) (resources.Resource, bool) {
	c.mu.Lock()
	e, ok := c.entries[path]
	if ok {
		e.lastAccess = c.now()
	}
	c.mu.Unlock()

	if !ok {
		c.stats.misses.Add(1)
		return nil, false
	}
	c.stats.hits.Add(1)
	return e.value, true
}

// GetOrLoad returns the cached resource at path, invoking load on a miss.
// Concurrent callers missing the same path share a single load and all
// receive the same instance. A failed load leaves nothing behind.
func (c *Cache) GetOrLoad(path string, load LoadFunc) (resources.Resource, error) {
	if v, ok := c.Get(path); ok {
		return v, nil
	}

	v, err, _ := c.flight.Do(path, func() (interface{}, error) {
		// A load that completed between Get and Do already stored the entry.
		c.mu.Lock()
		if e, ok := c.entries[path]; ok {
			e.lastAccess = c.now()
			c.mu.Unlock()
			return e.value, nil
		}
		c.mu.Unlock()

		c.stats.loads.Add(1)
		res, err := load()
		if err != nil {
			return nil, err
		}
		if err := validateResult(path, res); err != nil {
			return nil, err
		}

		c.mu.Lock()
		if err := c.insertLocked(path, res); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		evicted := c.trimLocked(path)
		c.mu.Unlock()

		c.notify(evicted)
		return res.Value, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Put stores an already constructed resource under path.
func (c *Cache) Put(path string, res *LoadResult) error {
	if err := validateResult(path, res); err != nil {
		return err
	}

	c.mu.Lock()
	if _, ok := c.entries[path]; ok {
		c.mu.Unlock()
		return fmt.Errorf("put %q: %w", path, resources.ErrAlreadyCached)
	}
	if err := c.insertLocked(path, res); err != nil {
		c.mu.Unlock()
		return err
	}
	evicted := c.trimLocked(path)
	c.mu.Unlock()

	c.notify(evicted)
	return nil
}

// Retain pins the entry at path; it will not be evicted until every retain
// has been matched by a Release.
func (c *Cache) Retain(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	if !ok {
		return fmt.Errorf("retain %q: %w", path, resources.ErrNotCached)
	}
	e.refs++
	return nil
}

// Release drops one retain. Releasing an entry that holds no retain is a
// programming error and is reported as ErrNotRetained.
func (c *Cache) Release(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	if !ok {
		return fmt.Errorf("release %q: %w", path, resources.ErrNotCached)
	}
	if e.refs == 0 {
		return fmt.Errorf("release %q: %w", path, resources.ErrNotRetained)
	}
	e.refs--
	return nil
}

// RefCount returns the number of outstanding retains of path.
func (c *Cache) RefCount(path string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[path]
	if !ok {
		return 0, false
	}
	return e.refs, true
}

// Evict removes the entry at path if nothing retains it. Retained or
// missing entries are left alone and false is returned.
func (c *Cache) Evict(path string) bool {
	c.mu.Lock()
	e, ok := c.entries[path]
	if !ok || e.refs > 0 {
		c.mu.Unlock()
		return false
	}
	c.removeLocked(path, e)
	c.mu.Unlock()

	c.notify([]EntryInfo{e.info(path)})
	return true
}

// Clear evicts every entry without outstanding retains and returns how many
// were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	var evicted []EntryInfo
	for path, e := range c.entries {
		if e.refs > 0 {
			continue
		}
		c.removeLocked(path, e)
		evicted = append(evicted, e.info(path))
	}
	c.mu.Unlock()

	c.notify(evicted)
	return len(evicted)
}

// Purge drops every entry regardless of retains. Only meant for shutdown.
func (c *Cache) Purge() int {
	c.mu.Lock()
	evicted := make([]EntryInfo, 0, len(c.entries))
	for path, e := range c.entries {
		evicted = append(evicted, e.info(path))
	}
	c.entries = make(map[string]*cacheEntry)
	c.identity = make(map[resources.Resource]string)
	c.mu.Unlock()

	c.notify(evicted)
	return len(evicted)
}

// Paths returns a sorted snapshot of every cached key.
func (c *Cache) Paths() []string {
	c.mu.RLock()
	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	c.mu.RUnlock()

	slices.Sort(paths)
	return paths
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Info returns a snapshot of the entry at path. It does not touch stats.
func (c *Cache) Info(path string) (EntryInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[path]
	if !ok {
		return EntryInfo{}, false
	}
	return e.info(path), true
}

// PathOf returns the path res was cached under.
func (c *Cache) PathOf(res resources.Resource) (string, bool) {
	if !isReference(res) {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.identity[res]
	return p, ok
}

// markReloaded stamps the entry at path after a successful in-place reload.
func (c *Cache) markReloaded(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok {
		e.reloadedAt = c.now()
	}
}

func (c *Cache) Stats() StatsSnapshot {
	return c.stats.snapshot()
}

func (c *Cache) ResetStats() {
	c.stats.reset()
}

// insertLocked adds the entry and its identity together. An instance lives
// under one path only, so a value already cached elsewhere is refused.
func (c *Cache) insertLocked(path string, res *LoadResult) error {
	if owner, ok := c.identity[res.Value]; ok {
		return fmt.Errorf("cache %q: instance already cached at %q: %w", path, owner, resources.ErrAlreadyCached)
	}
	now := c.now()
	c.entries[path] = &cacheEntry{
		value:        res.Value,
		resourceType: res.Type,
		loader:       res.Loader,
		fullPath:     res.FullPath,
		loadedAt:     now,
		lastAccess:   now,
	}
	c.identity[res.Value] = path
	return nil
}

func (c *Cache) removeLocked(path string, e *cacheEntry) {
	delete(c.entries, path)
	delete(c.identity, e.value)
}

// trimLocked evicts least recently used, unretained entries until the cache
// fits maxEntries. keep is never evicted.
func (c *Cache) trimLocked(keep string) []EntryInfo {
	if c.maxEntries <= 0 {
		return nil
	}
	var evicted []EntryInfo
	for len(c.entries) > c.maxEntries {
		var (
			oldestPath  string
			oldestEntry *cacheEntry
		)
		for p, e := range c.entries {
			if p == keep || e.refs > 0 {
				continue
			}
			if oldestEntry == nil || e.lastAccess.Before(oldestEntry.lastAccess) {
				oldestPath, oldestEntry = p, e
			}
		}
		if oldestEntry == nil {
			break
		}
		c.removeLocked(oldestPath, oldestEntry)
		evicted = append(evicted, oldestEntry.info(oldestPath))
	}
	return evicted
}

func (c *Cache) notify(evicted []EntryInfo) {
	if c.onEvict == nil {
		return
	}
	for _, info := range evicted {
		c.onEvict(info)
	}
}

func validateResult(path string, res *LoadResult) error {
	if res == nil || res.Value == nil {
		return &resources.LoadError{Op: "load", Path: path, Err: fmt.Errorf("loader returned no resource")}
	}
	if !isReference(res.Value) {
		return &resources.LoadError{Op: "load", Path: path, Type: res.Type, Err: resources.ErrNotReference}
	}
	if reflect.ValueOf(res.Value).IsNil() {
		return &resources.LoadError{Op: "load", Path: path, Type: res.Type, Err: fmt.Errorf("loader returned a nil %T", res.Value)}
	}
	return nil
}

// isReference reports whether v is a pointer, the only shape a resource may
// take so that identity and in-place reload are meaningful.
func isReference(v interface{}) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Pointer
}
