package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/systems"
)

type registration struct {
	resourceType resources.ResourceType
	loader       resources.Loader
	extensions   []string
}

/*
Registry is the single entry point through which typed resources are loaded,
cached, reloaded and persisted. It owns the type -> loader table and the
extension table used to infer types, and delegates storage to a Cache.

A Registry is created once at the composition root and handed to every
subsystem that needs it.
*/
type Registry struct {
	cfg       Config
	log       *log.Logger
	events    *core.EventSystem
	cacheOpts []CacheOption

	mu         sync.RWMutex
	loaders    map[resources.ResourceType]*registration
	extensions map[string]resources.ResourceType
	extList    []string

	cache     *Cache
	reloader  *Reloader
	subAssets *SubAssetResolver
	metadata  *resources.MetadataStore

	jobs        *systems.JobSystem
	pendingMu   sync.Mutex
	completions *containers.RingQueue[*Handle]
	reloads     map[string]struct{}
	watcher     *Watcher
}

func NewRegistry(cfg Config, opts ...Option) (*Registry, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		return nil, fmt.Errorf("new registry: negative queue size %d", cfg.QueueSize)
	}

	r := &Registry{
		cfg:         cfg,
		loaders:     make(map[resources.ResourceType]*registration),
		extensions:  make(map[string]resources.ResourceType),
		metadata:    resources.NewMetadataStore(cfg.MetadataRoot),
		completions: containers.NewRingQueue[*Handle](16),
		reloads:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = core.Logger().WithPrefix("assets")
	}

	cacheOpts := []CacheOption{WithMaxEntries(cfg.MaxEntries), WithEvictHandler(r.onEvict)}
	r.cache = NewCache(append(cacheOpts, r.cacheOpts...)...)
	r.subAssets = newSubAssetResolver(r)
	r.reloader = NewReloader(r.cache, r.subAssets, r.events, r.log)

	js, err := systems.NewJobSystem(cfg.Workers, cfg.QueueSize)
	if err != nil {
		return nil, err
	}
	r.jobs = js

	r.log.Infof("Registry initialized with asset root '%s'.", cfg.AssetRoot)
	return r, nil
}

// RegisterLoader binds loader to t. It fails when t already has a loader or
// when one of the loader's extensions is claimed by another type.
func (r *Registry) RegisterLoader(t resources.ResourceType, loader resources.Loader) error {
	if loader == nil {
		return fmt.Errorf("register %s: nil loader", t)
	}
	if t == resources.ResourceTypeNone {
		return fmt.Errorf("register loader: %w: %s", resources.ErrUnregisteredType, t)
	}

	exts := make([]string, 0, len(loader.Extensions()))
	for _, ext := range loader.Extensions() {
		ext = resources.NormalizeExtension(ext)
		if ext == "" || slices.Contains(exts, ext) {
			continue
		}
		exts = append(exts, ext)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loaders[t]; ok {
		return fmt.Errorf("register %s: %w", t, resources.ErrDuplicateType)
	}
	for _, ext := range exts {
		if owner, ok := r.extensions[ext]; ok {
			return fmt.Errorf("register %s: %q is claimed by %s: %w", t, ext, owner, resources.ErrDuplicateExtension)
		}
	}

	r.loaders[t] = &registration{resourceType: t, loader: loader, extensions: exts}
	for _, ext := range exts {
		r.extensions[ext] = t
	}
	r.extList = append(r.extList, exts...)
	slices.Sort(r.extList)

	r.log.Debugf("Loader registered for %s (%v).", t, exts)
	return nil
}

// Loader returns the loader registered for t.
func (r *Registry) Loader(t resources.ResourceType) (resources.Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.loaders[t]
	if !ok {
		return nil, false
	}
	return reg.loader, true
}

// Types returns every registered resource type in ascending order.
func (r *Registry) Types() []resources.ResourceType {
	r.mu.RLock()
	types := make([]resources.ResourceType, 0, len(r.loaders))
	for t := range r.loaders {
		types = append(types, t)
	}
	r.mu.RUnlock()

	slices.Sort(types)
	return types
}

// ResolveType infers the resource type of p from the longest registered
// extension it ends with.
func (r *Registry) ResolveType(p string) (resources.ResourceType, error) {
	t, _, err := r.resolveLoader(p, resources.ResourceTypeNone)
	return t, err
}

func (r *Registry) resolveLoader(p string, explicit resources.ResourceType) (resources.ResourceType, resources.Loader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if explicit != resources.ResourceTypeNone {
		reg, ok := r.loaders[explicit]
		if !ok {
			return resources.ResourceTypeNone, nil, fmt.Errorf("%s: %w", explicit, resources.ErrUnregisteredType)
		}
		return explicit, reg.loader, nil
	}

	ext, ok := resources.MatchExtension(p, r.extList)
	if !ok {
		return resources.ResourceTypeNone, nil, fmt.Errorf("resolve type of %q: %w", p, resources.ErrUnregisteredType)
	}
	t := r.extensions[ext]
	return t, r.loaders[t].loader, nil
}

// ResolvePath returns the cache key and the filesystem path of p. Raw paths
// are made absolute; all others are resolved against the asset root.
func (r *Registry) ResolvePath(p string, raw bool) (key, full string, err error) {
	if raw {
		key, err = resources.NormalizeRawPath(p)
		if err != nil {
			return "", "", fmt.Errorf("resolve %q: %w", p, err)
		}
		return key, filepath.FromSlash(key), nil
	}
	key = resources.NormalizePath(p)
	if key == "" {
		return "", "", fmt.Errorf("resolve %q: %w", p, resources.ErrInvalidPath)
	}
	if resources.EscapesRoot(key) {
		return "", "", fmt.Errorf("resolve %q: outside the asset root, use Raw: %w", p, resources.ErrInvalidPath)
	}
	return key, filepath.Join(r.cfg.AssetRoot, filepath.FromSlash(key)), nil
}

// Load returns the resource at p, loading and caching it on first use.
// Paths of the form "parent#id" address sub-assets.
func (r *Registry) Load(p string, opts ...LoadOption) (resources.Resource, error) {
	o := applyLoadOptions(opts)

	var (
		res resources.Resource
		err error
	)
	if parent, id, ok := resources.SplitSubAsset(p); ok {
		res, err = r.subAssets.Resolve(parent, id, o)
	} else {
		res, _, err = r.load(p, o)
	}
	if err != nil && o.placeholder {
		if ph, ok := r.placeholderFor(p, o); ok {
			r.log.Warnf("Using placeholder for '%s': %v", p, err)
			return ph, nil
		}
	}
	return res, err
}

// Load is the typed form of Registry.Load.
func Load[T any](r *Registry, p string, opts ...LoadOption) (T, error) {
	var zero T
	res, err := r.Load(p, opts...)
	if err != nil {
		return zero, err
	}
	typed, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("load %q: resource is %T, not %T: %w", p, res, zero, resources.ErrTypeMismatch)
	}
	return typed, nil
}

func (r *Registry) load(p string, o loadOptions) (resources.Resource, string, error) {
	t, loader, err := r.resolveLoader(p, o.resourceType)
	if err != nil {
		return nil, "", err
	}
	key, full, err := r.ResolvePath(p, o.raw)
	if err != nil {
		return nil, "", err
	}

	loaded := false
	res, err := r.cache.GetOrLoad(key, func() (*LoadResult, error) {
		r.log.Debugf("Loading %s '%s'.", t, key)
		v, err := loader.Load(full)
		if err != nil {
			return nil, &resources.LoadError{Op: "load", Path: key, Type: t, Err: err}
		}
		loaded = true
		return &LoadResult{Value: v, Type: t, Loader: loader, FullPath: full}, nil
	})
	if err != nil {
		return nil, "", err
	}

	if o.resourceType != resources.ResourceTypeNone {
		if info, ok := r.cache.Info(key); ok && info.Type != o.resourceType {
			return nil, "", fmt.Errorf("load %q as %s: cached as %s: %w", key, o.resourceType, info.Type, resources.ErrTypeMismatch)
		}
	}
	if loaded {
		r.events.Fire(core.EVENT_CODE_ASSET_LOADED, r, core.EventContext{Path: key, Data: res})
	}
	return res, key, nil
}

func (r *Registry) placeholderFor(p string, o loadOptions) (resources.Resource, bool) {
	if parent, _, ok := resources.SplitSubAsset(p); ok {
		p = parent
		if o.parentType != resources.ResourceTypeNone {
			o.resourceType = o.parentType
		}
	}
	_, loader, err := r.resolveLoader(p, o.resourceType)
	if err != nil {
		return nil, false
	}
	return resources.PlaceholderOf(loader)
}

// Get returns the cached resource at p without loading it.
func (r *Registry) Get(p string, opts ...LoadOption) (resources.Resource, bool) {
	o := applyLoadOptions(opts)
	if parent, id, ok := resources.SplitSubAsset(p); ok {
		key, _, err := r.ResolvePath(parent, o.raw)
		if err != nil {
			return nil, false
		}
		info, ok := r.cache.Info(key)
		if !ok {
			return nil, false
		}
		return r.subAssets.Peek(info.Value, id)
	}
	key, _, err := r.ResolvePath(p, o.raw)
	if err != nil {
		return nil, false
	}
	return r.cache.Get(key)
}

// Add registers an in-memory resource under p, as if it had been loaded
// from there. Used for resources created by the editor before their first save.
func (r *Registry) Add(p string, t resources.ResourceType, res resources.Resource, opts ...LoadOption) error {
	o := applyLoadOptions(opts)
	_, loader, err := r.resolveLoader(p, t)
	if err != nil {
		return err
	}
	key, full, err := r.ResolvePath(p, o.raw)
	if err != nil {
		return err
	}
	return r.cache.Put(key, &LoadResult{Value: res, Type: t, Loader: loader, FullPath: full})
}

func (r *Registry) Retain(p string, opts ...LoadOption) error {
	key, _, err := r.ResolvePath(p, applyLoadOptions(opts).raw)
	if err != nil {
		return err
	}
	return r.cache.Retain(key)
}

func (r *Registry) Release(p string, opts ...LoadOption) error {
	key, _, err := r.ResolvePath(p, applyLoadOptions(opts).raw)
	if err != nil {
		return err
	}
	if err := r.cache.Release(key); err != nil {
		r.log.Errorf("Unbalanced release: %v", err)
		return err
	}
	return nil
}

// Evict drops p from the cache unless it is retained.
func (r *Registry) Evict(p string, opts ...LoadOption) bool {
	key, _, err := r.ResolvePath(p, applyLoadOptions(opts).raw)
	if err != nil {
		return false
	}
	return r.cache.Evict(key)
}

// Clear evicts every unretained resource.
func (r *Registry) Clear() int {
	return r.cache.Clear()
}

// PathOf returns the path res was loaded from or registered under.
func (r *Registry) PathOf(res resources.Resource) (string, bool) {
	return r.cache.PathOf(res)
}

// Persist writes res back to the path it was loaded from.
func (r *Registry) Persist(res resources.Resource) error {
	key, ok := r.cache.PathOf(res)
	if !ok {
		return fmt.Errorf("persist %T: %w", res, resources.ErrUntrackedResource)
	}
	info, ok := r.cache.Info(key)
	if !ok {
		return fmt.Errorf("persist %q: %w", key, resources.ErrUntrackedResource)
	}
	return r.save(info.Loader, info.Type, res, key, info.FullPath)
}

// PersistTo writes res to p. The cache entry and identity of res are left
// untouched; a different resource cached at p is reloaded afterwards.
func (r *Registry) PersistTo(res resources.Resource, p string, opts ...LoadOption) error {
	o := applyLoadOptions(opts)
	key, full, err := r.ResolvePath(p, o.raw)
	if err != nil {
		return err
	}

	var (
		t      resources.ResourceType
		loader resources.Loader
	)
	if owner, ok := r.cache.PathOf(res); ok && o.resourceType == resources.ResourceTypeNone {
		info, _ := r.cache.Info(owner)
		t, loader = info.Type, info.Loader
	} else {
		t, loader, err = r.resolveLoader(p, o.resourceType)
		if err != nil {
			return err
		}
	}
	if loader == nil {
		return fmt.Errorf("persist %q: %w", key, resources.ErrUntrackedResource)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return &resources.LoadError{Op: "save", Path: key, Type: t, Err: err}
	}
	if err := r.save(loader, t, res, key, full); err != nil {
		return err
	}

	if info, ok := r.cache.Info(key); ok && info.Value != res {
		if _, err := r.Reload(key, opts...); err != nil {
			r.log.Warnf("Resource cached at '%s' is stale after save: %v", key, err)
		}
	}
	return nil
}

func (r *Registry) save(loader resources.Loader, t resources.ResourceType, res resources.Resource, key, full string) error {
	if err := resources.Save(loader, res, full); err != nil {
		if errors.Is(err, resources.ErrUnsupportedOperation) {
			return fmt.Errorf("persist %s %q: %w", t, key, err)
		}
		return &resources.LoadError{Op: "save", Path: key, Type: t, Err: err}
	}
	r.log.Debugf("Saved %s '%s'.", t, key)
	return nil
}

// Reload refreshes the cached resource at p in place. See Reloader.Reload.
func (r *Registry) Reload(p string, opts ...LoadOption) (bool, error) {
	key, _, err := r.ResolvePath(p, applyLoadOptions(opts).raw)
	if err != nil {
		return false, err
	}
	return r.reloader.Reload(key)
}

// ReloadAll reloads every cached resource. See Reloader.ReloadAll.
func (r *Registry) ReloadAll() (int, error) {
	return r.reloader.ReloadAll()
}

// Paths returns the keys of every cached resource.
func (r *Registry) Paths() []string {
	return r.cache.Paths()
}

func (r *Registry) Cache() *Cache {
	return r.cache
}

func (r *Registry) Metadata() *resources.MetadataStore {
	return r.metadata
}

func (r *Registry) AssetRoot() string {
	return r.cfg.AssetRoot
}

func (r *Registry) Stats() StatsSnapshot {
	return r.cache.Stats()
}

func (r *Registry) ResetStats() {
	r.cache.ResetStats()
}

// Shutdown stops the watcher and the job system, then drops every cached
// resource regardless of retains.
func (r *Registry) Shutdown() error {
	var errs []error

	r.pendingMu.Lock()
	w := r.watcher
	r.watcher = nil
	r.pendingMu.Unlock()
	if w != nil {
		errs = append(errs, w.Close())
	}

	errs = append(errs, r.jobs.Shutdown())
	r.Update()

	n := r.cache.Purge()
	r.log.Infof("Registry shut down, %d resources released.", n)
	return errors.Join(errs...)
}

func (r *Registry) onEvict(info EntryInfo) {
	r.subAssets.Forget(info.Value)
	if u, ok := info.Loader.(resources.Unloader); ok {
		if err := u.Unload(info.Value); err != nil {
			r.log.Errorf("Unload of %s '%s' failed: %v", info.Type, info.Path, err)
		}
	}
	r.events.Fire(core.EVENT_CODE_ASSET_EVICTED, r, core.EventContext{Path: info.Path, Data: info.Value})
}
