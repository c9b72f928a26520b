package assets

import (
	"errors"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

/*
Reloader refreshes cached resources from disk while keeping every existing
reference valid: a loader's Reload must write into the cached instance and
return that same instance. Anything else is a contract violation and the old
instance stays cached. A failed reload never touches the cache entry.
*/
type Reloader struct {
	cache     *Cache
	subAssets *SubAssetResolver
	events    *core.EventSystem
	log       *log.Logger

	flight singleflight.Group
}

func NewReloader(cache *Cache, subAssets *SubAssetResolver, events *core.EventSystem, logger *log.Logger) *Reloader {
	if logger == nil {
		logger = core.Logger().WithPrefix("reload")
	}
	return &Reloader{
		cache:     cache,
		subAssets: subAssets,
		events:    events,
		log:       logger,
	}
}

// Reload re-reads the resource cached at path. It returns false without an
// error when path is not cached or its loader cannot hot reload. Concurrent
// reloads of the same path share one loader call.
func (h *Reloader) Reload(path string) (bool, error) {
	v, err, _ := h.flight.Do(path, func() (interface{}, error) {
		ok, err := h.reload(path)
		return ok, err
	})
	ok, _ := v.(bool)
	return ok, err
}

func (h *Reloader) reload(path string) (bool, error) {
	info, ok := h.cache.Info(path)
	if !ok {
		return false, nil
	}
	hr, ok := info.Loader.(resources.HotReloader)
	if !ok {
		h.log.Debugf("%s loader does not hot reload, skipping '%s'.", info.Type, path)
		return false, nil
	}

	got, err := hr.Reload(info.Value, info.FullPath)
	if err != nil {
		lerr := &resources.LoadError{Op: "reload", Path: path, Type: info.Type, Err: err}
		h.log.Errorf("Reload failed, keeping previous state: %v", lerr)
		h.events.Fire(core.EVENT_CODE_ASSET_RELOAD_FAILED, h, core.EventContext{Path: path, Data: info.Value, Err: lerr})
		return false, lerr
	}
	if got != info.Value {
		cerr := &resources.ReloadContractError{Path: path, Type: info.Type}
		h.log.Errorf("%v: keeping the cached instance", cerr)
		h.events.Fire(core.EVENT_CODE_ASSET_RELOAD_FAILED, h, core.EventContext{Path: path, Data: info.Value, Err: cerr})
		return false, cerr
	}

	h.cache.markReloaded(path)
	if h.subAssets != nil {
		h.subAssets.Invalidate(info.Value)
	}
	h.log.Debugf("Reloaded %s '%s'.", info.Type, path)
	h.events.Fire(core.EVENT_CODE_ASSET_RELOADED, h, core.EventContext{Path: path, Data: info.Value})
	return true, nil
}

// ReloadAll reloads every cached top-level resource and returns how many
// were reloaded. A failing path does not stop the others; all failures are
// joined into the returned error.
func (h *Reloader) ReloadAll() (int, error) {
	var (
		count int
		errs  []error
	)
	for _, path := range h.cache.Paths() {
		if resources.IsSubAssetPath(path) {
			continue
		}
		ok, err := h.Reload(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			count++
		}
	}
	return count, errors.Join(errs...)
}
