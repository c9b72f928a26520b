package assets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

var ErrWatcherClosed = errors.New("watcher already closed")

// Watcher turns file system changes under the asset and metadata roots into
// reloads queued on the registry. Reloads themselves run in Registry.Update.
type Watcher struct {
	registry *Registry
	log      *log.Logger
	debounce time.Duration

	fsnotify *fsnotify.Watcher

	mu       sync.Mutex
	pending  map[string]time.Time
	isClosed bool

	done chan struct{}
	wg   sync.WaitGroup
}

/**
 * @brief Starts watching the asset root, and the metadata root when one is configured.
 * @param debounce Quiet period a path must observe before its reload is queued. 0 queues at once.
 */
func (r *Registry) Watch(debounce time.Duration) (*Watcher, error) {
	r.pendingMu.Lock()
	if r.watcher != nil {
		w := r.watcher
		r.pendingMu.Unlock()
		return w, nil
	}
	r.pendingMu.Unlock()

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		registry: r,
		log:      r.log.WithPrefix("watch"),
		debounce: debounce,
		fsnotify: fsWatch,
		pending:  make(map[string]time.Time),
		done:     make(chan struct{}),
	}

	roots := []string{r.cfg.AssetRoot}
	if mr := r.metadata.Root(); mr != "" {
		roots = append(roots, mr)
	}
	for _, root := range roots {
		if root == "" {
			continue
		}
		if err := w.addRecursive(root); err != nil {
			if root != r.cfg.AssetRoot && errors.Is(err, fs.ErrNotExist) {
				w.log.Debugf("Metadata root '%s' does not exist, not watching it.", root)
				continue
			}
			fsWatch.Close()
			return nil, err
		}
	}

	// Another caller may have won while the roots were being added.
	r.pendingMu.Lock()
	if existing := r.watcher; existing != nil {
		r.pendingMu.Unlock()
		fsWatch.Close()
		return existing, nil
	}
	r.watcher = w
	w.wg.Add(1)
	r.pendingMu.Unlock()

	go w.start()

	w.log.Infof("Watching %v for changes.", roots)
	return w, nil
}

// Close stops the watcher. Reloads already queued stay queued.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.isClosed {
		w.mu.Unlock()
		return nil
	}
	w.isClosed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()

	w.registry.pendingMu.Lock()
	if w.registry.watcher == w {
		w.registry.watcher = nil
	}
	w.registry.pendingMu.Unlock()
	return w.fsnotify.Close()
}

// addRecursive starts watching the named directory and all sub-directories.
func (w *Watcher) addRecursive(name string) error {
	w.mu.Lock()
	closed := w.isClosed
	w.mu.Unlock()
	if closed {
		return ErrWatcherClosed
	}
	return filepath.WalkDir(name, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			if walkPath != name {
				w.log.Warnf("Skipping '%s': %v", walkPath, err)
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return w.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (w *Watcher) start() {
	defer w.wg.Done()

	var tick <-chan time.Time
	if w.debounce > 0 {
		ticker := time.NewTicker(w.debounce / 2)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			w.handleEvent(e)

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			w.log.Error(err.Error())

		case now := <-tick:
			w.flush(now)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := w.addRecursive(e.Name); err != nil {
				w.log.Warnf("Cannot watch '%s': %v", e.Name, err)
			}
			return
		}
	}
	// Removed files keep their cached resource; the next write brings it back.
	if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	key, ok := w.keyFor(e.Name)
	if !ok {
		return
	}
	if _, cached := w.registry.cache.Info(key); !cached {
		return
	}
	if w.debounce <= 0 {
		w.registry.queueReload(key)
		return
	}

	w.mu.Lock()
	w.pending[key] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	var ready []string
	for key, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, key)
			delete(w.pending, key)
		}
	}
	w.mu.Unlock()

	for _, key := range ready {
		w.registry.queueReload(key)
	}
}

// keyFor maps a changed file to the cache key of the asset it affects.
// Sidecar changes map to the asset they describe.
func (w *Watcher) keyFor(name string) (string, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", false
	}

	if mr := w.registry.metadata.Root(); mr != "" && resources.IsMetadataFile(abs) {
		if rel, ok := relativeTo(mr, abs); ok {
			return resources.NormalizePath(rel[:len(rel)-len(resources.MetadataSuffix)]), true
		}
		return "", false
	}

	if root := w.registry.cfg.AssetRoot; root != "" {
		if rel, ok := relativeTo(root, abs); ok {
			key := resources.NormalizePath(rel)
			if _, cached := w.registry.cache.Info(key); cached {
				return key, true
			}
		}
	}
	// Raw loads are keyed by their absolute path.
	return filepath.ToSlash(abs), true
}

func relativeTo(root, abs string) (string, bool) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
