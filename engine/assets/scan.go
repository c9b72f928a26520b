package assets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// ScanByType lists the assets under dir whose most specific extension is
// claimed by the loader of t. dir is relative to the asset root; "" scans the
// whole root. Paths are returned sorted and asset-root relative.
//
// A loader claiming no extension is asked through resources.Discoverer
// instead, which is how sprite sheets are found. Without that capability the
// type cannot be scanned and ErrUnsupportedOperation is returned.
func (r *Registry) ScanByType(t resources.ResourceType, dir string) ([]string, error) {
	l, ok := r.Loader(t)
	if !ok {
		return nil, fmt.Errorf("scan %s: %w", t, resources.ErrUnregisteredType)
	}
	if len(l.Extensions()) == 0 {
		d, ok := l.(resources.Discoverer)
		if !ok {
			return nil, fmt.Errorf("scan %s: loader claims no extension: %w", t, resources.ErrUnsupportedOperation)
		}
		return r.scan(dir, func(rel string, _ resources.ResourceType, _ bool) bool {
			return d.Discovers(rel)
		})
	}
	return r.scan(dir, func(_ string, owner resources.ResourceType, claimed bool) bool {
		return claimed && owner == t
	})
}

// ScanAll lists every asset under dir claimed by any registered loader.
func (r *Registry) ScanAll(dir string) ([]string, error) {
	return r.scan(dir, func(_ string, _ resources.ResourceType, claimed bool) bool {
		return claimed
	})
}

func (r *Registry) scan(dir string, keep func(rel string, owner resources.ResourceType, claimed bool) bool) ([]string, error) {
	root := r.cfg.AssetRoot
	rel := resources.NormalizePath(dir)
	if resources.EscapesRoot(rel) {
		return nil, fmt.Errorf("scan %q: %w", dir, resources.ErrInvalidPath)
	}
	start := filepath.Join(root, filepath.FromSlash(rel))
	if _, err := os.Stat(start); err != nil {
		return nil, fmt.Errorf("scan %q: %w", dir, err)
	}

	r.mu.RLock()
	exts := slices.Clone(r.extList)
	owners := make(map[string]resources.ResourceType, len(r.extensions))
	for ext, t := range r.extensions {
		owners[ext] = t
	}
	r.mu.RUnlock()

	metaRoot := ""
	if mr := r.metadata.Root(); mr != "" {
		if abs, err := filepath.Abs(mr); err == nil {
			metaRoot = abs
		}
	}

	var found []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == start {
				return err
			}
			r.log.Warnf("Skipping unreadable '%s': %v", p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if metaRoot != "" {
				if abs, err := filepath.Abs(p); err == nil && abs == metaRoot {
					return fs.SkipDir
				}
			}
			return nil
		}
		if resources.IsMetadataFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = resources.NormalizePath(filepath.ToSlash(rel))
		ext, claimed := resources.MatchExtension(d.Name(), exts)
		if keep(rel, owners[ext], claimed) {
			found = append(found, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", dir, err)
	}

	slices.Sort(found)
	return found, nil
}
