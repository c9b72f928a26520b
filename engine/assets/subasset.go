package assets

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

type childKey struct {
	parent resources.Resource
	id     string
}

// SubAssetResolver serves "parent#id" paths. Parents go through the normal
// registry load path; children are cached per parent instance so repeated
// requests return the same child until the parent is reloaded or evicted.
type SubAssetResolver struct {
	registry *Registry

	mu       sync.Mutex
	children map[childKey]resources.Resource
	byParent map[resources.Resource][]string
	// gens counts the invalidations of each cached parent.
	gens map[resources.Resource]uint64
}

// maxResolveAttempts bounds how often a child is rebuilt when its parent
// keeps changing underneath it.
const maxResolveAttempts = 3

func newSubAssetResolver(r *Registry) *SubAssetResolver {
	return &SubAssetResolver{
		registry: r,
		children: make(map[childKey]resources.Resource),
		byParent: make(map[resources.Resource][]string),
		gens:     make(map[resources.Resource]uint64),
	}
}

// Resolve returns child id of the resource at parentPath.
func (s *SubAssetResolver) Resolve(parentPath, id string, o loadOptions) (resources.Resource, error) {
	composite := resources.JoinSubAsset(parentPath, id)
	if id == "" {
		return nil, fmt.Errorf("load %q: empty id: %w", composite, resources.ErrInvalidSubAssetID)
	}

	parentOpts := loadOptions{resourceType: s.parentType(o), raw: o.raw}
	parent, key, err := s.registry.load(parentPath, parentOpts)
	if err != nil {
		return nil, err
	}
	info, ok := s.registry.cache.Info(key)
	if !ok {
		return nil, fmt.Errorf("load %q: parent %w", composite, resources.ErrNotCached)
	}
	provider, ok := info.Loader.(resources.SubAssetProvider)
	if !ok {
		return nil, fmt.Errorf("load %q: %s has no sub-assets: %w", composite, info.Type, resources.ErrUnsupportedOperation)
	}

	ck := childKey{parent: parent, id: id}
	// ResourceTypeNone lets the loader pick its natural child type.
	expected := o.resourceType

	var child resources.Resource
	for attempt := 1; ; attempt++ {
		s.mu.Lock()
		if existing, ok := s.children[ck]; ok {
			s.mu.Unlock()
			return existing, nil
		}
		gen := s.gens[parent]
		s.mu.Unlock()

		child, err = provider.SubAsset(parent, id, expected)
		if err != nil {
			return nil, fmt.Errorf("load %q: %w", composite, err)
		}
		if !isReference(child) {
			return nil, &resources.LoadError{Op: "load", Path: composite, Type: expected, Err: resources.ErrNotReference}
		}

		stored, retry := s.store(ck, child, gen)
		if !retry {
			return stored, nil
		}
		if attempt == maxResolveAttempts {
			s.registry.log.Warnf("'%s' keeps changing, returning an uncached child.", composite)
			return child, nil
		}
	}
}

// store caches child unless its parent was invalidated since gen was read,
// in which case retry is true. A parent no longer in the cache gets no
// cached children.
func (s *SubAssetResolver) store(ck childKey, child resources.Resource, gen uint64) (stored resources.Resource, retry bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.children[ck]; ok {
		return existing, false
	}
	if s.gens[ck.parent] != gen {
		return nil, true
	}
	// Eviction removes the entry before Forget runs, so this check under
	// s.mu cannot miss it.
	if _, cached := s.registry.cache.PathOf(ck.parent); !cached {
		return child, false
	}
	s.children[ck] = child
	s.byParent[ck.parent] = append(s.byParent[ck.parent], ck.id)
	return child, false
}

// parentType picks the type the parent is loaded as: an explicit parent
// type, else the requested type if its loader has sub-assets, else the
// extension.
func (s *SubAssetResolver) parentType(o loadOptions) resources.ResourceType {
	if o.parentType != resources.ResourceTypeNone {
		return o.parentType
	}
	if o.resourceType != resources.ResourceTypeNone {
		if l, ok := s.registry.Loader(o.resourceType); ok && resources.SupportsSubAssets(l) {
			return o.resourceType
		}
	}
	return resources.ResourceTypeNone
}

// Peek returns an already resolved child without creating it.
func (s *SubAssetResolver) Peek(parent resources.Resource, id string) (resources.Resource, bool) {
	if !isReference(parent) {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	child, ok := s.children[childKey{parent: parent, id: id}]
	return child, ok
}

// Invalidate forgets every child of parent and returns how many were dropped.
// Children being built for parent while it runs are not cached.
func (s *SubAssetResolver) Invalidate(parent resources.Resource) int {
	if !isReference(parent) {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gens[parent]++
	return s.dropLocked(parent)
}

// Forget drops every child of an evicted parent along with its bookkeeping.
func (s *SubAssetResolver) Forget(parent resources.Resource) int {
	if !isReference(parent) {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.gens, parent)
	return s.dropLocked(parent)
}

func (s *SubAssetResolver) dropLocked(parent resources.Resource) int {
	ids := s.byParent[parent]
	for _, id := range ids {
		delete(s.children, childKey{parent: parent, id: id})
	}
	delete(s.byParent, parent)
	return len(ids)
}
