package resources

import "fmt"

/**
 * @brief The contract every resource type implements. A loader receives a fully
 * resolved filesystem path and must not keep any state about the registry.
 * Load never returns a partially constructed resource: on failure it returns an error.
 */
type Loader interface {
	Load(path string) (Resource, error)
	// Extensions returns the dot-prefixed, case-insensitive file extensions the
	// loader claims. Compound extensions such as ".dialogue.json" are allowed.
	Extensions() []string
}

// Discoverer is implemented by loaders that claim no extension but can still
// recognise their files during a scan. rel is asset-root relative.
type Discoverer interface {
	Discovers(rel string) bool
}

// Saver is implemented by loaders able to serialize a resource back to disk.
type Saver interface {
	Save(res Resource, path string) error
}

// Placeholder is implemented by loaders that have a sensible stand-in value
// for resources that failed to load.
type Placeholder interface {
	Placeholder() Resource
}

/**
 * @brief Implemented by loaders supporting hot reload. Reload must write the new
 * file contents into existing and return existing itself. Returning any other
 * instance is a contract violation.
 */
type HotReloader interface {
	Reload(existing Resource, path string) (Resource, error)
}

// SubAssetProvider is implemented by loaders whose resources expose children
// addressed as "parent#id".
type SubAssetProvider interface {
	SubAsset(parent Resource, id string, expected ResourceType) (Resource, error)
}

// Unloader releases anything a resource holds outside the Go heap once it
// has been evicted from the cache.
type Unloader interface {
	Unload(res Resource) error
}

// EditorInfo exposes editor metadata for a resource type.
type EditorInfo interface {
	Icon() string
	InstantiateAsEntity() bool
}

// Save writes res through l, or fails with ErrUnsupportedOperation when l
// cannot serialize.
func Save(l Loader, res Resource, path string) error {
	s, ok := l.(Saver)
	if !ok {
		return fmt.Errorf("save %q: %w", path, ErrUnsupportedOperation)
	}
	return s.Save(res, path)
}

// PlaceholderOf returns the loader's placeholder, if it defines one.
func PlaceholderOf(l Loader) (Resource, bool) {
	p, ok := l.(Placeholder)
	if !ok {
		return nil, false
	}
	res := p.Placeholder()
	return res, res != nil
}

func SupportsHotReload(l Loader) bool {
	_, ok := l.(HotReloader)
	return ok
}

func SupportsSubAssets(l Loader) bool {
	_, ok := l.(SubAssetProvider)
	return ok
}

// Describe returns the editor icon and entity flag for l. Loaders without
// editor metadata get a generic icon.
func Describe(l Loader) (icon string, asEntity bool) {
	if ei, ok := l.(EditorInfo); ok {
		return ei.Icon(), ei.InstantiateAsEntity()
	}
	return "file", false
}
