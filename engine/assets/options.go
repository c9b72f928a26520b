package assets

import (
	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

/** @brief The configuration of a Registry. */
type Config struct {
	/** @brief Directory every non-raw resource path is relative to. */
	AssetRoot string
	/** @brief Directory mirroring AssetRoot that holds sidecar metadata. Optional. */
	MetadataRoot string
	/** @brief Maximum number of cache entries before LRU eviction kicks in. 0 disables it. */
	MaxEntries int
	/** @brief Number of workers serving LoadAsync. */
	Workers int
	/** @brief Capacity of the async job queue. */
	QueueSize int
}

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(l *log.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// WithEvents makes the registry fire asset events on es.
func WithEvents(es *core.EventSystem) Option {
	return func(r *Registry) {
		r.events = es
	}
}

// WithCacheOptions forwards extra options to the registry's cache.
func WithCacheOptions(opts ...CacheOption) Option {
	return func(r *Registry) {
		r.cacheOpts = append(r.cacheOpts, opts...)
	}
}

type loadOptions struct {
	resourceType resources.ResourceType
	parentType   resources.ResourceType
	raw          bool
	placeholder  bool
}

// LoadOption tunes a single Load, Get or Persist call.
type LoadOption func(*loadOptions)

// WithType forces the resource type instead of inferring it from the extension.
func WithType(t resources.ResourceType) LoadOption {
	return func(o *loadOptions) {
		o.resourceType = t
	}
}

// WithParentType sets the type used to load the parent of a sub-asset path.
func WithParentType(t resources.ResourceType) LoadOption {
	return func(o *loadOptions) {
		o.parentType = t
	}
}

// Raw bypasses asset-root resolution: the path is used as given.
func Raw() LoadOption {
	return func(o *loadOptions) {
		o.raw = true
	}
}

// WithPlaceholder opts into receiving the loader's placeholder, instead of
// an error, when the load fails and the loader defines one.
func WithPlaceholder() LoadOption {
	return func(o *loadOptions) {
		o.placeholder = true
	}
}

func applyLoadOptions(opts []LoadOption) loadOptions {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
