package resources

import (
	"errors"
	"fmt"
)

var (
	ErrUnregisteredType        = errors.New("no loader registered for resource type")
	ErrUnsupportedOperation    = errors.New("operation not supported by loader")
	ErrUntrackedResource       = errors.New("resource is not tracked by the registry")
	ErrReloadContractViolation = errors.New("loader reload returned a new instance")
	ErrInvalidSubAssetID       = errors.New("invalid sub-asset id")
	ErrSubAssetOutOfRange      = errors.New("sub-asset id out of range")
	ErrDuplicateExtension      = errors.New("extension already claimed by another loader")
	ErrDuplicateType           = errors.New("loader already registered for resource type")
	ErrNotCached               = errors.New("resource is not cached")
	ErrNotRetained             = errors.New("release without matching retain")
	ErrAlreadyCached           = errors.New("resource already cached")
	ErrNotReference            = errors.New("loader returned a non-pointer resource")
	ErrTypeMismatch            = errors.New("path is cached as a different resource type")
	ErrInvalidPath             = errors.New("invalid resource path")
)

// LoadError reports an I/O or parse failure for a single resource path.
type LoadError struct {
	Op   string
	Path string
	Type ResourceType
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s %s %q: %v", e.Op, e.Type, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ReloadContractError is returned when a loader's Reload hands back an
// instance other than the one it was asked to update.
type ReloadContractError struct {
	Path string
	Type ResourceType
}

func (e *ReloadContractError) Error() string {
	return fmt.Sprintf("reload %s %q: %v", e.Type, e.Path, ErrReloadContractViolation)
}

func (e *ReloadContractError) Unwrap() error {
	return ErrReloadContractViolation
}
