package engine

import (
	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	// Set by engine.New before FnBoot runs.
	Registry *assets.Registry
	Events   *core.EventSystem
	State    interface{}

	FnBoot       Boot
	FnInitialize Initialize
	FnUpdate     Update
	FnShutdown   Shutdown
}

type Boot func() error
type Initialize func() error
type Update func(deltaTime float64) error
type Shutdown func() error
