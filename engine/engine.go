package engine

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	mu           sync.Mutex
	currentStage Stage
	gameInstance *Game
	cfg          *config.Config
	log          *log.Logger

	events   *core.EventSystem
	registry *assets.Registry
	clock    *core.Clock
	metrics  *core.FrameMetrics
	lastTime float64
	frames   atomic.Uint64

	quit     chan struct{}
	quitOnce sync.Once
}

// New builds the event system and the asset registry from the game's
// configuration and runs the game's boot hook.
func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, fmt.Errorf("new engine: game has no application config")
	}
	cfg := g.ApplicationConfig.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if g.ApplicationConfig.LogLevel != "" {
		cfg.Logging.Level = g.ApplicationConfig.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := core.SetLogLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}

	name := g.ApplicationConfig.Name
	if name == "" {
		name = cfg.Application.Name
	}
	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		cfg:          cfg,
		log:          core.Logger().WithPrefix(name),
		events:       core.NewEventSystem(),
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		quit:         make(chan struct{}),
	}

	e.currentStage = EngineStageBooting
	registry, err := assets.NewRegistry(assets.Config{
		AssetRoot:    cfg.Assets.Root,
		MetadataRoot: cfg.Assets.MetadataRoot,
		MaxEntries:   cfg.Assets.MaxEntries,
		Workers:      cfg.Jobs.Workers,
		QueueSize:    cfg.Jobs.QueueSize,
	}, assets.WithEvents(e.events))
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	e.registry = registry
	g.Registry = registry
	g.Events = e.events

	if g.FnBoot != nil {
		if err := g.FnBoot(); err != nil {
			return nil, errors.Join(err, registry.Shutdown())
		}
	}
	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.currentStage != EngineStageBootComplete {
		return core.ErrAlreadyInitialized
	}
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)

	if err := assets.RegisterDefaults(e.registry); err != nil {
		return err
	}

	if e.cfg.Watch.Enabled {
		for _, dir := range []string{e.cfg.Assets.Root, e.cfg.Assets.MetadataRoot} {
			if dir == "" {
				continue
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		debounce, err := e.cfg.Watch.DebounceDuration()
		if err != nil {
			return err
		}
		if _, err := e.registry.Watch(debounce); err != nil {
			return err
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Run ticks the main loop until Stop is called or EVENT_CODE_APPLICATION_QUIT
// fires. Each frame delivers finished async loads and queued reloads through
// Registry.Update before the game's update hook runs.
func (e *Engine) Run() error {
	e.mu.Lock()
	switch e.currentStage {
	case EngineStageInitialized:
	case EngineStageRunning:
		e.mu.Unlock()
		return core.ErrAlreadyRunning
	default:
		e.mu.Unlock()
		return core.ErrNotInitialized
	}
	e.currentStage = EngineStageRunning
	e.mu.Unlock()

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	ticker := time.NewTicker(e.cfg.Application.FrameTime())
	defer ticker.Stop()

	for {
		select {
		case <-e.quit:
			e.clock.Stop()
			return nil
		case <-ticker.C:
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStart := time.Now()

		if n := e.registry.Update(); n > 0 {
			e.log.Debugf("Delivered %d asset updates.", n)
		}

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				e.log.Errorf("Game update failed, shutting down: %v", err)
				e.clock.Stop()
				return err
			}
		}

		e.metrics.Update(time.Since(frameStart).Seconds())
		e.frames.Add(1)
		e.lastTime = currentTime
	}
}

// Stop makes Run return after the current frame. Safe to call from any
// goroutine, more than once.
func (e *Engine) Stop() {
	e.quitOnce.Do(func() {
		close(e.quit)
	})
}

// Shutdown runs the game's shutdown hook, then stops the registry and drops
// every event registration.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if e.currentStage == EngineStageShuttingDown {
		e.mu.Unlock()
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.mu.Unlock()

	e.Stop()

	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	errs = append(errs, e.registry.Shutdown())
	e.events.Shutdown()
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentStage
}

func (e *Engine) Registry() *assets.Registry {
	return e.registry
}

func (e *Engine) Events() *core.EventSystem {
	return e.events
}

// Frames returns how many frames Run has completed.
func (e *Engine) Frames() uint64 {
	return e.frames.Load()
}

func (e *Engine) Metrics() *core.FrameMetrics {
	return e.metrics
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		e.log.Info("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		return true
	}
	return false
}
