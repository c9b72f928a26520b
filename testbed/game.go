package testbed

import (
	"errors"
	"io/fs"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	pending  []*assets.Handle
	loaded   map[string]resources.Resource
	failed   int
	reported bool
}

func NewTestGame(cfg *config.Config) (*TestGame, error) {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				Name:   "Anima Testbed",
				Config: cfg,
			},
			State: &gameState{
				loaded: make(map[string]resources.Resource),
			},
		},
	}

	tg.FnBoot = tg.Boot
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Boot() error {
	core.LogInfo("booting testbed...")

	g.Events.Register(core.EVENT_CODE_ASSET_RELOADED, g, g.onAssetEvent)
	g.Events.Register(core.EVENT_CODE_ASSET_RELOAD_FAILED, g, g.onAssetEvent)
	return nil
}

// Initialize queues every asset under the root for background loading.
func (g *TestGame) Initialize() error {
	paths, err := g.Registry.ScanAll("")
	if errors.Is(err, fs.ErrNotExist) {
		core.LogWarn("asset root '%s' does not exist, nothing to preload", g.Registry.AssetRoot())
		return nil
	}
	if err != nil {
		return err
	}

	s := g.state()
	for _, p := range paths {
		path := p
		h := g.Registry.LoadAsync(path, func(res resources.Resource, err error) {
			if err != nil {
				s.failed++
				core.LogWarn("preload of '%s' failed: %v", path, err)
				return
			}
			s.loaded[path] = res
		})
		s.pending = append(s.pending, h)
	}
	core.LogInfo("preloading %d assets", len(paths))
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	s := g.state()
	if s.reported || len(s.loaded)+s.failed < len(s.pending) {
		return nil
	}
	s.reported = true

	stats := g.Registry.Stats()
	core.LogInfo("preload complete: %d loaded, %d failed, %d cached, %d loader calls, hit rate %.2f",
		len(s.loaded), s.failed, len(g.Registry.Paths()), stats.Loads, stats.HitRate())
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed...")
	g.Events.Unregister(core.EVENT_CODE_ASSET_RELOADED, g)
	g.Events.Unregister(core.EVENT_CODE_ASSET_RELOAD_FAILED, g)
	return nil
}

func (g *TestGame) onAssetEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_ASSET_RELOADED:
		core.LogInfo("'%s' reloaded", context.Path)
	case core.EVENT_CODE_ASSET_RELOAD_FAILED:
		core.LogWarn("'%s' failed to reload, keeping the previous version: %v", context.Path, context.Err)
	}
	return false
}
