package testbed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/config"
)

func TestPreload(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Application.TickRate = 200
	cfg.Assets.Root = filepath.Join(dir, "assets")
	cfg.Assets.MetadataRoot = filepath.Join(dir, "meta")
	cfg.Logging.Level = "error"

	files := map[string]string{
		"readme.txt":       "hello",
		"data/items.json":  `{"sword": 3}`,
		"data/broken.json": `{`,
		"ignored.unknown":  "x",
	}
	for rel, content := range files {
		p := filepath.Join(cfg.Assets.Root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tg, err := NewTestGame(cfg)
	if err != nil {
		t.Fatal(err)
	}
	update := tg.FnUpdate
	var e *engine.Engine
	frames := 0
	tg.FnUpdate = func(delta float64) error {
		if err := update(delta); err != nil {
			return err
		}
		frames++
		if tg.state().reported || frames > 2000 {
			e.Stop()
		}
		return nil
	}

	e, err = engine.New(tg.Game)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Shutdown()
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}

	s := tg.state()
	if !s.reported {
		t.Fatalf("preload never completed after %d frames", frames)
	}
	if len(s.pending) != 3 {
		t.Fatalf("queued %d loads, want 3", len(s.pending))
	}
	if len(s.loaded) != 2 || s.failed != 1 {
		t.Fatalf("loaded %d, failed %d, want 2 and 1", len(s.loaded), s.failed)
	}
	if _, ok := s.loaded["data/items.json"]; !ok {
		t.Fatalf("data/items.json missing from %v", s.loaded)
	}
}
