package assets

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// note is a tiny mutable resource used across the registry tests.
type note struct {
	mu   sync.Mutex
	body string
}

func (n *note) Body() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.body
}

// noteLoader reads files verbatim and counts its Load calls. When gate is
// set, Load blocks on it after signalling started.
type noteLoader struct {
	exts    []string
	calls   atomic.Int32
	started chan struct{}
	gate    chan struct{}
}

func (l *noteLoader) Extensions() []string {
	if l.exts == nil {
		return []string{".note"}
	}
	return l.exts
}

func (l *noteLoader) Load(path string) (resources.Resource, error) {
	if l.calls.Add(1) == 1 && l.started != nil {
		close(l.started)
	}
	if l.gate != nil {
		<-l.gate
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if string(data) == "corrupt" {
		return nil, fmt.Errorf("parse %s: corrupt note", filepath.Base(path))
	}
	return &note{body: string(data)}, nil
}

func (l *noteLoader) Save(res resources.Resource, path string) error {
	n, ok := res.(*note)
	if !ok {
		return fmt.Errorf("cannot save %T", res)
	}
	return os.WriteFile(path, []byte(n.Body()), 0o644)
}

func (l *noteLoader) Reload(existing resources.Resource, path string) (resources.Resource, error) {
	n, ok := existing.(*note)
	if !ok {
		return nil, fmt.Errorf("cannot reload %T", existing)
	}
	fresh, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	n.body = fresh.(*note).body
	n.mu.Unlock()
	return n, nil
}

func (l *noteLoader) Placeholder() resources.Resource {
	return &note{body: "placeholder"}
}

// swappingLoader breaks the reload contract by returning a fresh instance.
type swappingLoader struct {
	noteLoader
}

func (l *swappingLoader) Reload(existing resources.Resource, path string) (resources.Resource, error) {
	return l.Load(path)
}

// readOnlyLoader has neither Save nor Reload.
type readOnlyLoader struct {
	exts []string
}

func (l *readOnlyLoader) Extensions() []string {
	return l.exts
}

func (l *readOnlyLoader) Load(path string) (resources.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &note{body: string(data)}, nil
}

// valueLoader returns a struct value instead of a pointer.
type valueLoader struct{}

func (valueLoader) Extensions() []string {
	return []string{".val"}
}

func (valueLoader) Load(path string) (resources.Resource, error) {
	return note{body: path}, nil
}

func newTestRegistry(t *testing.T, cfg Config, opts ...Option) *Registry {
	t.Helper()

	if cfg.AssetRoot == "" {
		cfg.AssetRoot = t.TempDir()
	}
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	r, err := NewRegistry(cfg, opts...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	t.Cleanup(func() {
		r.Shutdown()
	})
	return r
}

func writeAsset(t *testing.T, root, rel, content string) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeSheet(t *testing.T, root, rel string, w, h int) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}
