package assets

import (
	"errors"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

func newSheetRegistry(t *testing.T) *Registry {
	t.Helper()

	root := t.TempDir()
	r := newTestRegistry(t, Config{AssetRoot: filepath.Join(root, "assets"), MetadataRoot: filepath.Join(root, "meta")})
	if err := RegisterDefaults(r); err != nil {
		t.Fatal(err)
	}
	writeSheet(t, r.AssetRoot(), "sheet.png", 16, 16)
	if err := r.Metadata().Save("sheet.png", &resources.AssetMetadata{
		Grid: &resources.Grid{CellWidth: 8, CellHeight: 8},
	}); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSubAssetAddressing(t *testing.T) {
	r := newSheetRegistry(t)
	opts := []LoadOption{WithType(resources.ResourceTypeSprite)}

	two, err := r.Load("sheet.png#2", opts...)
	if err != nil {
		t.Fatalf("Load #2 failed: %v", err)
	}
	three, err := r.Load("sheet.png#3", opts...)
	if err != nil {
		t.Fatalf("Load #3 failed: %v", err)
	}
	if two == three {
		t.Fatal("different cells returned the same child")
	}
	if f := two.(*loaders.SpriteFrame); f.Rect != image.Rect(0, 8, 8, 16) {
		t.Errorf("cell 2 at %v", f.Rect)
	}

	again, _ := r.Load("sheet.png#2", opts...)
	if again != two {
		t.Fatal("repeated request returned a new child")
	}
	if peek, ok := r.Get("sheet.png#2"); !ok || peek != two {
		t.Fatal("Get did not find the resolved child")
	}

	// The parent was loaded once and is cached under its own path.
	st := r.Stats()
	if st.Loads != 1 {
		t.Fatalf("parent loaded %d times, want 1", st.Loads)
	}
	if paths := r.Paths(); len(paths) != 1 || paths[0] != "sheet.png" {
		t.Fatalf("got paths %v", paths)
	}
}

func TestSubAssetErrors(t *testing.T) {
	r := newSheetRegistry(t)
	sprite := WithType(resources.ResourceTypeSprite)

	_, err := r.Load("sheet.png#99", sprite)
	if !errors.Is(err, resources.ErrSubAssetOutOfRange) {
		t.Fatalf("got %v, want ErrSubAssetOutOfRange", err)
	}
	if !strings.Contains(err.Error(), "sheet.png#99") {
		t.Errorf("error %q does not name the path", err)
	}
	if _, err := r.Load("sheet.png#head", sprite); !errors.Is(err, resources.ErrInvalidSubAssetID) {
		t.Fatalf("got %v, want ErrInvalidSubAssetID", err)
	}
	if _, err := r.Load("sheet.png#", sprite); !errors.Is(err, resources.ErrInvalidSubAssetID) {
		t.Fatalf("got %v, want ErrInvalidSubAssetID", err)
	}

	// Textures have no children.
	r2 := newTestRegistry(t, Config{})
	RegisterDefaults(r2)
	writeSheet(t, r2.AssetRoot(), "plain.png", 4, 4)
	if _, err := r2.Load("plain.png#0"); !errors.Is(err, resources.ErrUnsupportedOperation) {
		t.Fatalf("got %v, want ErrUnsupportedOperation", err)
	}
}

func TestSubAssetChildType(t *testing.T) {
	r := newSheetRegistry(t)

	child, err := r.Load("sheet.png#1", WithParentType(resources.ResourceTypeSprite), WithType(resources.ResourceTypeTexture))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	tex, ok := child.(*loaders.Texture)
	if !ok {
		t.Fatalf("got %T, want *loaders.Texture", child)
	}
	if w, h := tex.Size(); w != 8 || h != 8 {
		t.Errorf("got %dx%d", w, h)
	}
}

func TestSubAssetsInvalidatedOnReload(t *testing.T) {
	r := newSheetRegistry(t)
	sprite := WithType(resources.ResourceTypeSprite)

	before, err := r.Load("sheet.png#0", sprite)
	if err != nil {
		t.Fatal(err)
	}
	parent, _ := r.Get("sheet.png")

	if err := r.Metadata().Save("sheet.png", &resources.AssetMetadata{
		Grid: &resources.Grid{CellWidth: 4, CellHeight: 4},
	}); err != nil {
		t.Fatal(err)
	}
	if ok, err := r.Reload("sheet.png"); !ok || err != nil {
		t.Fatalf("Reload = %v, %v", ok, err)
	}
	if _, ok := r.Get("sheet.png#0"); ok {
		t.Fatal("children survived the parent reload")
	}

	after, err := r.Load("sheet.png#0", sprite)
	if err != nil {
		t.Fatal(err)
	}
	if after == before {
		t.Fatal("expected a regenerated child")
	}
	if f := after.(*loaders.SpriteFrame); f.Sheet != parent || f.Rect.Dx() != 4 {
		t.Fatalf("got frame %+v", f)
	}
	// New grid has 16 cells.
	if _, err := r.Load("sheet.png#15", sprite); err != nil {
		t.Fatalf("cell 15 after reload: %v", err)
	}
}

// gatedPartLoader serves "note#id" children derived from the note body.
// The first SubAsset call signals partStarted and waits for partGate.
type gatedPartLoader struct {
	noteLoader
	once        sync.Once
	partStarted chan struct{}
	partGate    chan struct{}
}

func (l *gatedPartLoader) SubAsset(parent resources.Resource, id string, expected resources.ResourceType) (resources.Resource, error) {
	body := parent.(*note).Body()
	l.once.Do(func() {
		close(l.partStarted)
		<-l.partGate
	})
	return &note{body: body + "#" + id}, nil
}

func TestSubAssetBuiltDuringReloadIsNotCached(t *testing.T) {
	r := newTestRegistry(t, Config{})
	gl := &gatedPartLoader{partStarted: make(chan struct{}), partGate: make(chan struct{})}
	r.RegisterLoader(resources.ResourceTypeText, gl)
	writeAsset(t, r.AssetRoot(), "a.note", "old")

	type result struct {
		res resources.Resource
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := r.Load("a.note#1")
		done <- result{res, err}
	}()

	<-gl.partStarted
	// The child is being built from "old" while the parent changes.
	writeAsset(t, r.AssetRoot(), "a.note", "new")
	if ok, err := r.Reload("a.note"); !ok || err != nil {
		t.Fatalf("Reload = %v, %v", ok, err)
	}
	close(gl.partGate)

	got := <-done
	if got.err != nil {
		t.Fatalf("Load failed: %v", got.err)
	}
	if body := got.res.(*note).Body(); body != "new#1" {
		t.Fatalf("in-flight load returned %q, want new#1", body)
	}
	again, err := r.Load("a.note#1")
	if err != nil {
		t.Fatal(err)
	}
	if body := again.(*note).Body(); body != "new#1" {
		t.Fatalf("cached child holds %q, want new#1", body)
	}
}

func TestSubAssetOfEvictedParentIsNotCached(t *testing.T) {
	r := newTestRegistry(t, Config{})
	gl := &gatedPartLoader{partStarted: make(chan struct{}), partGate: make(chan struct{})}
	r.RegisterLoader(resources.ResourceTypeText, gl)
	writeAsset(t, r.AssetRoot(), "a.note", "old")

	done := make(chan error, 1)
	go func() {
		_, err := r.Load("a.note#1")
		done <- err
	}()

	<-gl.partStarted
	parent, _ := r.Get("a.note")
	r.Evict("a.note")
	close(gl.partGate)
	if err := <-done; err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, ok := r.subAssets.Peek(parent, "1"); ok {
		t.Fatal("child of an evicted parent was cached")
	}
}

func TestSubAssetsInvalidatedOnEvict(t *testing.T) {
	r := newSheetRegistry(t)
	sprite := WithType(resources.ResourceTypeSprite)

	if _, err := r.Load("sheet.png#0", sprite); err != nil {
		t.Fatal(err)
	}
	parent, _ := r.Get("sheet.png")
	if !r.Evict("sheet.png") {
		t.Fatal("Evict failed")
	}
	if n := r.subAssets.Invalidate(parent); n != 0 {
		t.Fatalf("%d children survived eviction", n)
	}
}
