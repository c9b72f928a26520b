package loaders

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

func TestParseCodepoint(t *testing.T) {
	tests := []struct {
		id   string
		want rune
		err  error
	}{
		{"65", 'A', nil},
		{"A", 'A', nil},
		{"é", 'é', nil},
		{"-1", 0, resources.ErrInvalidSubAssetID},
		{"AB", 0, resources.ErrInvalidSubAssetID},
		{"", 0, resources.ErrInvalidSubAssetID},
	}
	for _, tt := range tests {
		got, err := parseCodepoint(tt.id)
		if !errors.Is(err, tt.err) {
			t.Errorf("parseCodepoint(%q): got error %v, want %v", tt.id, err, tt.err)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseCodepoint(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestBitmapFontGlyphSubAsset(t *testing.T) {
	bf := &BitmapFont{data: FontData{
		Glyphs: map[rune]FontGlyph{'A': {Codepoint: 'A', Width: 7}},
	}}
	fl := &BitmapFontLoader{}

	child, err := fl.SubAsset(bf, "A", resources.ResourceTypeNone)
	if err != nil {
		t.Fatal(err)
	}
	if g := child.(*FontGlyph); g.Width != 7 {
		t.Errorf("got glyph %+v", g)
	}
	if _, err := fl.SubAsset(bf, "66", resources.ResourceTypeNone); !errors.Is(err, resources.ErrSubAssetOutOfRange) {
		t.Errorf("expected ErrSubAssetOutOfRange, got %v", err)
	}
}

func TestSystemFontLoader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "goregular.ttf"), goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "ui.fontcfg")
	writeFile(t, cfg, "# ui font\nfile=goregular.ttf\nface=Go Regular\n")

	fl := &SystemFontLoader{}
	res, err := fl.Load(cfg)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	sf := res.(*SystemFont)
	if sf.NumFonts() != 1 || len(sf.Faces()) != 1 {
		t.Fatalf("got %d fonts, faces %v", sf.NumFonts(), sf.Faces())
	}

	child, err := fl.SubAsset(sf, "go regular", resources.ResourceTypeNone)
	if err != nil {
		t.Fatalf("SubAsset failed: %v", err)
	}
	face, err := child.(*SystemFontFace).NewFace(12)
	if err != nil {
		t.Fatal(err)
	}
	defer face.Close()
	if face.Metrics().Height <= 0 {
		t.Error("face has no height")
	}

	if _, err := fl.SubAsset(sf, "3", resources.ResourceTypeNone); !errors.Is(err, resources.ErrSubAssetOutOfRange) {
		t.Errorf("expected ErrSubAssetOutOfRange, got %v", err)
	}
	if _, err := fl.SubAsset(sf, "bold", resources.ResourceTypeNone); !errors.Is(err, resources.ErrInvalidSubAssetID) {
		t.Errorf("expected ErrInvalidSubAssetID, got %v", err)
	}
}

func TestSystemFontConfigWithoutFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "empty.fontcfg")
	writeFile(t, cfg, "face=Nothing\n")
	if _, err := (&SystemFontLoader{}).Load(cfg); err == nil {
		t.Fatal("expected an error for a config without file=")
	}
}

func TestBlobLoaders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	writeFile(t, path, "hello")

	tl := &TextLoader{}
	res, err := tl.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if res.(*Blob).String() != "hello" {
		t.Fatalf("got %q", res.(*Blob).String())
	}
	writeFile(t, path, "bye")
	if _, err := tl.Reload(res, path); err != nil {
		t.Fatal(err)
	}
	if res.(*Blob).String() != "bye" {
		t.Errorf("got %q after reload", res.(*Blob).String())
	}

	out := filepath.Join(dir, "copy.bin")
	if err := (&BinaryLoader{}).Save(res, out); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(out); string(data) != "bye" {
		t.Errorf("saved %q", data)
	}
}
