package loaders

import (
	"fmt"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

type FontGlyph struct {
	Codepoint rune
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type KerningPair struct {
	First  rune
	Second rune
}

type BitmapFontPage struct {
	ID   int8
	File string
}

type FontData struct {
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX int32
	AtlasSizeY int32
	Glyphs     map[rune]FontGlyph
	Kernings   map[KerningPair]int16
	Pages      []BitmapFontPage
}

// BitmapFont is a font whose glyphs are baked into atlas pages.
type BitmapFont struct {
	mu   sync.RWMutex
	data FontData
}

func (bf *BitmapFont) Data() FontData {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.data
}

func (bf *BitmapFont) Glyph(r rune) (FontGlyph, bool) {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	g, ok := bf.data.Glyphs[r]
	return g, ok
}

func (bf *BitmapFont) Kerning(first, second rune) int16 {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.data.Kernings[KerningPair{First: first, Second: second}]
}

// BitmapFontLoader imports AngelCode .fnt descriptors. Glyphs are exposed as
// sub-assets addressed by codepoint, either numeric ("font.fnt#65") or as
// the character itself ("font.fnt#A").
type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) Extensions() []string {
	return []string{".fnt"}
}

func (fl *BitmapFontLoader) Load(path string) (resources.Resource, error) {
	data, err := importFNTFile(path)
	if err != nil {
		return nil, err
	}
	return &BitmapFont{data: *data}, nil
}

func (fl *BitmapFontLoader) Reload(existing resources.Resource, path string) (resources.Resource, error) {
	bf, ok := existing.(*BitmapFont)
	if !ok {
		return nil, fmt.Errorf("bitmap font loader cannot reload %T", existing)
	}
	data, err := importFNTFile(path)
	if err != nil {
		return nil, err
	}

	bf.mu.Lock()
	defer bf.mu.Unlock()
	bf.data = *data
	return bf, nil
}

func (fl *BitmapFontLoader) SubAsset(parent resources.Resource, id string, expected resources.ResourceType) (resources.Resource, error) {
	bf, ok := parent.(*BitmapFont)
	if !ok {
		return nil, fmt.Errorf("bitmap font loader cannot split %T", parent)
	}
	if expected != resources.ResourceTypeNone && expected != resources.ResourceTypeBitmapFont {
		return nil, fmt.Errorf("glyph as %s: %w", expected, resources.ErrUnsupportedOperation)
	}
	r, err := parseCodepoint(id)
	if err != nil {
		return nil, err
	}
	g, ok := bf.Glyph(r)
	if !ok {
		return nil, fmt.Errorf("glyph %q: %w", id, resources.ErrSubAssetOutOfRange)
	}
	return &g, nil
}

func (fl *BitmapFontLoader) Unload(res resources.Resource) error {
	if bf, ok := res.(*BitmapFont); ok {
		bf.mu.Lock()
		bf.data.Glyphs = nil
		bf.data.Kernings = nil
		bf.data.Pages = nil
		bf.mu.Unlock()
	}
	return nil
}

func (fl *BitmapFontLoader) Icon() string {
	return "font"
}

func (fl *BitmapFontLoader) InstantiateAsEntity() bool {
	return false
}

func parseCodepoint(id string) (rune, error) {
	if n, err := strconv.ParseInt(id, 10, 32); err == nil {
		if n < 0 || n > utf8.MaxRune {
			return 0, fmt.Errorf("codepoint %d: %w", n, resources.ErrInvalidSubAssetID)
		}
		return rune(n), nil
	}
	if utf8.RuneCountInString(id) == 1 {
		r, _ := utf8.DecodeRuneInString(id)
		if r != utf8.RuneError {
			return r, nil
		}
	}
	return 0, fmt.Errorf("codepoint %q: %w", id, resources.ErrInvalidSubAssetID)
}

func importFNTFile(fntFileName string) (*FontData, error) {
	font, err := bmfont.Load(fntFileName)
	if err != nil {
		return nil, err
	}

	outData := &FontData{
		Face:       font.Descriptor.Info.Face,
		Size:       uint32(font.Descriptor.Info.Size),
		LineHeight: int32(font.Descriptor.Common.LineHeight),
		Baseline:   int32(font.Descriptor.Common.Base),
		AtlasSizeX: int32(font.Descriptor.Common.ScaleW),
		AtlasSizeY: int32(font.Descriptor.Common.ScaleH),
		Glyphs:     make(map[rune]FontGlyph, len(font.Descriptor.Chars)),
		Kernings:   make(map[KerningPair]int16, len(font.Descriptor.Kerning)),
		Pages:      make([]BitmapFontPage, 0, len(font.Descriptor.Pages)),
	}

	for _, p := range font.Descriptor.Pages {
		outData.Pages = append(outData.Pages, BitmapFontPage{ID: int8(p.ID), File: p.File})
	}

	for _, g := range font.Descriptor.Chars {
		outData.Glyphs[rune(g.ID)] = FontGlyph{
			Codepoint: rune(g.ID),
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		}
	}

	for p, k := range font.Descriptor.Kerning {
		outData.Kernings[KerningPair{First: rune(p.First), Second: rune(p.Second)}] = int16(k.Amount)
	}

	return outData, nil
}
