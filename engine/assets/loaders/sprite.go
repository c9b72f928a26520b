package loaders

import (
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// Sprite is a texture plus the editor metadata describing how to cut and
// anchor it. Sheets with a grid expose each cell as a sub-asset.
type Sprite struct {
	mu      sync.RWMutex
	texture *Texture
	meta    resources.AssetMetadata
}

func (s *Sprite) Texture() *Texture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.texture
}

func (s *Sprite) Metadata() resources.AssetMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// Pivot returns the normalized anchor point, the center when none is set.
func (s *Sprite) Pivot() resources.Pivot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.meta.Pivot == nil {
		return resources.Pivot{X: 0.5, Y: 0.5}
	}
	return *s.meta.Pivot
}

// Frames returns the number of grid cells, 1 for a sheet without a grid.
func (s *Sprite) Frames() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cols, rows := s.gridSize()
	return cols * rows
}

// FrameRect returns the pixel bounds of cell i, counted row by row.
func (s *Sprite) FrameRect(i int) (image.Rectangle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cols, rows := s.gridSize()
	if i < 0 || i >= cols*rows {
		return image.Rectangle{}, fmt.Errorf("frame %d of %d: %w", i, cols*rows, resources.ErrSubAssetOutOfRange)
	}
	g := s.meta.Grid
	if g == nil {
		w, h := s.texture.Size()
		return image.Rect(0, 0, w, h), nil
	}
	x := g.Margin + (i%cols)*(g.CellWidth+g.Spacing)
	y := g.Margin + (i/cols)*(g.CellHeight+g.Spacing)
	return image.Rect(x, y, x+g.CellWidth, y+g.CellHeight), nil
}

func (s *Sprite) gridSize() (cols, rows int) {
	g := s.meta.Grid
	if g == nil || g.CellWidth <= 0 || g.CellHeight <= 0 {
		return 1, 1
	}
	w, h := s.texture.Size()
	cols, rows = g.Columns, g.Rows
	if cols <= 0 {
		cols = (w - 2*g.Margin + g.Spacing) / (g.CellWidth + g.Spacing)
	}
	if rows <= 0 {
		rows = (h - 2*g.Margin + g.Spacing) / (g.CellHeight + g.Spacing)
	}
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	return cols, rows
}

// SpriteFrame is one cell of a sprite sheet.
type SpriteFrame struct {
	Sheet *Sprite
	Index int
	Rect  image.Rectangle
	Pivot resources.Pivot
}

/*
SpriteLoader claims no extension: images load as textures unless the caller
asks for a sprite explicitly. Grid, pivot and nine-slice come from the
sidecar metadata of the image, looked up relative to AssetRoot.
*/
type SpriteLoader struct {
	AssetRoot string
	Metadata  *resources.MetadataStore
}

func (sl *SpriteLoader) Extensions() []string {
	return nil
}

// Discovers reports whether rel is an image with a sidecar grid, the only
// images worth listing as sprite sheets.
func (sl *SpriteLoader) Discovers(rel string) bool {
	if _, ok := resources.MatchExtension(filepath.Base(rel), (&TextureLoader{}).Extensions()); !ok {
		return false
	}
	md, ok, err := sl.Metadata.Load(rel)
	return err == nil && ok && md.Grid != nil
}

func (sl *SpriteLoader) Load(path string) (resources.Resource, error) {
	img, format, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	meta, err := sl.metadataFor(path)
	if err != nil {
		return nil, err
	}
	return &Sprite{texture: &Texture{pixels: img, format: format}, meta: *meta}, nil
}

// Save writes the sheet image to path and copies its metadata next to it.
func (sl *SpriteLoader) Save(res resources.Resource, path string) error {
	s, ok := res.(*Sprite)
	if !ok {
		return fmt.Errorf("sprite loader cannot save %T", res)
	}
	if err := encodeImage(s.Texture().Image(), path); err != nil {
		return err
	}

	meta := s.Metadata()
	if isEmptyMetadata(meta) {
		return nil
	}
	rel, ok := sl.relative(path)
	if !ok || sl.Metadata == nil || sl.Metadata.Root() == "" {
		return nil
	}
	return sl.Metadata.Save(rel, &meta)
}

func (sl *SpriteLoader) Reload(existing resources.Resource, path string) (resources.Resource, error) {
	s, ok := existing.(*Sprite)
	if !ok {
		return nil, fmt.Errorf("sprite loader cannot reload %T", existing)
	}
	img, format, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	meta, err := sl.metadataFor(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.texture.replace(img, format)
	s.meta = *meta
	return s, nil
}

/**
 * @brief Resolves a grid cell of a sheet. The id is the zero-based cell index.
 * @param expected ResourceTypeTexture returns a standalone texture of the cell;
 * ResourceTypeNone or ResourceTypeSprite returns a SpriteFrame.
 */
func (sl *SpriteLoader) SubAsset(parent resources.Resource, id string, expected resources.ResourceType) (resources.Resource, error) {
	s, ok := parent.(*Sprite)
	if !ok {
		return nil, fmt.Errorf("sprite loader cannot split %T", parent)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("cell %q is not an integer: %w", id, resources.ErrInvalidSubAssetID)
	}
	rect, err := s.FrameRect(idx)
	if err != nil {
		return nil, err
	}

	switch expected {
	case resources.ResourceTypeNone, resources.ResourceTypeSprite:
		return &SpriteFrame{Sheet: s, Index: idx, Rect: rect, Pivot: s.Pivot()}, nil
	case resources.ResourceTypeTexture:
		tex := s.Texture()
		return NewTexture(tex.SubImage(rect), tex.Format()), nil
	default:
		return nil, fmt.Errorf("sprite cell as %s: %w", expected, resources.ErrUnsupportedOperation)
	}
}

func (sl *SpriteLoader) Unload(res resources.Resource) error {
	if s, ok := res.(*Sprite); ok {
		s.Texture().release()
	}
	return nil
}

func (sl *SpriteLoader) Icon() string {
	return "sprite"
}

func (sl *SpriteLoader) InstantiateAsEntity() bool {
	return true
}

func (sl *SpriteLoader) metadataFor(path string) (*resources.AssetMetadata, error) {
	rel, ok := sl.relative(path)
	if !ok {
		return &resources.AssetMetadata{}, nil
	}
	md, _, err := sl.Metadata.Load(rel)
	return md, err
}

func (sl *SpriteLoader) relative(path string) (string, bool) {
	if sl.AssetRoot == "" {
		return "", false
	}
	root, err := filepath.Abs(sl.AssetRoot)
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func isEmptyMetadata(md resources.AssetMetadata) bool {
	return md.Pivot == nil && md.NineSlice == nil && md.Grid == nil && len(md.Tags) == 0
}
