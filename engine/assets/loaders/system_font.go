package loaders

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// SystemFontFace is one face of a system font collection.
type SystemFontFace struct {
	Name  string
	Index int
	Font  *sfnt.Font
}

// NewFace rasterizes the face at size points.
func (f *SystemFontFace) NewFace(size float64) (font.Face, error) {
	return opentype.NewFace(f.Font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// SystemFont is a TrueType/OpenType collection described by a .fontcfg file.
type SystemFont struct {
	mu         sync.RWMutex
	file       string
	collection *sfnt.Collection
	faces      []string
}

func (sf *SystemFont) File() string {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.file
}

// Faces returns the face names declared in the config, in order.
func (sf *SystemFont) Faces() []string {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return append([]string(nil), sf.faces...)
}

func (sf *SystemFont) NumFonts() int {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	if sf.collection == nil {
		return 0
	}
	return sf.collection.NumFonts()
}

// Face resolves a face by its declared name or by collection index.
func (sf *SystemFont) Face(id string) (*SystemFontFace, error) {
	sf.mu.RLock()
	defer sf.mu.RUnlock()

	if sf.collection == nil {
		return nil, fmt.Errorf("face %q: font is unloaded", id)
	}
	idx := -1
	for i, name := range sf.faces {
		if strings.EqualFold(name, id) {
			idx = i
			break
		}
	}
	if idx < 0 {
		n, err := strconv.Atoi(id)
		if err != nil {
			return nil, fmt.Errorf("face %q: %w", id, resources.ErrInvalidSubAssetID)
		}
		idx = n
	}
	if idx < 0 || idx >= sf.collection.NumFonts() {
		return nil, fmt.Errorf("face %q: %w", id, resources.ErrSubAssetOutOfRange)
	}
	f, err := sf.collection.Font(idx)
	if err != nil {
		return nil, err
	}

	name := id
	if idx < len(sf.faces) {
		name = sf.faces[idx]
	}
	return &SystemFontFace{Name: name, Index: idx, Font: f}, nil
}

/*
SystemFontLoader reads .fontcfg files:

	# comment
	file=NotoSans.ttc
	face=Noto Sans

The font file is resolved relative to the config file.
*/
type SystemFontLoader struct{}

func (fl *SystemFontLoader) Extensions() []string {
	return []string{".fontcfg"}
}

func (fl *SystemFontLoader) Load(path string) (resources.Resource, error) {
	sf := &SystemFont{}
	if err := readFontConfig(path, sf); err != nil {
		return nil, err
	}
	return sf, nil
}

func (fl *SystemFontLoader) Reload(existing resources.Resource, path string) (resources.Resource, error) {
	sf, ok := existing.(*SystemFont)
	if !ok {
		return nil, fmt.Errorf("system font loader cannot reload %T", existing)
	}
	fresh := &SystemFont{}
	if err := readFontConfig(path, fresh); err != nil {
		return nil, err
	}

	sf.mu.Lock()
	defer sf.mu.Unlock()
	sf.file = fresh.file
	sf.collection = fresh.collection
	sf.faces = fresh.faces
	return sf, nil
}

func (fl *SystemFontLoader) SubAsset(parent resources.Resource, id string, expected resources.ResourceType) (resources.Resource, error) {
	sf, ok := parent.(*SystemFont)
	if !ok {
		return nil, fmt.Errorf("system font loader cannot split %T", parent)
	}
	if expected != resources.ResourceTypeNone && expected != resources.ResourceTypeSystemFont {
		return nil, fmt.Errorf("font face as %s: %w", expected, resources.ErrUnsupportedOperation)
	}
	return sf.Face(id)
}

func (fl *SystemFontLoader) Unload(res resources.Resource) error {
	if sf, ok := res.(*SystemFont); ok {
		sf.mu.Lock()
		sf.collection = nil
		sf.mu.Unlock()
	}
	return nil
}

func (fl *SystemFontLoader) Icon() string {
	return "font"
}

func (fl *SystemFontLoader) InstantiateAsEntity() bool {
	return false
}

func readFontConfig(path string, sf *SystemFont) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse the file and face keys
		if strings.HasPrefix(line, "file=") {
			filename := strings.TrimSpace(strings.TrimPrefix(line, "file="))
			fullPath := filepath.Join(filepath.Dir(path), filepath.FromSlash(filename))
			fontBytes, err := os.ReadFile(fullPath)
			if err != nil {
				return err
			}
			c, err := opentype.ParseCollection(fontBytes)
			if err != nil {
				return fmt.Errorf("parse %s: %w", filename, err)
			}
			sf.file = filename
			sf.collection = c
		} else if strings.HasPrefix(line, "face=") {
			sf.faces = append(sf.faces, strings.TrimSpace(strings.TrimPrefix(line, "face=")))
		} else {
			core.LogWarn("Unknown line '%s' in font config %s. Skipping...", line, filepath.Base(path))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if sf.collection == nil {
		return fmt.Errorf("%s: missing file= entry", filepath.Base(path))
	}
	return nil
}
