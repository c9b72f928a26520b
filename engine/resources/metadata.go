package resources

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// MetadataSuffix is appended to an asset's relative path to build the path
// of its sidecar inside the metadata root.
const MetadataSuffix = ".meta.toml"

type Pivot struct {
	X float32 `toml:"x"`
	Y float32 `toml:"y"`
}

// NineSlice holds the border insets, in pixels, of a stretchable sprite.
type NineSlice struct {
	Left   int `toml:"left"`
	Top    int `toml:"top"`
	Right  int `toml:"right"`
	Bottom int `toml:"bottom"`
}

// Grid splits a sheet into equally sized cells, numbered row by row from the
// top-left corner. Zero Columns or Rows are derived from the image size.
type Grid struct {
	CellWidth  int `toml:"cell_width"`
	CellHeight int `toml:"cell_height"`
	Columns    int `toml:"columns,omitempty"`
	Rows       int `toml:"rows,omitempty"`
	Margin     int `toml:"margin,omitempty"`
	Spacing    int `toml:"spacing,omitempty"`
}

// AssetMetadata is the editor-authored information kept next to an asset.
type AssetMetadata struct {
	Pivot     *Pivot     `toml:"pivot,omitempty"`
	NineSlice *NineSlice `toml:"nine_slice,omitempty"`
	Grid      *Grid      `toml:"grid,omitempty"`
	Tags      []string   `toml:"tags,omitempty"`
}

// MetadataStore reads and writes sidecars in a tree that mirrors the asset
// root, so metadata files never show up when scanning for assets.
type MetadataStore struct {
	root string
}

func NewMetadataStore(root string) *MetadataStore {
	return &MetadataStore{root: root}
}

func (s *MetadataStore) Root() string {
	return s.root
}

// PathFor returns the sidecar location of the asset at rel.
func (s *MetadataStore) PathFor(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(NormalizePath(rel)+MetadataSuffix))
}

// Load reads the sidecar of rel. A missing sidecar is not an error: ok is
// false and the returned metadata is empty.
func (s *MetadataStore) Load(rel string) (md *AssetMetadata, ok bool, err error) {
	md = &AssetMetadata{}
	if s == nil || s.root == "" {
		return md, false, nil
	}
	data, err := os.ReadFile(s.PathFor(rel))
	if errors.Is(err, fs.ErrNotExist) {
		return md, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read metadata %s: %w", rel, err)
	}
	if err := toml.Unmarshal(data, md); err != nil {
		return nil, false, fmt.Errorf("parse metadata %s: %w", rel, err)
	}
	return md, true, nil
}

func (s *MetadataStore) Save(rel string, md *AssetMetadata) error {
	if s == nil || s.root == "" {
		return fmt.Errorf("save metadata %s: no metadata root configured", rel)
	}
	data, err := toml.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode metadata %s: %w", rel, err)
	}
	p := s.PathFor(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("save metadata %s: %w", rel, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("save metadata %s: %w", rel, err)
	}
	return nil
}

// IsMetadataFile reports whether name is a sidecar file.
func IsMetadataFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), MetadataSuffix)
}
