package resources

import (
	"path"
	"path/filepath"
	"strings"
)

// SubAssetSeparator splits a composite path into parent path and child id.
const SubAssetSeparator = "#"

// NormalizePath turns an asset-root relative path into its canonical cache
// key: forward slashes, no "." or duplicate separators, no leading slash.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	p = strings.TrimLeft(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// EscapesRoot reports whether a normalized path climbs above the directory
// it is relative to.
func EscapesRoot(p string) bool {
	return p == ".." || strings.HasPrefix(p, "../")
}

// NormalizeRawPath canonicalizes a path that bypasses the asset root.
func NormalizeRawPath(p string) (string, error) {
	abs, err := filepath.Abs(strings.TrimSpace(p))
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(abs), nil
}

// SplitSubAsset splits "parent#id" at the last separator. ok is false when
// the path carries no sub-asset suffix.
func SplitSubAsset(p string) (parent, id string, ok bool) {
	i := strings.LastIndex(p, SubAssetSeparator)
	if i < 0 {
		return p, "", false
	}
	return p[:i], p[i+len(SubAssetSeparator):], true
}

func JoinSubAsset(parent, id string) string {
	return parent + SubAssetSeparator + id
}

func IsSubAssetPath(p string) bool {
	return strings.Contains(p, SubAssetSeparator)
}

// NormalizeExtension lower-cases ext and makes sure it is dot-prefixed.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// MatchExtension returns the longest extension in exts that name ends with,
// compared case-insensitively. exts must already be normalized.
func MatchExtension(name string, exts []string) (string, bool) {
	lower := strings.ToLower(name)
	best := ""
	for _, ext := range exts {
		if len(ext) > len(best) && strings.HasSuffix(lower, ext) {
			best = ext
		}
	}
	return best, best != ""
}
