package resources

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sprites/hero.png", "sprites/hero.png"},
		{"./sprites//hero.png", "sprites/hero.png"},
		{"/sprites/hero.png", "sprites/hero.png"},
		{"sprites\\ui\\..\\hero.png", "sprites/hero.png"},
		{"  sprites/hero.png ", "sprites/hero.png"},
		{".", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapesRoot(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"../secret.note", true},
		{"notes/../../secret.note", true},
		{"..", true},
		{"/../secret.note", false},
		{"notes/../a.note", false},
		{"..hidden/a.note", false},
	}
	for _, tt := range tests {
		if got := EscapesRoot(NormalizePath(tt.in)); got != tt.want {
			t.Errorf("EscapesRoot(NormalizePath(%q)) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitSubAsset(t *testing.T) {
	parent, id, ok := SplitSubAsset("sheets/a#b.png#12")
	if !ok {
		t.Fatal("expected sub-asset suffix")
	}
	if parent != "sheets/a#b.png" || id != "12" {
		t.Fatalf("got (%q, %q), want (%q, %q)", parent, id, "sheets/a#b.png", "12")
	}

	if _, _, ok := SplitSubAsset("sheets/a.png"); ok {
		t.Error("plain path reported as sub-asset")
	}
	if got := JoinSubAsset("sheet.png", "3"); got != "sheet.png#3" {
		t.Errorf("JoinSubAsset = %q", got)
	}
}

func TestMatchExtensionPrefersLongest(t *testing.T) {
	exts := []string{".json", ".dialogue.json", ".png"}

	got, ok := MatchExtension("talks/Intro.Dialogue.JSON", exts)
	if !ok || got != ".dialogue.json" {
		t.Fatalf("got %q, want .dialogue.json", got)
	}
	got, ok = MatchExtension("data/items.json", exts)
	if !ok || got != ".json" {
		t.Fatalf("got %q, want .json", got)
	}
	if _, ok := MatchExtension("readme.md", exts); ok {
		t.Error("unexpected match for .md")
	}
}

func TestNormalizeExtension(t *testing.T) {
	if got := NormalizeExtension("PNG"); got != ".png" {
		t.Errorf("got %q", got)
	}
	if got := NormalizeExtension(".Dialogue.Json"); got != ".dialogue.json" {
		t.Errorf("got %q", got)
	}
}

func TestResourceTypeString(t *testing.T) {
	if ResourceTypeSprite.String() != "sprite" {
		t.Errorf("got %q", ResourceTypeSprite.String())
	}
	if ResourceType(999).String() != "unknown" {
		t.Error("out of range type should be unknown")
	}
	rt, ok := ParseResourceType("bitmap_font")
	if !ok || rt != ResourceTypeBitmapFont {
		t.Errorf("ParseResourceType = %v, %v", rt, ok)
	}
}
