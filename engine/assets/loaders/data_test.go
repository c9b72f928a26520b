package loaders

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleDialogue = `{
  "id": "intro",
  "start": "hello",
  "nodes": [
    {"id": "hello", "speaker": "Oak", "text": "Welcome!", "choices": [
      {"text": "Thanks", "next": "bye"}
    ]},
    {"id": "bye", "text": "Good luck."}
  ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDialogueLoader(t *testing.T) {
	dl, err := NewDialogueLoader()
	if err != nil {
		t.Fatalf("NewDialogueLoader failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "intro.dialogue.json")
	writeFile(t, path, sampleDialogue)

	res, err := dl.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	d := res.(*Document[Dialogue]).Get()
	if d.ID != "intro" || len(d.Nodes) != 2 {
		t.Fatalf("got %+v", d)
	}
	if n, ok := d.Node("hello"); !ok || n.Choices[0].Next != "bye" {
		t.Errorf("got node %+v", n)
	}
}

func TestDialogueLoaderRejectsInvalid(t *testing.T) {
	dl, err := NewDialogueLoader()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name    string
		content string
	}{
		{"schema", `{"id": "x", "nodes": []}`},
		{"missing start", `{"id": "x", "start": "nope", "nodes": [{"id": "a", "text": "t"}]}`},
		{"dangling choice", `{"id": "x", "start": "a", "nodes": [{"id": "a", "text": "t", "choices": [{"text": "c", "next": "z"}]}]}`},
		{"malformed", `{"id": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.dialogue.json")
			writeFile(t, path, tt.content)
			if _, err := dl.Load(path); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestDataLoaderReloadKeepsDocument(t *testing.T) {
	dl, err := NewDialogueLoader()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "intro.dialogue.json")
	writeFile(t, path, sampleDialogue)

	res, err := dl.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, `{"id": "intro", "start": "only", "nodes": [{"id": "only", "text": "Changed"}]}`)
	got, err := dl.Reload(res, path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got != res {
		t.Fatal("Reload returned a different instance")
	}
	if d := res.(*Document[Dialogue]).Get(); d.Start != "only" {
		t.Errorf("got start %q after reload", d.Start)
	}

	writeFile(t, path, `{"id": "intro"}`)
	if _, err := dl.Reload(res, path); err == nil {
		t.Fatal("expected an invalid reload to fail")
	}
	if d := res.(*Document[Dialogue]).Get(); d.Start != "only" {
		t.Errorf("failed reload changed the document: %+v", d)
	}
}

func TestSceneLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "town.scene.yaml")
	writeFile(t, path, `name: town
entities:
  - name: hero
    sprite: sprites/hero.png#0
    animator: anim/hero.animator.json
    transform:
      position: [10, 20]
      scale: [1, 1]
    children:
      - name: shadow
        sprite: sprites/shadow.png
  - name: npc
    sprite: sprites/hero.png#0
`)

	res, err := NewSceneLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s := res.(*Document[Scene]).Get()
	want := []string{"sprites/hero.png#0", "anim/hero.animator.json", "sprites/shadow.png"}
	got := s.Dependencies()
	if len(got) != len(want) {
		t.Fatalf("got dependencies %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dependency %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if s.Entities[0].Transform.Position != [2]float32{10, 20} {
		t.Errorf("got position %v", s.Entities[0].Transform.Position)
	}
}

func TestAnimatorLoaderChecksGraph(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "hero.animator.json")
	writeFile(t, good, `{
  "entry": "idle",
  "parameters": [{"name": "speed", "kind": "float"}],
  "states": [
    {"name": "idle", "frames": ["sprites/hero.png#0"], "fps": 1, "loop": true},
    {"name": "walk", "frames": ["sprites/hero.png#1", "sprites/hero.png#2"], "fps": 8, "loop": true}
  ],
  "transitions": [{"from": "idle", "to": "walk", "parameter": "speed", "threshold": 0.1}]
}`)
	al := NewAnimatorLoader()
	res, err := al.Load(good)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	anim := res.(*Document[Animator]).Get()
	if s, ok := anim.State("walk"); !ok || len(s.Frames) != 2 {
		t.Errorf("got state %+v", s)
	}

	bad := filepath.Join(dir, "bad.animator.json")
	writeFile(t, bad, `{"entry": "idle", "states": [{"name": "idle"}], "transitions": [{"from": "idle", "to": "run"}]}`)
	if _, err := al.Load(bad); err == nil {
		t.Fatal("expected a transition to a missing state to fail")
	}
}

func TestGenericDataLoaderPicksCodec(t *testing.T) {
	dir := t.TempDir()
	dl := NewGenericDataLoader()

	jsonPath := filepath.Join(dir, "stats.json")
	writeFile(t, jsonPath, `{"hp": 10}`)
	yamlPath := filepath.Join(dir, "stats.yml")
	writeFile(t, yamlPath, "hp: 12\n")

	res, err := dl.Load(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if hp := res.(*Document[map[string]interface{}]).Get()["hp"]; hp != float64(10) {
		t.Errorf("json: got hp %v (%T)", hp, hp)
	}

	res, err = dl.Load(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if hp := res.(*Document[map[string]interface{}]).Get()["hp"]; hp != 12 {
		t.Errorf("yaml: got hp %v (%T)", hp, hp)
	}

	// Saving through the other codec converts the document.
	out := filepath.Join(dir, "converted.json")
	if err := dl.Save(res, out); err != nil {
		t.Fatal(err)
	}
	if _, err := dl.Load(out); err != nil {
		t.Fatalf("reloading converted file failed: %v", err)
	}
}

func TestDataLoaderSchemaAppliesToYAML(t *testing.T) {
	sch, err := CompileSchema("hp.schema.json", []byte(`{"type": "object", "required": ["hp"]}`))
	if err != nil {
		t.Fatal(err)
	}
	dl := NewDataLoader[map[string]interface{}](CodecYAML, ".stats.yaml")
	dl.Schema = sch

	path := filepath.Join(t.TempDir(), "x.stats.yaml")
	writeFile(t, path, "mp: 3\n")
	if _, err := dl.Load(path); err == nil {
		t.Fatal("expected schema validation to fail")
	}
}

func TestDataLoaderWrongResource(t *testing.T) {
	dl := NewAnimatorLoader()
	if _, err := dl.Reload(&Blob{}, "x"); err == nil {
		t.Fatal("expected a type error")
	}
	if err := dl.Save(&Blob{}, filepath.Join(t.TempDir(), "x.animator.json")); err == nil {
		t.Fatal("expected a type error")
	}
}
