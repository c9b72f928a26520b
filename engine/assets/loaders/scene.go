package loaders

import "fmt"

type Transform struct {
	Position [2]float32 `yaml:"position,flow"`
	Rotation float32    `yaml:"rotation,omitempty"`
	Scale    [2]float32 `yaml:"scale,flow"`
}

// SceneEntity is a node of the scene graph. Resource fields hold registry
// paths, sub-asset paths included.
type SceneEntity struct {
	Name       string                 `yaml:"name"`
	Sprite     string                 `yaml:"sprite,omitempty"`
	Animator   string                 `yaml:"animator,omitempty"`
	Transform  Transform              `yaml:"transform"`
	Components map[string]interface{} `yaml:"components,omitempty"`
	Children   []SceneEntity          `yaml:"children,omitempty"`
}

type Scene struct {
	Name     string        `yaml:"name"`
	Entities []SceneEntity `yaml:"entities"`
}

// Walk visits every entity depth first until fn returns false.
func (s *Scene) Walk(fn func(e *SceneEntity) bool) {
	var walk func(list []SceneEntity) bool
	walk = func(list []SceneEntity) bool {
		for i := range list {
			if !fn(&list[i]) {
				return false
			}
			if !walk(list[i].Children) {
				return false
			}
		}
		return true
	}
	walk(s.Entities)
}

// Dependencies returns every resource path the scene refers to, in order of
// first appearance.
func (s *Scene) Dependencies() []string {
	var deps []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		deps = append(deps, p)
	}
	s.Walk(func(e *SceneEntity) bool {
		add(e.Sprite)
		add(e.Animator)
		return true
	})
	return deps
}

func NewSceneLoader() *DataLoader[Scene] {
	dl := NewDataLoader[Scene](CodecYAML, ".scene.yaml", ".scene.yml")
	dl.Check = checkScene
	dl.icon = "scene"
	return dl
}

func checkScene(s *Scene) error {
	if s.Name == "" {
		return fmt.Errorf("scene has no name")
	}
	var err error
	s.Walk(func(e *SceneEntity) bool {
		if e.Name == "" {
			err = fmt.Errorf("scene %s: entity without a name", s.Name)
			return false
		}
		return true
	})
	return err
}
