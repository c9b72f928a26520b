package loaders

import "fmt"

type AnimatorParameter struct {
	Name    string  `json:"name"`
	Kind    string  `json:"kind"`
	Default float64 `json:"default,omitempty"`
}

// AnimatorState plays a sequence of frames, each a sprite sub-asset path
// such as "sprites/hero.png#3".
type AnimatorState struct {
	Name   string   `json:"name"`
	Frames []string `json:"frames"`
	FPS    float64  `json:"fps"`
	Loop   bool     `json:"loop,omitempty"`
}

type AnimatorTransition struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Parameter string  `json:"parameter,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

// Animator is an animation controller: states, the parameters driving them
// and the transitions between them.
type Animator struct {
	Entry       string               `json:"entry"`
	Parameters  []AnimatorParameter  `json:"parameters,omitempty"`
	States      []AnimatorState      `json:"states"`
	Transitions []AnimatorTransition `json:"transitions,omitempty"`
}

func (a *Animator) State(name string) (AnimatorState, bool) {
	for _, s := range a.States {
		if s.Name == name {
			return s, true
		}
	}
	return AnimatorState{}, false
}

func NewAnimatorLoader() *DataLoader[Animator] {
	dl := NewDataLoader[Animator](CodecJSON, ".animator.json")
	dl.Check = checkAnimator
	dl.icon = "animator"
	return dl
}

func checkAnimator(a *Animator) error {
	if len(a.States) == 0 {
		return fmt.Errorf("animator has no states")
	}
	if _, ok := a.State(a.Entry); !ok {
		return fmt.Errorf("entry state %q does not exist", a.Entry)
	}
	params := make(map[string]struct{}, len(a.Parameters))
	for _, p := range a.Parameters {
		params[p.Name] = struct{}{}
	}
	for _, t := range a.Transitions {
		if _, ok := a.State(t.From); !ok {
			return fmt.Errorf("transition from missing state %q", t.From)
		}
		if _, ok := a.State(t.To); !ok {
			return fmt.Errorf("transition to missing state %q", t.To)
		}
		if t.Parameter != "" {
			if _, ok := params[t.Parameter]; !ok {
				return fmt.Errorf("transition %s->%s uses unknown parameter %q", t.From, t.To, t.Parameter)
			}
		}
	}
	return nil
}
