package loaders

import (
	_ "embed"
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

//go:embed schemas/dialogue.schema.json
var dialogueSchema []byte

type DialogueChoice struct {
	Text string `json:"text"`
	Next string `json:"next"`
}

type DialogueNode struct {
	ID      string           `json:"id"`
	Speaker string           `json:"speaker,omitempty"`
	Text    string           `json:"text"`
	Next    string           `json:"next,omitempty"`
	Choices []DialogueChoice `json:"choices,omitempty"`
}

// Dialogue is a conversation graph. Start names the first node.
type Dialogue struct {
	ID    string         `json:"id"`
	Start string         `json:"start"`
	Nodes []DialogueNode `json:"nodes"`
}

// Node returns the node with the given id.
func (d *Dialogue) Node(id string) (DialogueNode, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return DialogueNode{}, false
}

func NewDialogueLoader() (*DataLoader[Dialogue], error) {
	sch, err := CompileSchema("dialogue.schema.json", dialogueSchema)
	if err != nil {
		return nil, err
	}
	dl := NewDataLoader[Dialogue](CodecJSON, ".dialogue.json")
	dl.Schema = sch
	dl.Check = checkDialogue
	dl.icon = "dialogue"
	return dl, nil
}

// checkDialogue makes sure every edge of the graph lands on a node.
func checkDialogue(d *Dialogue) error {
	ids := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("dialogue %s: duplicate node %q", d.ID, n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	exists := func(id string) bool {
		_, ok := ids[id]
		return ok
	}
	if !exists(d.Start) {
		return fmt.Errorf("dialogue %s: start node %q does not exist", d.ID, d.Start)
	}
	for _, n := range d.Nodes {
		if n.Next != "" && !exists(n.Next) {
			return fmt.Errorf("dialogue %s: node %q points to missing %q", d.ID, n.ID, n.Next)
		}
		for _, c := range n.Choices {
			if !exists(c.Next) {
				return fmt.Errorf("dialogue %s: choice of %q points to missing %q", d.ID, n.ID, c.Next)
			}
		}
	}
	return nil
}

var _ resources.HotReloader = (*DataLoader[Dialogue])(nil)
