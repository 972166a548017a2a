package aggregator

// Kind is the category of a raw change event.
type Kind string

const (
	ChildList     Kind = "childList"
	Attributes    Kind = "attributes"
	CharacterData Kind = "characterData"
)

// Known reports whether k is one of the event kinds above.
func (k Kind) Known() bool {
	switch k {
	case ChildList, Attributes, CharacterData:
		return true
	}
	return false
}

// Node identifies an element by tag and slash-separated element path,
// e.g. "html/body/main/div[2]".
type Node struct {
	Tag  string `json:"tag"`
	Path string `json:"path"`
}

// Event is one raw change notification from a page observer.
type Event struct {
	Kind          Kind    `json:"kind"`
	Target        Node    `json:"target"`
	Added         []Node  `json:"added,omitempty"`
	Removed       []Node  `json:"removed,omitempty"`
	AttributeName string  `json:"attributeName,omitempty"`
	OldValue      *string `json:"oldValue,omitempty"`
	NewValue      *string `json:"newValue,omitempty"`
}

// Source delivers raw events to a subscriber until cancelled.
type Source interface {
	Subscribe(fn func(Event)) (cancel func())
}
