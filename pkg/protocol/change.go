package protocol

// ChangeKind classifies a ChangeRecord.
type ChangeKind string

const (
	ChangeAdded     ChangeKind = "added"
	ChangeRemoved   ChangeKind = "removed"
	ChangeAttribute ChangeKind = "attributeChanged"
	ChangeText      ChangeKind = "textChanged"
)

// ChangeRecord is one normalized page change inside a DOM_CHANGED batch.
type ChangeRecord struct {
	Kind          ChangeKind `json:"kind"`
	TargetPath    string     `json:"targetPath"`
	AddedNodes    []string   `json:"addedNodes,omitempty"`
	RemovedNodes  []string   `json:"removedNodes,omitempty"`
	AttributeName string     `json:"attributeName,omitempty"`
	OldValue      *string    `json:"oldValue,omitempty"`
	NewValue      *string    `json:"newValue,omitempty"`
}
