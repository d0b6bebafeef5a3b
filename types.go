package deltatree

import "time"

// DeltaType tags what a delta entry does to its base node when merged.
type DeltaType string

const (
	DeltaCreate    DeltaType = "CREATE"    // Node was invented in this delta
	DeltaUpdate    DeltaType = "UPDATE"    // Node exists in base, own value changed
	DeltaDelete    DeltaType = "DELETE"    // Node is removed on merge
	DeltaUnchanged DeltaType = "UNCHANGED" // Anchor for nested edits, own value untouched
)

// TreeItem is a structure-only placement node. Children keep insertion order.
type TreeItem struct {
	ID       string     `json:"id"`
	Children []TreeItem `json:"children,omitempty"`
}

// ValueDelta is a field-level change.
type ValueDelta struct {
	ID            string    `json:"id"`
	Value         string    `json:"value"`
	OldValue      string    `json:"oldValue,omitempty"`
	UseDisplay    int       `json:"useDisplay"`
	OldUseDisplay int       `json:"oldUseDisplay"`
	Type          DeltaType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
}

// GroupDelta is a change to a group instance and everything nested in it.
type GroupDelta struct {
	ID        string                 `json:"id"`
	GroupID   string                 `json:"groupId,omitempty"` // Template reference
	Ordinal   *int                   `json:"ordinal,omitempty"`
	Type      DeltaType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Children  map[string]*GroupDelta `json:"children,omitempty"`
	Fields    map[string]*ValueDelta `json:"fields,omitempty"`
}

// DocumentDelta is a change to a document instance. Value carries the display name.
type DocumentDelta struct {
	ID         string                 `json:"id"`
	DocumentID string                 `json:"documentId,omitempty"` // Template reference
	Value      string                 `json:"value"`
	OldValue   string                 `json:"oldValue,omitempty"`
	Ordinal    *int                   `json:"ordinal,omitempty"`
	Type       DeltaType              `json:"type"`
	Timestamp  time.Time              `json:"timestamp"`
	Groups     map[string]*GroupDelta `json:"groups,omitempty"`
	Values     map[string]*ValueDelta `json:"values,omitempty"`
}

// DeltaFile is the sparse overlay of one participant's pending edits.
// Documents is flat regardless of nesting; DocumentTree carries the nesting.
type DeltaFile struct {
	SaveFileTimestamp time.Time                 `json:"saveFileTimestamp"`
	DeltaTimestamp    time.Time                 `json:"deltaTimestamp"`
	SaveFileName      string                    `json:"saveFileName"`
	ParticipantID     string                    `json:"participantId"`
	Documents         map[string]*DocumentDelta `json:"documents"`
	DocumentTree      []TreeItem                `json:"documentTree"`
}

// DocumentField is a persisted field value.
type DocumentField struct {
	ID         string `json:"id"`
	Value      string `json:"value"`
	UseDisplay int    `json:"useDisplay"`
}

// DocumentGroup is a persisted group instance.
type DocumentGroup struct {
	ID       string                    `json:"id"`
	GroupID  string                    `json:"groupId"`
	Ordinal  *int                      `json:"ordinal,omitempty"`
	Children map[string]*DocumentGroup `json:"children,omitempty"`
	Fields   map[string]*DocumentField `json:"fields,omitempty"`
}

// Document is a persisted document instance.
type Document struct {
	ID         string                    `json:"id"`
	DocumentID string                    `json:"documentId"`
	Name       string                    `json:"name"`
	Ordinal    *int                      `json:"ordinal,omitempty"`
	Values     map[string]*DocumentField `json:"values,omitempty"`
	Groups     map[string]*DocumentGroup `json:"groups,omitempty"`
}

// Header is the summary recomputed after every merge.
type Header struct {
	Fields        map[string]string `json:"fields,omitempty"`
	DocumentCount int               `json:"documentCount"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// SaveFile is the base snapshot of a participant.
type SaveFile struct {
	SaveFileTimestamp time.Time            `json:"saveFileTimestamp"`
	SaveFileName      string               `json:"saveFileName"`
	ParticipantID     string               `json:"participantId"`
	Header            Header               `json:"header"`
	Documents         map[string]*Document `json:"documents"`
	DocumentTree      []TreeItem           `json:"documentTree"`
}

// DocumentChange is the payload of a document edit coming from the client.
// A nil Groups slice leaves group deltas untouched; an empty one clears them.
type DocumentChange struct {
	ID         string        `json:"id" yaml:"id"`
	DocumentID string        `json:"documentId,omitempty" yaml:"documentId,omitempty"`
	Name       string        `json:"name" yaml:"name"`
	Groups     []GroupChange `json:"groups,omitempty" yaml:"groups,omitempty"`
	Fields     []FieldChange `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// GroupChange is the payload of one group inside a DocumentChange.
type GroupChange struct {
	ID       string        `json:"id" yaml:"id"`
	GroupID  string        `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	Children []GroupChange `json:"children,omitempty" yaml:"children,omitempty"`
	Fields   []FieldChange `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// FieldChange is a proposed field value.
type FieldChange struct {
	ID         string `json:"id" yaml:"id"`
	Value      string `json:"value" yaml:"value"`
	UseDisplay int    `json:"useDisplay,omitempty" yaml:"useDisplay,omitempty"`
}

// OrderItem is one node of a reorder request. Index within its slice is the new ordinal.
type OrderItem struct {
	ID       string      `json:"id" yaml:"id"`
	Children []OrderItem `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewDelta returns an empty delta bound to base.
func NewDelta(base *SaveFile) *DeltaFile {
	return &DeltaFile{
		SaveFileTimestamp: base.SaveFileTimestamp,
		DeltaTimestamp:    now(),
		SaveFileName:      base.SaveFileName,
		ParticipantID:     base.ParticipantID,
		Documents:         make(map[string]*DocumentDelta),
	}
}

// NewSaveFile returns an empty base snapshot for a participant.
func NewSaveFile(participantID, name string) *SaveFile {
	return &SaveFile{
		SaveFileTimestamp: now(),
		SaveFileName:      name,
		ParticipantID:     participantID,
		Documents:         make(map[string]*Document),
	}
}

// IsEmpty reports whether the delta carries no document edits.
func (d *DeltaFile) IsEmpty() bool {
	return len(d.Documents) == 0
}

func intPtr(v int) *int {
	return &v
}
