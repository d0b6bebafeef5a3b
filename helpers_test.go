package deltatree

import (
	"testing"
	"time"
)

var baseSavedAt = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

// fixtureBase builds a participant with two top-level documents, one of
// which nests a third, and a two-level group hierarchy inside d1.
func fixtureBase() *SaveFile {
	return &SaveFile{
		SaveFileTimestamp: baseSavedAt,
		SaveFileName:      "p1.save",
		ParticipantID:     "p1",
		Documents: map[string]*Document{
			"d1": {
				ID: "d1", DocumentID: "intake", Name: "Intake", Ordinal: intPtr(0),
				Values: map[string]*DocumentField{
					"f1": {ID: "f1", Value: "10"},
				},
				Groups: map[string]*DocumentGroup{
					"g1": {
						ID: "g1", GroupID: "household", Ordinal: intPtr(0),
						Fields: map[string]*DocumentField{"age": {ID: "age", Value: "34"}},
						Children: map[string]*DocumentGroup{
							"g1a": {
								ID: "g1a", GroupID: "member", Ordinal: intPtr(0),
								Fields: map[string]*DocumentField{"name": {ID: "name", Value: "Ana"}},
							},
						},
					},
					"g2": {
						ID: "g2", GroupID: "household", Ordinal: intPtr(1),
						Fields: map[string]*DocumentField{"age": {ID: "age", Value: "41"}},
					},
				},
			},
			"d2": {ID: "d2", DocumentID: "assessment", Name: "Assessment", Ordinal: intPtr(1)},
			"d3": {ID: "d3", DocumentID: "note", Name: "Note", Ordinal: intPtr(0)},
		},
		DocumentTree: []TreeItem{
			{ID: "d1"},
			{ID: "d2", Children: []TreeItem{{ID: "d3"}}},
		},
	}
}

func seededDelta(base *SaveFile) *DeltaFile {
	delta := NewDelta(base)
	SeedDeltaFile(delta, base)
	return delta
}

func withIDs(t *testing.T, ids ...string) {
	t.Helper()
	prev := newID
	next := 0
	newID = func() string {
		id := ids[next]
		next++
		return id
	}
	t.Cleanup(func() { newID = prev })
}
