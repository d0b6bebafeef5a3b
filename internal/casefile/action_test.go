package casefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casework/deltatree"
)

func TestDecodeActionYAML(t *testing.T) {
	action, err := DecodeAction([]byte(`
kind: updateDocument
document:
  id: d1
  name: Intake
  groups:
    - id: g1
      groupId: household
      fields:
        - id: age
          value: "35"
  fields:
    - id: f1
      value: "20"
      useDisplay: 1
`))
	require.NoError(t, err)

	assert.Equal(t, UpdateDocument, action.Kind)
	assert.Equal(t, &deltatree.DocumentChange{
		ID:   "d1",
		Name: "Intake",
		Groups: []deltatree.GroupChange{{
			ID: "g1", GroupID: "household",
			Fields: []deltatree.FieldChange{{ID: "age", Value: "35"}},
		}},
		Fields: []deltatree.FieldChange{{ID: "f1", Value: "20", UseDisplay: 1}},
	}, action.Document)
}

func TestDecodeActionJSON(t *testing.T) {
	action, err := DecodeAction([]byte(`{"kind":"reorderDocuments","order":[{"id":"d2","children":[{"id":"d1"}]}]}`))
	require.NoError(t, err)

	assert.Equal(t, ReorderDocuments, action.Kind)
	assert.Equal(t, []deltatree.OrderItem{{ID: "d2", Children: []deltatree.OrderItem{{ID: "d1"}}}}, action.Order)
}

func TestDecodeActionErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"unknown field", "kind: removeDocument\ndocumentId: d1\nbogus: 1\n"},
		{"unknown kind", "kind: renameDocument\n"},
		{"missing kind", "documentId: d1\n"},
		{"remove group without group", "kind: removeGroup\ndocumentId: d1\n"},
		{"reorder groups without order", "kind: reorderGroups\ndocumentId: d1\n"},
		{"add group without document", "kind: addGroup\nnewGroup:\n  groupId: phone\n"},
		{"not yaml", "kind: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAction([]byte(tt.in))
			assert.ErrorIs(t, err, deltatree.ErrInvalidArgument)
		})
	}
}

func TestApplyDispatch(t *testing.T) {
	base := deltatree.NewSaveFile("p-1", "Alex Doe")
	delta := deltatree.NewDelta(base)

	id, err := Action{Kind: AddDocument, NewDocument: &deltatree.NewDocument{DocumentID: "note", Name: "Note"}}.apply(delta, base)
	require.NoError(t, err)
	require.Contains(t, delta.Documents, id)

	groupID, err := Action{Kind: AddGroup, NewGroup: &deltatree.NewGroup{DocumentID: id, GroupID: "line"}}.apply(delta, base)
	require.NoError(t, err)
	assert.Contains(t, delta.Documents[id].Groups, groupID)

	_, err = Action{Kind: RemoveGroup, DocumentID: id, GroupID: groupID}.apply(delta, base)
	require.NoError(t, err)
	assert.NotContains(t, delta.Documents[id].Groups, groupID, "a group created in this delta is dropped")

	_, err = Action{Kind: RemoveDocument, DocumentID: id}.apply(delta, base)
	require.NoError(t, err)
	assert.True(t, delta.IsEmpty())
}
