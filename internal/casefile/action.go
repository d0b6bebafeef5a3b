package casefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/casework/deltatree"
)

// ActionKind selects which edit an Action performs.
type ActionKind string

const (
	UpdateDocument   ActionKind = "updateDocument"
	AddDocument      ActionKind = "addDocument"
	AddGroup         ActionKind = "addGroup"
	RemoveDocument   ActionKind = "removeDocument"
	RemoveGroup      ActionKind = "removeGroup"
	ReorderDocuments ActionKind = "reorderDocuments"
	ReorderGroups    ActionKind = "reorderGroups"
)

// Action is one user edit. Only the fields relevant to Kind are read.
//
//	kind: updateDocument
//	document:
//	  id: d1
//	  name: Intake
//	  fields:
//	    - id: f1
//	      value: "20"
type Action struct {
	Kind        ActionKind                `json:"kind" yaml:"kind"`
	Document    *deltatree.DocumentChange `json:"document,omitempty" yaml:"document,omitempty"`
	NewDocument *deltatree.NewDocument    `json:"newDocument,omitempty" yaml:"newDocument,omitempty"`
	NewGroup    *deltatree.NewGroup       `json:"newGroup,omitempty" yaml:"newGroup,omitempty"`
	DocumentID  string                    `json:"documentId,omitempty" yaml:"documentId,omitempty"`
	GroupID     string                    `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	Order       []deltatree.OrderItem     `json:"order,omitempty" yaml:"order,omitempty"`
}

// DecodeAction reads a single action from YAML or JSON. Unknown keys are rejected.
func DecodeAction(data []byte) (Action, error) {
	var action Action
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&action); err != nil {
		if errors.Is(err, io.EOF) {
			return Action{}, fmt.Errorf("%w: empty action", deltatree.ErrInvalidArgument)
		}
		return Action{}, fmt.Errorf("%w: %v", deltatree.ErrInvalidArgument, err)
	}
	if err := action.Validate(); err != nil {
		return Action{}, err
	}
	return action, nil
}

// Validate checks that the fields Kind needs are present.
func (a Action) Validate() error {
	missing := func(what string) error {
		return fmt.Errorf("%w: %s requires %s", deltatree.ErrInvalidArgument, a.Kind, what)
	}
	switch a.Kind {
	case UpdateDocument:
		if a.Document == nil || a.Document.ID == "" {
			return missing("document.id")
		}
	case AddDocument:
		if a.NewDocument == nil {
			return missing("newDocument")
		}
	case AddGroup:
		if a.NewGroup == nil || a.NewGroup.DocumentID == "" {
			return missing("newGroup.documentId")
		}
	case RemoveDocument:
		if a.DocumentID == "" {
			return missing("documentId")
		}
	case RemoveGroup:
		if a.DocumentID == "" || a.GroupID == "" {
			return missing("documentId and groupId")
		}
	case ReorderDocuments:
		if len(a.Order) == 0 {
			return missing("order")
		}
	case ReorderGroups:
		if a.DocumentID == "" || len(a.Order) == 0 {
			return missing("documentId and order")
		}
	case "":
		return fmt.Errorf("%w: action kind is empty", deltatree.ErrInvalidArgument)
	default:
		return fmt.Errorf("%w: unknown action kind %q", deltatree.ErrInvalidArgument, a.Kind)
	}
	return nil
}

// apply runs the action against delta. It returns the id of a created
// document or group, otherwise the id of the touched node.
func (a Action) apply(delta *deltatree.DeltaFile, base *deltatree.SaveFile) (string, error) {
	switch a.Kind {
	case UpdateDocument:
		return a.Document.ID, deltatree.UpdateDocument(delta, base, *a.Document)
	case AddDocument:
		return deltatree.AddDocument(delta, base, *a.NewDocument)
	case AddGroup:
		return deltatree.AddGroup(delta, base, *a.NewGroup)
	case RemoveDocument:
		return a.DocumentID, deltatree.RemoveDocument(delta, base, a.DocumentID)
	case RemoveGroup:
		return a.GroupID, deltatree.RemoveGroup(delta, base, a.DocumentID, a.GroupID)
	case ReorderDocuments:
		return "", deltatree.ReorderDocuments(delta, base, a.Order)
	case ReorderGroups:
		return a.DocumentID, deltatree.ReorderGroups(delta, base, a.DocumentID, a.Order)
	}
	return "", a.Validate()
}
