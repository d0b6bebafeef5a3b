package deltatree

import "fmt"

// NewDocument describes a document to add, optionally nested under another
// document instance.
type NewDocument struct {
	DocumentID string `json:"documentId" yaml:"documentId"` // Template reference
	Name       string `json:"name" yaml:"name"`
	ParentID   string `json:"parentId,omitempty" yaml:"parentId,omitempty"`
}

// UpdateDocument folds a document edit into delta. Edits to a deleted
// document are ignored. A document created in this delta stays Create.
func UpdateDocument(delta *DeltaFile, base *SaveFile, change DocumentChange) error {
	ensureDocuments(delta)
	doc, err := ResolveOrCreateDocumentDelta(delta.Documents, change.ID)
	if err != nil {
		return err
	}
	if doc.Type == DeltaDelete {
		return nil
	}

	baseDoc := baseDocument(base, change.ID)
	if baseDoc != nil {
		doc.OldValue = baseDoc.Name
	} else {
		doc.OldValue = doc.Value
	}
	if change.DocumentID != "" {
		doc.DocumentID = change.DocumentID
	}

	var baseGroups map[string]*DocumentGroup
	var baseValues map[string]*DocumentField
	if baseDoc != nil {
		baseGroups = baseDoc.Groups
		baseValues = baseDoc.Values
	}
	if change.Groups != nil {
		if doc.Groups, err = UpdateGroups(doc.Groups, baseGroups, change.Groups); err != nil {
			return fmt.Errorf("document %s: %w", change.ID, err)
		}
	}
	if doc.Values, err = UpdateFields(doc.Values, baseValues, change.Fields); err != nil {
		return fmt.Errorf("document %s: %w", change.ID, err)
	}

	switch {
	case doc.Type == DeltaCreate:
	case baseDoc == nil:
		doc.Type = DeltaCreate
	case change.Name != baseDoc.Name || len(doc.Values) > 0:
		doc.Type = DeltaUpdate
	default:
		doc.Type = DeltaUnchanged
	}
	doc.Value = change.Name
	doc.Timestamp = now()
	delta.DeltaTimestamp = now()

	CalculateTree(delta)
	return nil
}

// AddDocument creates a new document instance and returns its id. Without a
// parent the document is appended at the top level of the tree.
func AddDocument(delta *DeltaFile, base *SaveFile, req NewDocument) (string, error) {
	ensureDocuments(delta)

	var parentPath []string
	if req.ParentID != "" {
		parentPath = FindPath(delta.DocumentTree, req.ParentID)
		if parentPath == nil {
			return "", fmt.Errorf("%w: parent document %s", ErrNotFound, req.ParentID)
		}
		if _, err := ResolveOrCreateDocumentDelta(delta.Documents, req.ParentID); err != nil {
			return "", err
		}
	}

	siblings := delta.DocumentTree
	if parent := ResolveNode(delta.DocumentTree, parentPath); parent != nil {
		siblings = parent.Children
	}

	id := newID()
	delta.Documents[id] = &DocumentDelta{
		ID:         id,
		DocumentID: req.DocumentID,
		Value:      req.Name,
		Ordinal:    intPtr(len(siblings)),
		Type:       DeltaCreate,
		Timestamp:  now(),
		Groups:     make(map[string]*GroupDelta),
		Values:     make(map[string]*ValueDelta),
	}

	tree, err := insertNode(delta.DocumentTree, parentPath, TreeItem{ID: id})
	if err != nil {
		delete(delta.Documents, id)
		return "", err
	}
	delta.DocumentTree = tree
	delta.DeltaTimestamp = now()
	return id, nil
}

// RemoveDocument drops a document and everything nested under it from the
// tree and tombstones their deltas. Documents created in this delta are
// dropped outright.
func RemoveDocument(delta *DeltaFile, base *SaveFile, id string) error {
	if id == "" {
		return fmt.Errorf("%w: document id is empty", ErrInvalidArgument)
	}
	ensureDocuments(delta)

	path := FindPath(delta.DocumentTree, id)
	if path == nil && delta.Documents[id] == nil && baseDocument(base, id) == nil {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}

	ids := []string{id}
	if path != nil {
		var removed *TreeItem
		delta.DocumentTree, removed = removeNode(delta.DocumentTree, path)
		if removed != nil {
			ids = Flatten([]TreeItem{*removed})
		}
	}

	for _, docID := range ids {
		existing := delta.Documents[docID]
		if existing != nil && existing.Type == DeltaCreate {
			delete(delta.Documents, docID)
			continue
		}
		if existing == nil && baseDocument(base, docID) == nil {
			continue
		}
		doc, err := ResolveOrCreateDocumentDelta(delta.Documents, docID)
		if err != nil {
			return err
		}
		doc.Type = DeltaDelete
		doc.Timestamp = now()
	}

	delta.DeltaTimestamp = now()
	return nil
}

func ensureDocuments(delta *DeltaFile) {
	if delta.Documents == nil {
		delta.Documents = make(map[string]*DocumentDelta)
	}
}

func baseDocument(base *SaveFile, id string) *Document {
	if base == nil {
		return nil
	}
	return base.Documents[id]
}
