package deltatree

import "fmt"

// NewGroup describes a group to add to a document, optionally nested under
// an existing group instance.
type NewGroup struct {
	DocumentID string `json:"documentId" yaml:"documentId"` // Document instance
	ParentID   string `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	GroupID    string `json:"groupId" yaml:"groupId"` // Template reference
}

// UpdateGroups folds a full listing of a parent's groups into deltas. Sibling
// order comes from the position in changes. Groups missing from changes stop
// being tracked, except delete tombstones which are kept until merge.
func UpdateGroups(deltas map[string]*GroupDelta, base map[string]*DocumentGroup, changes []GroupChange) (map[string]*GroupDelta, error) {
	result := make(map[string]*GroupDelta, len(changes))

	for i, change := range changes {
		if change.ID == "" {
			return deltas, fmt.Errorf("%w: group id is empty", ErrInvalidArgument)
		}
		baseGroup := base[change.ID]
		gd := deltas[change.ID]
		if gd == nil {
			gd = &GroupDelta{ID: change.ID, Type: DeltaUnchanged, Timestamp: now()}
			if baseGroup == nil {
				gd.Type = DeltaCreate
			}
		}
		if gd.Type == DeltaDelete {
			result[change.ID] = gd
			continue
		}
		if change.GroupID != "" {
			gd.GroupID = change.GroupID
		}

		var baseChildren map[string]*DocumentGroup
		var baseFields map[string]*DocumentField
		if baseGroup != nil {
			baseChildren = baseGroup.Children
			baseFields = baseGroup.Fields
		}

		children, err := UpdateGroups(gd.Children, baseChildren, change.Children)
		if err != nil {
			return deltas, fmt.Errorf("group %s: %w", change.ID, err)
		}
		fields, err := UpdateFields(gd.Fields, baseFields, change.Fields)
		if err != nil {
			return deltas, fmt.Errorf("group %s: %w", change.ID, err)
		}
		gd.Children = children
		gd.Fields = fields
		gd.Ordinal = intPtr(i)
		gd.Timestamp = now()
		result[change.ID] = gd
	}

	for id, gd := range deltas {
		if _, ok := result[id]; !ok && gd.Type == DeltaDelete {
			result[id] = gd
		}
	}
	return result, nil
}

// AddGroup creates a new group instance and returns its id.
func AddGroup(delta *DeltaFile, base *SaveFile, req NewGroup) (string, error) {
	if req.DocumentID == "" {
		return "", fmt.Errorf("%w: document id is empty", ErrInvalidArgument)
	}
	ensureDocuments(delta)
	baseDoc := baseDocument(base, req.DocumentID)
	if delta.Documents[req.DocumentID] == nil && baseDoc == nil {
		return "", fmt.Errorf("%w: document %s", ErrNotFound, req.DocumentID)
	}
	doc, err := ResolveOrCreateDocumentDelta(delta.Documents, req.DocumentID)
	if err != nil {
		return "", err
	}
	if doc.Type == DeltaDelete {
		return "", fmt.Errorf("%w: document %s is deleted", ErrNotFound, req.DocumentID)
	}

	id := newID()
	group := &GroupDelta{ID: id, GroupID: req.GroupID, Type: DeltaCreate, Timestamp: now()}

	if req.ParentID == "" {
		if doc.Groups == nil {
			doc.Groups = make(map[string]*GroupDelta)
		}
		var baseGroups map[string]*DocumentGroup
		if baseDoc != nil {
			baseGroups = baseDoc.Groups
		}
		group.Ordinal = intPtr(liveGroupCount(doc.Groups, baseGroups))
		doc.Groups[id] = group
	} else {
		path := FindGroupPath(baseDoc, doc, req.ParentID)
		if path == nil {
			return "", fmt.Errorf("%w: group %s in document %s", ErrNotFound, req.ParentID, req.DocumentID)
		}
		if parent := deltaGroupAt(doc, path); parent != nil && parent.Type == DeltaDelete {
			return "", fmt.Errorf("%w: group %s is deleted", ErrNotFound, req.ParentID)
		}
		var baseChildren map[string]*DocumentGroup
		if bg := baseGroupAt(baseDoc, path); bg != nil {
			baseChildren = bg.Children
		}
		doc.Groups, err = ResolveOrCreateGroupAlongPath(doc.Groups, path, func(parent *GroupDelta) {
			group.Ordinal = intPtr(liveGroupCount(parent.Children, baseChildren))
			parent.Children[id] = group
		})
		if err != nil {
			return "", err
		}
	}

	doc.Timestamp = now()
	delta.DeltaTimestamp = now()
	CalculateTree(delta)
	return id, nil
}

// RemoveGroup tombstones a group. A group created in this delta is dropped
// outright since nothing was ever persisted for it.
func RemoveGroup(delta *DeltaFile, base *SaveFile, documentID, groupID string) error {
	if documentID == "" || groupID == "" {
		return fmt.Errorf("%w: document and group ids are required", ErrInvalidArgument)
	}
	ensureDocuments(delta)
	baseDoc := baseDocument(base, documentID)
	path := FindGroupPath(baseDoc, delta.Documents[documentID], groupID)
	if path == nil {
		return fmt.Errorf("%w: group %s in document %s", ErrNotFound, groupID, documentID)
	}

	doc, err := ResolveOrCreateDocumentDelta(delta.Documents, documentID)
	if err != nil {
		return err
	}
	if doc.Type == DeltaDelete {
		return nil
	}

	if existing := deltaGroupAt(doc, path); existing != nil && existing.Type == DeltaCreate {
		siblings := doc.Groups
		if len(path) > 1 {
			siblings = deltaGroupAt(doc, path[:len(path)-1]).Children
		}
		delete(siblings, groupID)
	} else {
		doc.Groups, err = ResolveOrCreateGroupAlongPath(doc.Groups, path, func(g *GroupDelta) {
			g.Type = DeltaDelete
			g.Timestamp = now()
			g.Children = nil
			g.Fields = nil
		})
		if err != nil {
			return err
		}
	}

	delta.DeltaTimestamp = now()
	CalculateTree(delta)
	return nil
}

// liveGroupCount counts the distinct, non-deleted groups known at one level.
func liveGroupCount(deltas map[string]*GroupDelta, base map[string]*DocumentGroup) int {
	n := 0
	for id, gd := range deltas {
		if gd.Type == DeltaDelete {
			continue
		}
		if _, inBase := base[id]; !inBase {
			n++
		}
	}
	for id := range base {
		if gd, ok := deltas[id]; ok && gd.Type == DeltaDelete {
			continue
		}
		n++
	}
	return n
}
