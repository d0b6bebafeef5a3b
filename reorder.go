package deltatree

import "fmt"

// ReorderDocuments sets every listed document's ordinal to its position among
// its listed siblings and relays the tree out in the same shape, which may
// move a document under a different parent. Each id may appear once; the
// order is checked in full before anything changes.
func ReorderDocuments(delta *DeltaFile, base *SaveFile, order []OrderItem) error {
	ensureDocuments(delta)

	deleted := make(map[string]bool)
	for id, doc := range delta.Documents {
		if doc.Type == DeltaDelete {
			deleted[id] = true
		}
	}

	seen := make(map[string]bool)
	var check func(items []OrderItem) error
	check = func(items []OrderItem) error {
		for _, item := range items {
			if item.ID == "" {
				return fmt.Errorf("%w: document id is empty", ErrInvalidArgument)
			}
			if seen[item.ID] {
				return fmt.Errorf("%w: document %s listed twice", ErrInvalidArgument, item.ID)
			}
			seen[item.ID] = true
			if delta.Documents[item.ID] == nil && baseDocument(base, item.ID) == nil {
				return fmt.Errorf("%w: document %s", ErrNotFound, item.ID)
			}
			if err := check(item.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(order); err != nil {
		return err
	}

	var assign func(items []OrderItem) error
	assign = func(items []OrderItem) error {
		for i, item := range items {
			if !deleted[item.ID] {
				doc, err := ResolveOrCreateDocumentDelta(delta.Documents, item.ID)
				if err != nil {
					return err
				}
				doc.Ordinal = intPtr(i)
				doc.Timestamp = now()
			}
			if err := assign(item.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := assign(order); err != nil {
		return err
	}

	delta.DocumentTree = rebuildTree(delta.DocumentTree, order, deleted)
	delta.DeltaTimestamp = now()
	return nil
}

// ReorderGroups sets group ordinals inside one document. Groups keep their
// parent; only the ordinal of each listed group changes.
func ReorderGroups(delta *DeltaFile, base *SaveFile, documentID string, order []OrderItem) error {
	if documentID == "" {
		return fmt.Errorf("%w: document id is empty", ErrInvalidArgument)
	}
	ensureDocuments(delta)
	baseDoc := baseDocument(base, documentID)
	if delta.Documents[documentID] == nil && baseDoc == nil {
		return fmt.Errorf("%w: document %s", ErrNotFound, documentID)
	}
	doc, err := ResolveOrCreateDocumentDelta(delta.Documents, documentID)
	if err != nil {
		return err
	}
	if doc.Type == DeltaDelete {
		return nil
	}

	var assign func(prefix []string, items []OrderItem) error
	assign = func(prefix []string, items []OrderItem) error {
		for i, item := range items {
			if item.ID == "" {
				return fmt.Errorf("%w: group id is empty", ErrInvalidArgument)
			}
			path := append(append([]string(nil), prefix...), item.ID)
			existing := deltaGroupAt(doc, path)
			if existing == nil && baseGroupAt(baseDoc, path) == nil {
				return fmt.Errorf("%w: group path %v in document %s", ErrNotFound, path, documentID)
			}
			if existing == nil || existing.Type != DeltaDelete {
				ordinal := i
				doc.Groups, err = ResolveOrCreateGroupAlongPath(doc.Groups, path, func(g *GroupDelta) {
					g.Ordinal = intPtr(ordinal)
					g.Timestamp = now()
				})
				if err != nil {
					return err
				}
			}
			if err := assign(path, item.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := assign(nil, order); err != nil {
		return err
	}

	delta.DeltaTimestamp = now()
	return nil
}
