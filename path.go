package deltatree

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// ResolveOrCreateDocumentDelta returns the delta for id, inserting an
// Unchanged anchor when there is none yet.
func ResolveOrCreateDocumentDelta(deltas map[string]*DocumentDelta, id string) (*DocumentDelta, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: document id is empty", ErrInvalidArgument)
	}
	if doc, ok := deltas[id]; ok {
		return doc, nil
	}
	doc := &DocumentDelta{
		ID:        id,
		Type:      DeltaUnchanged,
		Timestamp: now(),
		Groups:    make(map[string]*GroupDelta),
		Values:    make(map[string]*ValueDelta),
	}
	deltas[id] = doc
	return doc, nil
}

// ResolveOrCreateGroupAlongPath walks path through nested group deltas,
// inserting Unchanged anchors for missing segments, and calls op on the last
// one. The returned map is the one callers must keep; it is allocated when
// groups is nil.
func ResolveOrCreateGroupAlongPath(groups map[string]*GroupDelta, path []string, op func(*GroupDelta)) (map[string]*GroupDelta, error) {
	if len(path) == 0 {
		return groups, fmt.Errorf("%w: group path is empty", ErrInvalidArgument)
	}
	if groups == nil {
		groups = make(map[string]*GroupDelta)
	}

	level := groups
	var node *GroupDelta
	for i, id := range path {
		if id == "" {
			return groups, fmt.Errorf("%w: empty group id at step %d of %v", ErrInvalidArgument, i, path)
		}
		node = level[id]
		if node == nil {
			node = &GroupDelta{ID: id, Type: DeltaUnchanged, Timestamp: now()}
			level[id] = node
		}
		if node.Children == nil {
			node.Children = make(map[string]*GroupDelta)
		}
		level = node.Children
	}
	if op != nil {
		op(node)
	}
	return groups, nil
}

// FindGroupPath returns the chain of group instance ids leading to id inside
// a document, looking at pending group deltas first and then at the base.
func FindGroupPath(base *Document, delta *DocumentDelta, id string) []string {
	if delta != nil {
		if path := findGroupDeltaPath(delta.Groups, id); path != nil {
			return path
		}
	}
	if base != nil {
		return findBaseGroupPath(base.Groups, id)
	}
	return nil
}

func findGroupDeltaPath(groups map[string]*GroupDelta, id string) []string {
	if _, ok := groups[id]; ok {
		return []string{id}
	}
	for _, key := range slices.Sorted(maps.Keys(groups)) {
		if sub := findGroupDeltaPath(groups[key].Children, id); sub != nil {
			return append([]string{key}, sub...)
		}
	}
	return nil
}

func findBaseGroupPath(groups map[string]*DocumentGroup, id string) []string {
	if _, ok := groups[id]; ok {
		return []string{id}
	}
	for _, key := range slices.Sorted(maps.Keys(groups)) {
		if sub := findBaseGroupPath(groups[key].Children, id); sub != nil {
			return append([]string{key}, sub...)
		}
	}
	return nil
}

// baseGroupAt follows path through the base document's groups.
func baseGroupAt(doc *Document, path []string) *DocumentGroup {
	if doc == nil || len(path) == 0 {
		return nil
	}
	level := doc.Groups
	var group *DocumentGroup
	for _, id := range path {
		group = level[id]
		if group == nil {
			return nil
		}
		level = group.Children
	}
	return group
}

// deltaGroupAt follows path through pending group deltas without creating anything.
func deltaGroupAt(doc *DocumentDelta, path []string) *GroupDelta {
	if doc == nil || len(path) == 0 {
		return nil
	}
	level := doc.Groups
	var group *GroupDelta
	for _, id := range path {
		group = level[id]
		if group == nil {
			return nil
		}
		level = group.Children
	}
	return group
}

// ResolveFieldByInstancePath returns the field addressed by
// [document id, group id..., field id], or nil.
func ResolveFieldByInstancePath(snapshot *SaveFile, path []string) *DocumentField {
	if snapshot == nil || len(path) < 2 {
		return nil
	}
	doc := snapshot.Documents[path[0]]
	if doc == nil {
		return nil
	}
	fieldID := path[len(path)-1]
	groupPath := path[1 : len(path)-1]
	if len(groupPath) == 0 {
		return doc.Values[fieldID]
	}
	group := baseGroupAt(doc, groupPath)
	if group == nil {
		return nil
	}
	return group.Fields[fieldID]
}

// ResolveFieldsByTemplatePath returns every field addressed by
// [document template id, group template id..., field id]. Several document
// or group instances can share a template, so the result fans out.
func ResolveFieldsByTemplatePath(snapshot *SaveFile, path []string) []*DocumentField {
	if snapshot == nil || len(path) < 2 {
		return nil
	}
	fieldID := path[len(path)-1]
	groupPath := path[1 : len(path)-1]

	var fields []*DocumentField
	for _, doc := range sortedDocuments(snapshot.Documents) {
		if doc.DocumentID != path[0] {
			continue
		}
		if len(groupPath) == 0 {
			if f := doc.Values[fieldID]; f != nil {
				fields = append(fields, f)
			}
			continue
		}
		fields = append(fields, fieldsByTemplate(doc.Groups, groupPath, fieldID)...)
	}
	return fields
}

func fieldsByTemplate(groups map[string]*DocumentGroup, groupPath []string, fieldID string) []*DocumentField {
	var fields []*DocumentField
	for _, group := range SortedGroups(groups) {
		if group.GroupID != groupPath[0] {
			continue
		}
		if len(groupPath) == 1 {
			if f := group.Fields[fieldID]; f != nil {
				fields = append(fields, f)
			}
			continue
		}
		fields = append(fields, fieldsByTemplate(group.Children, groupPath[1:], fieldID)...)
	}
	return fields
}

func sortedDocuments(docs map[string]*Document) []*Document {
	out := slices.Collect(maps.Values(docs))
	slices.SortFunc(out, func(a, b *Document) int {
		if c := cmp.Compare(ordinalOf(a.Ordinal), ordinalOf(b.Ordinal)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// SortedGroups orders groups by ordinal, then id. Groups without an ordinal go last.
func SortedGroups(groups map[string]*DocumentGroup) []*DocumentGroup {
	out := slices.Collect(maps.Values(groups))
	slices.SortFunc(out, func(a, b *DocumentGroup) int {
		if c := cmp.Compare(ordinalOf(a.Ordinal), ordinalOf(b.Ordinal)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
