package deltatree

import "fmt"

// Merge folds delta into base and returns the next base snapshot. Neither
// input is modified. The delta must have been seeded against this exact base.
func Merge(base *SaveFile, delta *DeltaFile) (*SaveFile, error) {
	if !base.SaveFileTimestamp.Equal(delta.SaveFileTimestamp) {
		return nil, fmt.Errorf("%w: base saved at %s, delta seeded at %s",
			ErrStaleDelta, base.SaveFileTimestamp, delta.SaveFileTimestamp)
	}
	if delta.IsEmpty() {
		return base, nil
	}

	docs, err := mergeEntries(delta.Documents, base.Documents, mergeDocument, (*Document).Clone)
	if err != nil {
		return nil, err
	}

	return &SaveFile{
		SaveFileTimestamp: now(),
		SaveFileName:      base.SaveFileName,
		ParticipantID:     base.ParticipantID,
		Header:            base.Header.Clone(),
		Documents:         docs,
		DocumentTree:      CloneTree(delta.DocumentTree),
	}, nil
}

type typed interface {
	comparable
	deltaType() DeltaType
}

// mergeEntries merges one level. Touched ids come from the deltas; untouched
// base entries are carried over unless their delta is a delete.
func mergeEntries[D typed, B comparable](
	deltas map[string]D,
	bases map[string]B,
	merge func(D, B) (B, error),
	clone func(B) B,
) (map[string]B, error) {
	if len(deltas) == 0 {
		return cloneMap(bases, clone), nil
	}

	var zero B
	result := make(map[string]B, len(bases)+len(deltas))

	for id, d := range deltas {
		merged, err := merge(d, bases[id])
		if err != nil {
			return nil, err
		}
		if merged != zero {
			result[id] = merged
		}
	}
	for id, b := range bases {
		if _, done := result[id]; done {
			continue
		}
		if d, ok := deltas[id]; ok && d.deltaType() == DeltaDelete {
			continue
		}
		result[id] = clone(b)
	}
	return result, nil
}

func mergeDocument(d *DocumentDelta, b *Document) (*Document, error) {
	if d.Type == DeltaCreate {
		values, err := mergeEntries[*ValueDelta, *DocumentField](d.Values, nil, mergeField, (*DocumentField).Clone)
		if err != nil {
			return nil, err
		}
		groups, err := mergeEntries[*GroupDelta, *DocumentGroup](d.Groups, nil, mergeGroup, (*DocumentGroup).Clone)
		if err != nil {
			return nil, err
		}
		return &Document{
			ID:         d.ID,
			DocumentID: d.DocumentID,
			Name:       d.Value,
			Ordinal:    cloneInt(d.Ordinal),
			Values:     values,
			Groups:     groups,
		}, nil
	}

	if b == nil {
		return nil, fmt.Errorf("%w: %s document %s", ErrMissingBase, d.Type, d.ID)
	}
	switch d.Type {
	case DeltaDelete:
		return nil, nil
	case DeltaUpdate, DeltaUnchanged:
	default:
		return nil, fmt.Errorf("document %s: unknown delta type %q", d.ID, d.Type)
	}

	doc := &Document{ID: b.ID, DocumentID: b.DocumentID, Name: b.Name, Ordinal: cloneInt(b.Ordinal)}
	if d.Type == DeltaUpdate {
		doc.Name = d.Value
		if d.DocumentID != "" {
			doc.DocumentID = d.DocumentID
		}
	}
	if d.Ordinal != nil {
		doc.Ordinal = cloneInt(d.Ordinal)
	}

	var err error
	if doc.Values, err = mergeEntries(d.Values, b.Values, mergeField, (*DocumentField).Clone); err != nil {
		return nil, fmt.Errorf("document %s: %w", d.ID, err)
	}
	if doc.Groups, err = mergeEntries(d.Groups, b.Groups, mergeGroup, (*DocumentGroup).Clone); err != nil {
		return nil, fmt.Errorf("document %s: %w", d.ID, err)
	}
	return doc, nil
}

func mergeGroup(d *GroupDelta, b *DocumentGroup) (*DocumentGroup, error) {
	if d.Type == DeltaCreate {
		children, err := mergeEntries[*GroupDelta, *DocumentGroup](d.Children, nil, mergeGroup, (*DocumentGroup).Clone)
		if err != nil {
			return nil, err
		}
		fields, err := mergeEntries[*ValueDelta, *DocumentField](d.Fields, nil, mergeField, (*DocumentField).Clone)
		if err != nil {
			return nil, err
		}
		return &DocumentGroup{
			ID:       d.ID,
			GroupID:  d.GroupID,
			Ordinal:  cloneInt(d.Ordinal),
			Children: children,
			Fields:   fields,
		}, nil
	}

	if b == nil {
		return nil, fmt.Errorf("%w: %s group %s", ErrMissingBase, d.Type, d.ID)
	}
	switch d.Type {
	case DeltaDelete:
		return nil, nil
	case DeltaUpdate, DeltaUnchanged:
	default:
		return nil, fmt.Errorf("group %s: unknown delta type %q", d.ID, d.Type)
	}

	group := &DocumentGroup{ID: b.ID, GroupID: b.GroupID, Ordinal: cloneInt(b.Ordinal)}
	if d.Type == DeltaUpdate && d.GroupID != "" {
		group.GroupID = d.GroupID
	}
	if d.Ordinal != nil {
		group.Ordinal = cloneInt(d.Ordinal)
	}

	var err error
	if group.Children, err = mergeEntries(d.Children, b.Children, mergeGroup, (*DocumentGroup).Clone); err != nil {
		return nil, fmt.Errorf("group %s: %w", d.ID, err)
	}
	if group.Fields, err = mergeEntries(d.Fields, b.Fields, mergeField, (*DocumentField).Clone); err != nil {
		return nil, fmt.Errorf("group %s: %w", d.ID, err)
	}
	return group, nil
}

func mergeField(d *ValueDelta, b *DocumentField) (*DocumentField, error) {
	switch d.Type {
	case DeltaCreate:
		return &DocumentField{ID: d.ID, Value: d.Value, UseDisplay: d.UseDisplay}, nil
	case DeltaDelete, DeltaUpdate, DeltaUnchanged:
	default:
		return nil, fmt.Errorf("field %s: unknown delta type %q", d.ID, d.Type)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s field %s", ErrMissingBase, d.Type, d.ID)
	}
	switch d.Type {
	case DeltaDelete:
		return nil, nil
	case DeltaUpdate:
		return &DocumentField{ID: b.ID, Value: d.Value, UseDisplay: d.UseDisplay}, nil
	default:
		return b.Clone(), nil
	}
}

func (d *DocumentDelta) deltaType() DeltaType { return d.Type }
func (d *GroupDelta) deltaType() DeltaType    { return d.Type }
func (d *ValueDelta) deltaType() DeltaType    { return d.Type }
