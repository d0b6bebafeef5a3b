package deltatree

import "fmt"

// UpdateFields folds field changes into deltas. A change that matches the
// base field exactly leaves no entry behind; entries that end up Unchanged
// are pruned. Deleted fields ignore further edits.
func UpdateFields(deltas map[string]*ValueDelta, base map[string]*DocumentField, changes []FieldChange) (map[string]*ValueDelta, error) {
	if deltas == nil {
		deltas = make(map[string]*ValueDelta)
	}

	for _, change := range changes {
		if change.ID == "" {
			return deltas, fmt.Errorf("%w: field id is empty", ErrInvalidArgument)
		}
		existing := deltas[change.ID]
		if existing != nil && existing.Type == DeltaDelete {
			continue
		}

		baseField := base[change.ID]
		if baseField != nil && baseField.Value == change.Value && baseField.UseDisplay == change.UseDisplay {
			delete(deltas, change.ID)
			continue
		}

		vd := existing
		if vd == nil {
			vd = &ValueDelta{ID: change.ID, Type: DeltaUnchanged}
		}
		switch {
		case vd.Type == DeltaCreate:
		case baseField == nil:
			vd.Type = DeltaCreate
		default:
			vd.Type = DeltaUpdate
		}

		if baseField != nil {
			vd.OldValue = baseField.Value
			vd.OldUseDisplay = baseField.UseDisplay
		}
		vd.Value = change.Value
		vd.UseDisplay = change.UseDisplay
		vd.Timestamp = now()
		deltas[change.ID] = vd
	}

	for id, vd := range deltas {
		if vd.Type == DeltaUnchanged {
			delete(deltas, id)
		}
	}
	return deltas, nil
}
