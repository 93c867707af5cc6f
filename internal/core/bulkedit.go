package core

import "fmt"

// FieldChange is one cell edit made on a row.
type FieldChange struct {
	DbID  int64  `json:"dbId"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// EditResult describes an applied edit.
type EditResult struct {
	Records   []ElementRecord
	Updated   int  // Number of records changed
	Broadcast bool // Whether the edit was applied to the whole selection
	Reordered bool // Whether rows were renumbered
}

// ApplyFieldChange applies change to the edited row or, when that row is part
// of selection, to every selected row. Edits to grouping fields renumber the
// result; other edits keep existing rowNumbers. The input slice is never
// modified.
func ApplyFieldChange(records []ElementRecord, selection SelectionSet, change FieldChange, groupByCode bool) (EditResult, error) {
	value, err := NormalizeValue(change.Field, change.Value)
	if err != nil {
		return EditResult{}, err
	}

	edited := -1
	for i := range records {
		if records[i].DbID == change.DbID {
			edited = i
			break
		}
	}
	if edited < 0 {
		return EditResult{}, fmt.Errorf("%w: dbId %d", ErrElementNotFound, change.DbID)
	}

	broadcast := selection.Contains(change.DbID)

	out := make([]ElementRecord, len(records))
	updated := 0
	for i, rec := range records {
		if i == edited || (broadcast && selection.Contains(rec.DbID)) {
			next, err := rec.WithField(change.Field, value)
			if err != nil {
				return EditResult{}, err
			}
			out[i] = next
			updated++
			continue
		}
		out[i] = rec
	}

	result := EditResult{
		Records:   out,
		Updated:   updated,
		Broadcast: broadcast && len(selection) > 1,
	}
	if IsGroupingField(change.Field) {
		result.Records = Reorder(out, groupByCode)
		result.Reordered = true
	}
	return result, nil
}
