package batch

import (
	"maps"
	"reflect"
)

// UpdatedSnapshot returns the columns of current that differ from
// committed. Columns committed with a value and missing from current are
// reported as NULL. With no committed snapshot every current column is
// returned.
func UpdatedSnapshot(committed, current map[string]any) map[string]any {
	if len(committed) == 0 {
		return maps.Clone(current)
	}

	out := make(map[string]any)
	for k, v := range current {
		if !reflect.DeepEqual(committed[k], v) {
			out[k] = v
		}
	}
	for k, old := range committed {
		if old == nil {
			continue
		}
		if _, ok := current[k]; !ok {
			out[k] = nil
		}
	}
	return out
}
