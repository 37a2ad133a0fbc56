package relation

import (
	"fmt"

	"throughline/internal/record"
)

// GroupOntoOwners distributes eager-loaded related rows onto their owning
// records using the pivot alias projected by the eager query. Key values are
// normalized through fmt.Sprint before comparison so driver-level type
// differences (int64 vs string vs []byte) do not split groups.
//
// Every owner receives a collection, empty when no rows matched. Rows whose
// pivot value matches no owner, or that lack the pivot extra entirely, are
// dropped; the count of dropped rows is returned.
func (r *HasManyThrough) GroupOntoOwners(owners []*record.Record, rows []*record.Record) int {
	r.mustBeBooted("GroupOntoOwners")

	groups := make(map[string][]*record.Record)
	dropped := 0
	for _, row := range rows {
		pivot, ok := row.Extra(r.pivotAlias)
		if !ok || pivot == nil {
			dropped++
			continue
		}
		key := fmt.Sprint(pivot)
		groups[key] = append(groups[key], row)
	}

	claimed := make(map[string]bool, len(owners))
	for _, owner := range owners {
		value, ok := owner.Get(r.resolved.Local.Field)
		if !ok || value == nil {
			owner.SetRelated(r.name, []*record.Record{})
			continue
		}
		key := fmt.Sprint(value)
		group := groups[key]
		if group == nil {
			group = []*record.Record{}
		}
		owner.SetRelated(r.name, group)
		claimed[key] = true
	}

	for key, group := range groups {
		if !claimed[key] {
			dropped += len(group)
		}
	}
	return dropped
}
