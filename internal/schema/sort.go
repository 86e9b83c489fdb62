package schema

// SortByDependency orders tables so that every table comes after the
// tables its rows reference. Insert in this order and delete in reverse.
// Input order breaks ties. Tables in a reference cycle keep input order.
func SortByDependency(entities []*DbEntity) []*DbEntity {
	index := make(map[*DbEntity]int, len(entities))
	for i, e := range entities {
		index[e] = i
	}

	// masters[i] are the tables entity i references
	masters := make([][]int, len(entities))
	for i, e := range entities {
		for _, rel := range e.Relationships() {
			if !rel.ReferencesTarget() {
				continue
			}
			if j, ok := index[rel.TargetEntity()]; ok && j != i {
				masters[i] = append(masters[i], j)
			}
		}
	}

	placed := make([]bool, len(entities))
	out := make([]*DbEntity, 0, len(entities))
	for len(out) < len(entities) {
		progress := false
		for i, e := range entities {
			if placed[i] {
				continue
			}
			ready := true
			for _, m := range masters[i] {
				if !placed[m] {
					ready = false
					break
				}
			}
			if ready {
				placed[i] = true
				out = append(out, e)
				progress = true
			}
		}
		if !progress {
			for i, e := range entities {
				if !placed[i] {
					placed[i] = true
					out = append(out, e)
				}
			}
		}
	}
	return out
}
