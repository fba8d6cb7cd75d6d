package acl

// Consolidate unions ACEs sharing the same (trustee.full_name, type,
// inherited) key into a single entry, preserving first-seen order, then
// applies the FullControl-subsumption reduction to each result.
func Consolidate(aces []ACE) []ACE {
	order := make([]Key, 0, len(aces))
	byKey := make(map[Key]*ACE, len(aces))

	for _, ace := range aces {
		k := ace.Key()
		if existing, ok := byKey[k]; ok {
			existing.Permissions = existing.Permissions.Union(ace.Permissions)
			existing.AccessPaths = append(existing.AccessPaths, ace.AccessPaths...)
			continue
		}
		copyACE := ace
		byKey[k] = &copyACE
		order = append(order, k)
	}

	out := make([]ACE, 0, len(order))
	for _, k := range order {
		ace := *byKey[k]
		ace.Permissions = ace.Permissions.Reduce()
		out = append(out, ace)
	}
	return out
}
