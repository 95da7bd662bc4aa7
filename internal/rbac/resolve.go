package rbac

// ResolvePermissions flattens a user's role memberships into the effective
// permission set: the union of RouteNames across all roles, deduplicated.
// The result preserves first-seen order but callers must compare it as a
// set. Pure; the role graph is loaded by the repository beforehand.
func ResolvePermissions(roles []Role) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, role := range roles {
		for _, perm := range role.Permissions {
			if perm.RouteName == "" {
				continue
			}
			if _, ok := seen[perm.RouteName]; ok {
				continue
			}
			seen[perm.RouteName] = struct{}{}
			out = append(out, perm.RouteName)
		}
	}
	return out
}

// RoleNames lists the names of the given roles, deduplicated.
func RoleNames(roles []Role) []string {
	seen := make(map[string]struct{}, len(roles))
	var out []string
	for _, role := range roles {
		if _, ok := seen[role.Name]; ok {
			continue
		}
		seen[role.Name] = struct{}{}
		out = append(out, role.Name)
	}
	return out
}
