package rbac

// NormalizeRole maps a caller supplied role string onto a built-in role.
// Empty and unrecognized values resolve to DefaultRole.
func NormalizeRole(role string) Role {
	r := Role(role)
	if r.IsKnown() {
		return r
	}
	return DefaultRole
}

// HasPermission reports whether role may perform permission. Unknown roles
// are treated as DefaultRole and unknown permissions are always denied.
func HasPermission(role string, permission string) bool {
	return rolePermissions[NormalizeRole(role)][Permission(permission)]
}

// Can is the typed form of HasPermission
func (r Role) Can(p Permission) bool {
	return rolePermissions[NormalizeRole(string(r))][p]
}

// UserPermissions returns the full permission row for role. The returned map
// is a fresh copy owned by the caller.
func UserPermissions(role string) map[Permission]bool {
	row := rolePermissions[NormalizeRole(role)]
	out := make(map[Permission]bool, len(row))
	for p, allowed := range row {
		out[p] = allowed
	}
	return out
}

// PermissionsOf returns the permissions granted to role, in table order
func PermissionsOf(role string) []Permission {
	row := rolePermissions[NormalizeRole(role)]
	granted := make([]Permission, 0, len(row))
	for _, p := range AllPermissions {
		if row[p] {
			granted = append(granted, p)
		}
	}
	return granted
}

// ValidRole reports whether role is a built-in role name, without fallback
func ValidRole(role string) bool {
	return Role(role).IsKnown()
}
