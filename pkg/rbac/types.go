package rbac

// Role is the authorization level carried by a caller
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleMaestro    Role = "maestro"
	RoleUsuario    Role = "usuario"
)

// DefaultRole is the least privileged role and the fallback for unknown values
const DefaultRole = RoleUsuario

// String returns the wire name of the role
func (r Role) String() string {
	return string(r)
}

// IsKnown reports whether r is one of the built-in roles
func (r Role) IsKnown() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permission is a named capability gated per role
type Permission string

const (
	PermissionView         Permission = "view"
	PermissionCreate       Permission = "create"
	PermissionEdit         Permission = "edit"
	PermissionDelete       Permission = "delete"
	PermissionManageUsers  Permission = "manage_users"
	PermissionManageAdmins Permission = "manage_admins"
)

// String returns the wire name of the permission
func (p Permission) String() string {
	return string(p)
}

// AllRoles lists the built-in roles from most to least privileged
var AllRoles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleMaestro,
	RoleUsuario,
}

// AllPermissions lists every permission in table order
var AllPermissions = []Permission{
	PermissionView,
	PermissionCreate,
	PermissionEdit,
	PermissionDelete,
	PermissionManageUsers,
	PermissionManageAdmins,
}

// permissionSet is one row of the permission table
type permissionSet map[Permission]bool

// rolePermissions is the compiled-in permission table. It is never written
// after package initialization, so concurrent reads need no locking.
var rolePermissions = map[Role]permissionSet{
	RoleSuperAdmin: {
		PermissionView:         true,
		PermissionCreate:       true,
		PermissionEdit:         true,
		PermissionDelete:       true,
		PermissionManageUsers:  true,
		PermissionManageAdmins: true,
	},
	RoleAdmin: {
		PermissionView:         true,
		PermissionCreate:       true,
		PermissionEdit:         true,
		PermissionDelete:       true,
		PermissionManageUsers:  false,
		PermissionManageAdmins: false,
	},
	RoleMaestro: {
		PermissionView:         true,
		PermissionCreate:       true,
		PermissionEdit:         false,
		PermissionDelete:       false,
		PermissionManageUsers:  false,
		PermissionManageAdmins: false,
	},
	RoleUsuario: {
		PermissionView:         true,
		PermissionCreate:       false,
		PermissionEdit:         false,
		PermissionDelete:       false,
		PermissionManageUsers:  false,
		PermissionManageAdmins: false,
	},
}

// ForbiddenResponse is the body written when a guard rejects a request
type ForbiddenResponse struct {
	Error              string `json:"error"`
	RequiredPermission string `json:"required_permission,omitempty"`
	UserRole           string `json:"user_role"`
}

// MsgPermissionDenied is returned to denied callers
const MsgPermissionDenied = "No tienes permisos para realizar esta acción"
