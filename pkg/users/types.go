package users

import (
	"errors"
	"strings"

	"github.com/platinummonkey/noticias/pkg/rbac"
	"github.com/platinummonkey/noticias/pkg/storage"
)

// User is an account. The password hash never leaves the server.
type User struct {
	ID           int64             `json:"id"`
	Username     string            `json:"usuario"`
	Name         string            `json:"nombre"`
	Email        string            `json:"email"`
	Role         string            `json:"rol"`
	CreatedAt    storage.Timestamp `json:"fecha_creacion"`
	PasswordHash string            `json:"-"`
}

// EffectiveRole returns the stored role, or usuario when it is empty
func (u *User) EffectiveRole() string {
	if u.Role == "" {
		return string(rbac.DefaultRole)
	}
	return u.Role
}

// RegisterRequest is the body of POST /api/register
type RegisterRequest struct {
	Username string `json:"usuario"`
	Password string `json:"password"`
	Name     string `json:"nombre"`
	Email    string `json:"email"`
}

// CreateUserRequest is the body of POST /api/users
type CreateUserRequest struct {
	Username string `json:"usuario"`
	Password string `json:"password"`
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Role     string `json:"rol"`
}

// Credentials is the body of POST /api/login
type Credentials struct {
	Username string `json:"usuario"`
	Password string `json:"password"`
}

// UpdateRoleRequest is the body of PUT /api/users/{id}. A nil Role means
// the field was absent.
type UpdateRoleRequest struct {
	Role *string `json:"rol"`
}

// AccountResponse is returned by login, register and user creation
type AccountResponse struct {
	Message  string `json:"mensaje"`
	Username string `json:"usuario"`
	Name     string `json:"nombre"`
	Role     string `json:"rol"`
}

// UserUpdatedResponse is returned by a role change
type UserUpdatedResponse struct {
	Message string `json:"mensaje"`
	User    *User  `json:"usuario"`
}

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
	ErrRoleRequired       = errors.New("role is required")
	ErrLastSuperadmin     = errors.New("cannot delete the last superadmin")
)

// Messages returned to clients
const (
	MsgMissingCredentials = "Usuario y contraseña requeridos"
	MsgUserExists         = "El usuario ya existe"
	MsgUserNotFound       = "Usuario no encontrado"
	MsgInvalidCredentials = "Credenciales incorrectas"
	MsgRoleRequired       = "Debe proporcionar un rol para actualizar"
	MsgLastSuperadmin     = "No se puede eliminar el último superadmin del sistema"

	MsgRegistered   = "Usuario registrado exitosamente"
	MsgCreated      = "Usuario creado exitosamente"
	MsgRoleUpdated  = "Rol actualizado exitosamente"
	MsgDeleted      = "Usuario eliminado exitosamente"
	MsgLoginSuccess = "Inicio de sesión exitoso"
)

// MsgInvalidRole lists the roles a client may assign
func MsgInvalidRole() string {
	names := make([]string, len(rbac.AllRoles))
	for i, role := range rbac.AllRoles {
		names[i] = string(role)
	}
	return "Rol inválido. Roles permitidos: " + strings.Join(names, ", ")
}
