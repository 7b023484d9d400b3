package rbac

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/noticias/pkg/httputil"
)

// Handlers exposes read-only views of the permission model
type Handlers struct {
	validators *ValidatorRegistry
}

// NewHandlers creates RBAC handlers backed by validators
func NewHandlers(validators *ValidatorRegistry) *Handlers {
	if validators == nil {
		validators = NewValidatorRegistry()
	}
	return &Handlers{validators: validators}
}

// RegisterRoutes registers RBAC routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/permissions", h.GetPermissions).Methods("GET")
	router.HandleFunc("/api/roles", h.ListRoles).Methods("GET")
}

// PermissionsResponse is returned by GET /api/permissions
type PermissionsResponse struct {
	Role        string              `json:"role"`
	Permissions map[Permission]bool `json:"permissions"`
}

// GetPermissions handles GET /api/permissions. The role field echoes the
// header as sent; the permission row is that of the resolved role.
func (h *Handlers) GetPermissions(w http.ResponseWriter, r *http.Request) {
	claimed := r.Header.Get(HeaderUserRole)
	if claimed == "" {
		claimed = string(DefaultRole)
	}

	_ = httputil.WriteJSON(w, http.StatusOK, PermissionsResponse{
		Role:        claimed,
		Permissions: UserPermissions(claimed),
	})
}

// RoleInfo describes one role for GET /api/roles
type RoleInfo struct {
	Name        string          `json:"name"`
	Permissions []Permission    `json:"permissions"`
	Rules       ValidationRules `json:"validation_rules"`
}

// ListRoles handles GET /api/roles
func (h *Handlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	names := h.validators.AvailableRoles()
	roles := make([]RoleInfo, 0, len(names))
	for _, name := range names {
		roles = append(roles, RoleInfo{
			Name:        name,
			Permissions: PermissionsOf(name),
			Rules:       h.validators.For(name).Rules(),
		})
	}

	_ = httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"roles": roles,
	})
}
