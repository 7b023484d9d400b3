package users

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/noticias/pkg/httputil"
	"github.com/platinummonkey/noticias/pkg/rbac"
)

// Handlers serves the account endpoints
type Handlers struct {
	service   *Service
	guard     *rbac.Guard
	authLimit func(http.Handler) http.Handler
}

// NewHandlers creates user handlers. authLimit wraps login and register;
// nil leaves them unlimited.
func NewHandlers(service *Service, guard *rbac.Guard, authLimit func(http.Handler) http.Handler) *Handlers {
	if authLimit == nil {
		authLimit = func(next http.Handler) http.Handler { return next }
	}
	return &Handlers{
		service:   service,
		guard:     guard,
		authLimit: authLimit,
	}
}

// RegisterRoutes registers account routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/api/register", h.authLimit(http.HandlerFunc(h.Register))).Methods("POST")
	router.Handle("/api/login", h.authLimit(http.HandlerFunc(h.Login))).Methods("POST")

	admins := h.guard.RequirePermission(rbac.PermissionManageAdmins)
	router.Handle("/api/users", admins(http.HandlerFunc(h.ListUsers))).Methods("GET")
	router.Handle("/api/users", admins(http.HandlerFunc(h.CreateUser))).Methods("POST")
	router.Handle("/api/users/{id}", admins(http.HandlerFunc(h.UpdateUser))).Methods("PUT")
	router.Handle("/api/users/{id}", admins(http.HandlerFunc(h.DeleteUser))).Methods("DELETE")
}

// writeError maps service errors onto status codes
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		httputil.WriteBadRequest(w, MsgMissingCredentials)
	case errors.Is(err, ErrUserExists):
		httputil.WriteBadRequest(w, MsgUserExists)
	case errors.Is(err, ErrInvalidRole):
		httputil.WriteBadRequest(w, MsgInvalidRole())
	case errors.Is(err, ErrRoleRequired):
		httputil.WriteBadRequest(w, MsgRoleRequired)
	case errors.Is(err, ErrLastSuperadmin):
		httputil.WriteBadRequest(w, MsgLastSuperadmin)
	case errors.Is(err, ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, MsgInvalidCredentials)
	case errors.Is(err, ErrUserNotFound):
		httputil.WriteNotFound(w, MsgUserNotFound)
	default:
		httputil.WriteInternalError(w, r, err)
	}
}

// Register handles POST /api/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	u, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	_ = httputil.WriteJSON(w, http.StatusCreated, AccountResponse{
		Message:  MsgRegistered,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.Role,
	})
}

// Login handles POST /api/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if !httputil.ParseJSONOrError(w, r, &creds) {
		return
	}

	u, err := h.service.Authenticate(r.Context(), creds)
	if err != nil {
		writeError(w, r, err)
		return
	}

	_ = httputil.WriteJSON(w, http.StatusOK, AccountResponse{
		Message:  MsgLoginSuccess,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.EffectiveRole(),
	})
}

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httputil.WriteJSON(w, http.StatusOK, list)
}

// CreateUser handles POST /api/users
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	u, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	_ = httputil.WriteJSON(w, http.StatusCreated, AccountResponse{
		Message:  MsgCreated,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.Role,
	})
}

// UpdateUser handles PUT /api/users/{id}. Only the role can change.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id", MsgUserNotFound)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	u, err := h.service.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	_ = httputil.WriteJSON(w, http.StatusOK, UserUpdatedResponse{
		Message: MsgRoleUpdated,
		User:    u,
	})
}

// DeleteUser handles DELETE /api/users/{id}
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id", MsgUserNotFound)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, MsgDeleted)
}
