package rbac

import (
	"context"
	"net/http"

	"github.com/platinummonkey/noticias/pkg/contextkeys"
	"github.com/platinummonkey/noticias/pkg/httputil"
	"github.com/platinummonkey/noticias/pkg/observability"
)

// Request headers carrying the caller's identity. Neither is signed; any
// client may claim any role.
const (
	HeaderUserRole = "X-User-Role"
	HeaderUser     = "X-User"
)

// DenialRecorder receives one call per rejected request
type DenialRecorder interface {
	RecordDenial(role, required string)
}

// Guard wraps handlers with role and permission checks
type Guard struct {
	logger   *observability.Logger
	recorder DenialRecorder
}

// NewGuard creates a guard. recorder may be nil.
func NewGuard(logger *observability.Logger, recorder DenialRecorder) *Guard {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Guard{
		logger:   logger,
		recorder: recorder,
	}
}

// RequirePermission returns middleware that only calls next when the caller's
// role grants permission. Denied requests get a 403 ForbiddenResponse and
// next is never invoked.
func (g *Guard) RequirePermission(permission Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromRequest(r)

			if !role.Can(permission) {
				g.deny(r, role, string(permission))
				httputil.WriteJSON(w, http.StatusForbidden, ForbiddenResponse{
					Error:              MsgPermissionDenied,
					RequiredPermission: string(permission),
					UserRole:           string(role),
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithRole(r.Context(), role)))
		})
	}
}

// deny logs at warn level; a denial is expected traffic, not a fault
func (g *Guard) deny(r *http.Request, role Role, required string) {
	observability.FromContextOr(r.Context(), g.logger).WithFields(map[string]interface{}{
		"user_role": string(role),
		"required":  required,
		"path":      r.URL.Path,
		"method":    r.Method,
	}).Warn("Access denied")

	if g.recorder != nil {
		g.recorder.RecordDenial(string(role), required)
	}
}

// RoleFromRequest resolves the caller's role from the X-User-Role header.
// A missing header yields DefaultRole.
func RoleFromRequest(r *http.Request) Role {
	return NormalizeRole(r.Header.Get(HeaderUserRole))
}

// ActorFromRequest returns the username claimed in the X-User header
func ActorFromRequest(r *http.Request) string {
	return r.Header.Get(HeaderUser)
}

// WithRole stores the resolved role in ctx
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, contextkeys.RoleKey, role)
}

// RoleFromContext returns the role stored by a guard, or DefaultRole
func RoleFromContext(ctx context.Context) Role {
	if role, ok := ctx.Value(contextkeys.RoleKey).(Role); ok {
		return role
	}
	return DefaultRole
}
