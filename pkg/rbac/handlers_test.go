package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *mux.Router {
	router := mux.NewRouter()
	NewHandlers(nil).RegisterRoutes(router)
	return router
}

func TestRegisterRoutes(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/api/permissions", "/api/roles"} {
		var match mux.RouteMatch
		req := httptest.NewRequest(http.MethodGet, path, nil)
		assert.True(t, router.Match(req, &match), path)
	}
}

func TestGetPermissions(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name       string
		header     string
		wantRole   string
		wantCreate bool
		wantAdmins bool
	}{
		{"superadmin", "superadmin", "superadmin", true, true},
		{"maestro", "maestro", "maestro", true, false},
		{"no header", "", "usuario", false, false},
		{"unknown echoes header", "intruder", "intruder", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/permissions", nil)
			if tt.header != "" {
				req.Header.Set(HeaderUserRole, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)

			var resp PermissionsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantRole, resp.Role)
			assert.Len(t, resp.Permissions, 6)
			assert.True(t, resp.Permissions[PermissionView])
			assert.Equal(t, tt.wantCreate, resp.Permissions[PermissionCreate])
			assert.Equal(t, tt.wantAdmins, resp.Permissions[PermissionManageAdmins])
		})
	}
}

func TestListRoles(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/roles", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Roles []RoleInfo `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Roles, 4)

	byName := map[string]RoleInfo{}
	for _, r := range resp.Roles {
		byName[r.Name] = r
	}
	assert.Equal(t, 30, byName["maestro"].Rules.MinBodyLength)
	assert.Equal(t, []Permission{PermissionView}, byName["usuario"].Permissions)
	assert.Len(t, byName["superadmin"].Permissions, 6)
}
