package news

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/noticias/pkg/httputil"
	"github.com/platinummonkey/noticias/pkg/rbac"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	svc, _, _ := newTestService(t)
	router := mux.NewRouter()
	NewHandlers(svc, rbac.NewGuard(nil, nil)).RegisterRoutes(router)
	return router
}

func do(t *testing.T, router http.Handler, method, path, role, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(rbac.HeaderUserRole, role)
	}
	if user != "" {
		req.Header.Set(rbac.HeaderUser, user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func createArticle(t *testing.T, router http.Handler, role, user string, req CreateRequest) *Article {
	t.Helper()
	w := do(t, router, http.MethodPost, "/api/news", role, user, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp ArticleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, MsgCreated, resp.Message)
	require.NotNil(t, resp.Article)
	return resp.Article
}

func TestCreateAndReadArticles(t *testing.T) {
	router := newTestRouter(t)

	a := createArticle(t, router, "admin", "ana", general("ana"))
	assert.Equal(t, "Titulo de prueba", a.Title)

	w := do(t, router, http.MethodGet, "/api/news", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "ana", list[0]["autor"])
	assert.Equal(t, "general", list[0]["tipo"])
	assert.IsType(t, "", list[0]["fecha"])
	assert.NotContains(t, list[0], "prioridad")

	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/news/%d", a.ID), "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got Article
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, a.ID, got.ID)
}

func TestListArticles_EmptyIsArray(t *testing.T) {
	router := newTestRouter(t)
	w := do(t, router, http.MethodGet, "/api/news?limit=abc&offset=-3", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetArticle_NotFound(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/api/news/999", "/api/news/abc"} {
		w := do(t, router, http.MethodGet, path, "", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, MsgNotFound, decodeError(t, w))
	}
}

func TestCreateArticle_Errors(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/news", "usuario", "ana", general("ana"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	var denied rbac.ForbiddenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &denied))
	assert.Equal(t, "create", denied.RequiredPermission)
	assert.Equal(t, "usuario", denied.UserRole)

	// no role header resolves to usuario
	w = do(t, router, http.MethodPost, "/api/news", "", "", general("ana"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, http.MethodPost, "/api/news", "admin", "ana", CreateRequest{Title: "Titulo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgMissingFields, decodeError(t, w))

	w = do(t, router, http.MethodPost, "/api/news", "admin", "ana", CreateRequest{
		Title: "Sin palabras clave", Body: longBody, Author: "ana", ImageURL: "https://cdn.test/a.png", Kind: "importante",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "palabras clave")

	req := httptest.NewRequest(http.MethodPost, "/api/news", bytes.NewBufferString("{bad"))
	req.Header.Set(rbac.HeaderUserRole, "admin")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateArticle(t *testing.T) {
	router := newTestRouter(t)
	a := createArticle(t, router, "maestro", "prof", general("prof"))
	path := fmt.Sprintf("/api/news/%d", a.ID)
	title := "Titulo corregido"

	// maestro lacks edit even on its own articles
	w := do(t, router, http.MethodPut, path, "maestro", "prof", UpdateRequest{Title: &title})
	require.Equal(t, http.StatusForbidden, w.Code)
	var denied rbac.ForbiddenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &denied))
	assert.Equal(t, rbac.MsgPermissionDenied, denied.Error)
	assert.Equal(t, "edit", denied.RequiredPermission)
	assert.Equal(t, "maestro", denied.UserRole)

	w = do(t, router, http.MethodPut, path, "usuario", "prof", UpdateRequest{Title: &title})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, http.MethodPut, path, "admin", "ana", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgEmptyUpdate, decodeError(t, w))

	w = do(t, router, http.MethodPut, path, "admin", "ana", UpdateRequest{Title: &title})
	require.Equal(t, http.StatusOK, w.Code)
	var resp ArticleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, MsgUpdated, resp.Message)
	assert.Equal(t, title, resp.Article.Title)
	assert.Equal(t, "prof", resp.Article.Author)

	w = do(t, router, http.MethodPut, "/api/news/999", "admin", "", UpdateRequest{Title: &title})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteArticle(t *testing.T) {
	router := newTestRouter(t)
	a := createArticle(t, router, "admin", "ana", general("ana"))
	path := fmt.Sprintf("/api/news/%d", a.ID)

	w := do(t, router, http.MethodDelete, path, "maestro", "prof", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, http.MethodDelete, path, "superadmin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msg httputil.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, MsgDeleted, msg.Message)

	w = do(t, router, http.MethodDelete, path, "superadmin", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
