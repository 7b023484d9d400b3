package news

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/noticias/pkg/httputil"
	"github.com/platinummonkey/noticias/pkg/rbac"
)

// Handlers serves the article endpoints
type Handlers struct {
	service *Service
	guard   *rbac.Guard
}

// NewHandlers creates article handlers
func NewHandlers(service *Service, guard *rbac.Guard) *Handlers {
	return &Handlers{
		service: service,
		guard:   guard,
	}
}

// RegisterRoutes registers article routes. Reads are public.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/news", h.ListArticles).Methods("GET")
	router.HandleFunc("/api/news/{id}", h.GetArticle).Methods("GET")

	create := h.guard.RequirePermission(rbac.PermissionCreate)
	edit := h.guard.RequirePermission(rbac.PermissionEdit)
	remove := h.guard.RequirePermission(rbac.PermissionDelete)

	router.Handle("/api/news", create(http.HandlerFunc(h.CreateArticle))).Methods("POST")
	router.Handle("/api/news/{id}", edit(http.HandlerFunc(h.UpdateArticle))).Methods("PUT")
	router.Handle("/api/news/{id}", remove(http.HandlerFunc(h.DeleteArticle))).Methods("DELETE")
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := IsValidationError(err); ok {
		httputil.WriteBadRequest(w, ve.Message)
		return
	}
	switch {
	case errors.Is(err, ErrMissingFields):
		httputil.WriteBadRequest(w, MsgMissingFields)
	case errors.Is(err, ErrEmptyUpdate):
		httputil.WriteBadRequest(w, MsgEmptyUpdate)
	case errors.Is(err, ErrNotAllowed):
		httputil.WriteErrorMessage(w, http.StatusForbidden, MsgNotAllowed)
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFound(w, MsgNotFound)
	default:
		httputil.WriteInternalError(w, r, err)
	}
}

// ListArticles handles GET /api/news?limit=&offset=
func (h *Handlers) ListArticles(w http.ResponseWriter, r *http.Request) {
	limit := httputil.ParseQueryInt(r, "limit", DefaultLimit)
	offset := httputil.ParseQueryInt(r, "offset", 0)

	list, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httputil.WriteJSON(w, http.StatusOK, list)
}

// GetArticle handles GET /api/news/{id}
func (h *Handlers) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id", MsgNotFound)
	if !ok {
		return
	}

	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httputil.WriteJSON(w, http.StatusOK, a)
}

// CreateArticle handles POST /api/news
func (h *Handlers) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	role := rbac.RoleFromContext(r.Context())
	a, err := h.service.Create(r.Context(), string(role), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	_ = httputil.WriteJSON(w, http.StatusCreated, ArticleResponse{
		Message: MsgCreated,
		Article: a,
	})
}

// UpdateArticle handles PUT /api/news/{id}
func (h *Handlers) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id", MsgNotFound)
	if !ok {
		return
	}

	var req UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	role := rbac.RoleFromContext(r.Context())
	a, err := h.service.Update(r.Context(), string(role), rbac.ActorFromRequest(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	_ = httputil.WriteJSON(w, http.StatusOK, ArticleResponse{
		Message: MsgUpdated,
		Article: a,
	})
}

// DeleteArticle handles DELETE /api/news/{id}
func (h *Handlers) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id", MsgNotFound)
	if !ok {
		return
	}

	role := rbac.RoleFromContext(r.Context())
	if err := h.service.Delete(r.Context(), string(role), rbac.ActorFromRequest(r), id); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, MsgDeleted)
}
