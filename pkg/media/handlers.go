package media

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/noticias/pkg/config"
	"github.com/platinummonkey/noticias/pkg/httputil"
	"github.com/platinummonkey/noticias/pkg/observability"
	"github.com/platinummonkey/noticias/pkg/rbac"
)

// multipart overhead allowed on top of the file size limit
const formSlack = 1 << 20

// Handlers serves image upload and storage status
type Handlers struct {
	store   ObjectStore
	guard   *rbac.Guard
	cfg     config.UploadConfig
	allowed map[string]bool
	metrics *observability.Metrics
}

// NewHandlers creates media handlers. store may be nil, in which case
// uploads fail with ErrStorageNotConfigured.
func NewHandlers(store ObjectStore, guard *rbac.Guard, cfg config.UploadConfig, metrics *observability.Metrics) *Handlers {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Handlers{
		store:   store,
		guard:   guard,
		cfg:     cfg,
		allowed: allowed,
		metrics: metrics,
	}
}

// RegisterRoutes registers media routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	create := h.guard.RequirePermission(rbac.PermissionCreate)
	router.Handle("/api/upload", create(http.HandlerFunc(h.Upload))).Methods("POST")
	router.HandleFunc("/api/storage-status", h.Status).Methods("GET")
}

func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func (h *Handlers) reject(w http.ResponseWriter, status int, message string) {
	h.metrics.RecordUpload("rejected", 0)
	httputil.WriteErrorMessage(w, status, message)
}

// Upload handles POST /api/upload
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())

	if h.store == nil {
		logger.WithError(ErrStorageNotConfigured).Error("Image upload attempted without object storage")
		h.reject(w, http.StatusInternalServerError, MsgStorageNotConfigured)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBytes+formSlack)
	if err := r.ParseMultipartForm(h.cfg.MaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, http.StatusBadRequest, msgTooLarge(h.cfg.MaxBytes))
			return
		}
		h.reject(w, http.StatusBadRequest, MsgNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(FormField)
	if err != nil {
		h.reject(w, http.StatusBadRequest, MsgNoFile)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.reject(w, http.StatusBadRequest, MsgNoFileSelected)
		return
	}

	ext := extension(header.Filename)
	if !h.allowed[ext] {
		h.reject(w, http.StatusBadRequest, msgExtension(h.cfg.AllowedExtensions))
		return
	}
	if header.Size > h.cfg.MaxBytes {
		h.reject(w, http.StatusBadRequest, msgTooLarge(h.cfg.MaxBytes))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.metrics.RecordUpload("error", 0)
		httputil.WriteInternalError(w, r, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension("." + ext); byExt != "" {
			contentType = byExt
		}
	}

	key := KeyPrefix + uuid.NewString() + "." + ext
	logger = logger.WithFields(map[string]interface{}{
		"key":    key,
		"bucket": h.store.Bucket(),
		"size":   len(data),
	})

	if err := h.store.PutObject(r.Context(), key, data, contentType); err != nil {
		logger.WithError(err).Error("Failed to upload image")
		h.metrics.RecordUpload("error", 0)
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, MsgUploadFailed)
		return
	}

	h.metrics.RecordUpload("success", int64(len(data)))
	logger.Info("Image uploaded")
	_ = httputil.WriteJSON(w, http.StatusOK, UploadResponse{URL: h.store.PublicURL(key)})
}

// Status handles GET /api/storage-status
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		_ = httputil.WriteJSON(w, http.StatusOK, StatusResponse{})
		return
	}
	_ = httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Initialized: true,
		Bucket:      h.store.Bucket(),
		Endpoint:    h.store.Endpoint(),
	})
}
