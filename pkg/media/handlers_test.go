package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/noticias/pkg/config"
	"github.com/platinummonkey/noticias/pkg/httputil"
	"github.com/platinummonkey/noticias/pkg/observability"
	"github.com/platinummonkey/noticias/pkg/rbac"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) PutObject(_ context.Context, key string, data []byte, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryStore) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) PublicURL(key string) string { return "https://cdn.test/imagenes/" + key }

func (m *memoryStore) KeyFromURL(url string) (string, bool) {
	key := strings.TrimPrefix(url, "https://cdn.test/imagenes/")
	return key, key != url
}

func (m *memoryStore) HealthCheck(context.Context) error { return nil }
func (m *memoryStore) Bucket() string                    { return "imagenes" }
func (m *memoryStore) Endpoint() string                  { return "http://minio:9000" }

func uploadConfig() config.UploadConfig {
	return config.Default().Upload
}

func newTestRouter(store ObjectStore, cfg config.UploadConfig, metrics *observability.Metrics) *mux.Router {
	router := mux.NewRouter()
	NewHandlers(store, rbac.NewGuard(nil, nil), cfg, metrics).RegisterRoutes(router)
	return router
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(rbac.HeaderUserRole, "maestro")
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestUpload_Success(t *testing.T) {
	store := newMemoryStore()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	router := newTestRouter(store, uploadConfig(), metrics)

	w := serve(router, multipartRequest(t, FormField, "Foto.PNG", []byte("png-bytes")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	key, ok := store.KeyFromURL(resp.URL)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(key, KeyPrefix))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(key, KeyPrefix), ".png"), 36)
	assert.Equal(t, []byte("png-bytes"), store.objects[key])
	assert.Equal(t, "image/png", store.types[key])

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues("success")))
}

func TestUpload_Rejections(t *testing.T) {
	cfg := uploadConfig()
	cfg.MaxBytes = 1024
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	router := newTestRouter(newMemoryStore(), cfg, metrics)

	tests := []struct {
		name     string
		req      *http.Request
		status   int
		contains string
	}{
		{"wrong field", multipartRequest(t, "archivo", "a.png", []byte("x")), http.StatusBadRequest, MsgNoFile},
		{"empty filename", multipartRequest(t, FormField, "", []byte("x")), http.StatusBadRequest, MsgNoFile},
		{"bad extension", multipartRequest(t, FormField, "script.exe", []byte("x")), http.StatusBadRequest,
			"Solo se aceptan PNG, JPG, JPEG, GIF y WEBP."},
		{"no extension", multipartRequest(t, FormField, "imagen", []byte("x")), http.StatusBadRequest, "Tipo de archivo no permitido"},
		{"too large", multipartRequest(t, FormField, "big.jpg", bytes.Repeat([]byte("a"), 2048)), http.StatusBadRequest,
			"Máximo permitido: 0MB."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.req)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, errorOf(t, w), tt.contains)
		})
	}

	notMultipart := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("{}"))
	notMultipart.Header.Set("Content-Type", "application/json")
	notMultipart.Header.Set(rbac.HeaderUserRole, "admin")
	w := serve(router, notMultipart)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgNoFile, errorOf(t, w))

	assert.Equal(t, float64(len(tests)+1), testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues("rejected")))
}

func TestUpload_RequiresCreatePermission(t *testing.T) {
	router := newTestRouter(newMemoryStore(), uploadConfig(), nil)

	req := multipartRequest(t, FormField, "a.png", []byte("x"))
	req.Header.Set(rbac.HeaderUserRole, "usuario")
	w := serve(router, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpload_StorageNotConfigured(t *testing.T) {
	router := newTestRouter(nil, uploadConfig(), nil)

	w := serve(router, multipartRequest(t, FormField, "a.png", []byte("x")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, MsgStorageNotConfigured, errorOf(t, w))
}

func TestUpload_StoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.putErr = errors.New("access denied")
	router := newTestRouter(store, uploadConfig(), nil)

	w := serve(router, multipartRequest(t, FormField, "a.webp", []byte("x")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, MsgUploadFailed, errorOf(t, w))
}

func TestStatus(t *testing.T) {
	w := serve(newTestRouter(nil, uploadConfig(), nil), httptest.NewRequest(http.MethodGet, "/api/storage-status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"initialized": false, "bucket": "", "endpoint": ""}`, w.Body.String())

	w = serve(newTestRouter(newMemoryStore(), uploadConfig(), nil), httptest.NewRequest(http.MethodGet, "/api/storage-status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"initialized": true, "bucket": "imagenes", "endpoint": "http://minio:9000"}`, w.Body.String())
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Tipo de archivo no permitido. Solo se aceptan PNG.", msgExtension([]string{"png"}))
	assert.Equal(t, "El archivo es demasiado grande. Máximo permitido: 10MB.", msgTooLarge(10<<20))
}
