package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platinummonkey/noticias/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusCreated, map[string]int{"id": 7}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, float64(7), decodeBody(t, rec)["id"])
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "m") }, http.StatusBadRequest},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "m") }, http.StatusUnauthorized},
		{"not found", func(w http.ResponseWriter) { WriteNotFound(w, "m") }, http.StatusNotFound},
		{"too many", func(w http.ResponseWriter) { WriteTooManyRequests(w, "m") }, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, map[string]interface{}{"error": "m"}, decodeBody(t, rec))
		})
	}
}

func TestWriteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteMessage(rec, http.StatusOK, "Noticia eliminada exitosamente")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Noticia eliminada exitosamente", decodeBody(t, rec)["mensaje"])
}

func TestWriteInternalError_HidesCause(t *testing.T) {
	var logs bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &logs)

	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	req = req.WithContext(observability.WithLogger(req.Context(), logger))
	rec := httptest.NewRecorder()

	WriteInternalError(rec, req, errors.New("pq: relation \"news\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgInternalError, decodeBody(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "relation")
	assert.Contains(t, logs.String(), "relation")
}
