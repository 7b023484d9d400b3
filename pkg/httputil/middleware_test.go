package httputil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/platinummonkey/noticias/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := observability.NewLogger(observability.DebugLevel, &logs)

	var seen string
	handler := RequestIDMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.GetRequestID(r.Context())
		observability.GetLogger(r.Context()).Info("inside")
	}))

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))
		assert.Contains(t, logs.String(), seen)
	})

	t.Run("reuses valid incoming id", func(t *testing.T) {
		incoming := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, incoming)

		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, incoming, seen)
	})

	t.Run("replaces malformed incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "<script>")

		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.NotEqual(t, "<script>", seen)
	})
}

func TestLoggingMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := observability.NewLogger(observability.DebugLevel, &logs)

	handler := Chain(RequestIDMiddleware(logger), LoggingMiddleware)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/config", nil))
	assert.Contains(t, logs.String(), `"status":418`)
	assert.Contains(t, logs.String(), `"path":"/api/config"`)
}

func TestRecoveryMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &logs)

	handler := Chain(RequestIDMiddleware(logger), RecoveryMiddleware)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() { handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "nil map")
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("allowed origin", func(t *testing.T) {
		handler := CORSMiddleware([]string{"http://app.test"})(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://app.test")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-User-Role")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("other origin", func(t *testing.T) {
		handler := CORSMiddleware([]string{"http://app.test"})(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://evil.test")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short circuits", func(t *testing.T) {
		handler := CORSMiddleware([]string{"*"})(next)
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "http://any.test")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://any.test", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestMaxBytesMiddleware(t *testing.T) {
	handler := MaxBytesMiddleware(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var dest map[string]string
		if !ParseJSONOrError(w, r, &dest) {
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"bbbbbbbb"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.10"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		xff     string
		realIP  string
		trusted TrustedProxies
		want    string
	}{
		{name: "remote address only", remote: "10.0.0.5:51234", want: "10.0.0.5"},
		{name: "headers ignored without trusted proxies", remote: "203.0.113.7:1000", xff: "10.9.9.9", realIP: "192.0.2.9", want: "203.0.113.7"},
		{name: "headers ignored from untrusted peer", remote: "203.0.113.7:1000", xff: "198.51.100.1", trusted: trusted, want: "203.0.113.7"},
		{name: "forwarded for from trusted proxy", remote: "10.0.0.1:1000", xff: "203.0.113.9", trusted: trusted, want: "203.0.113.9"},
		{name: "rightmost untrusted hop wins", remote: "10.0.0.1:1000", xff: "1.2.3.4, 203.0.113.9, 10.0.0.2", trusted: trusted, want: "203.0.113.9"},
		{name: "garbage hop stops the walk", remote: "10.0.0.1:1000", xff: "evil, 10.0.0.2", trusted: trusted, want: "10.0.0.1"},
		{name: "real ip from trusted proxy", remote: "192.168.1.10:1000", realIP: "192.0.2.9", trusted: trusted, want: "192.0.2.9"},
		{name: "unparseable remote address", remote: "pipe", want: "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, ClientIP(req, tt.trusted))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{" 10.0.0.0/8 ", "", "::1"})
	require.NoError(t, err)
	assert.Len(t, trusted, 2)
	assert.True(t, trusted.Contains("10.20.30.40"))
	assert.True(t, trusted.Contains("::1"))
	assert.False(t, trusted.Contains("11.0.0.1"))
	assert.False(t, trusted.Contains("not-an-ip"))

	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}

func TestGzipMiddleware(t *testing.T) {
	gz, err := GzipMiddleware(64)
	require.NoError(t, err)
	payload := strings.Repeat(`{"titulo":"Semana de ciencias"}`, 20)
	handler := gz(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/short" {
			_, _ = w.Write([]byte("ok"))
			return
		}
		_, _ = w.Write([]byte(payload))
	}))

	t.Run("compressed when accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/full", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		body, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, payload, string(body))
	})

	t.Run("plain without accept encoding", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/full", nil))
		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, payload, w.Body.String())
	})

	t.Run("small bodies stay plain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/short", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, "ok", w.Body.String())
	})
}

func TestAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:5000", Addr("0.0.0.0", "5000"))
}
