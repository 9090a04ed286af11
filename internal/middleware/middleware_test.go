package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"scriptorium/internal/domain"
	"scriptorium/internal/httputil"
	"scriptorium/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type stubResolver map[string]string

func (s stubResolver) ResolveActor(_ context.Context, token string) (string, error) {
	if actor, ok := s[token]; ok {
		return actor, nil
	}
	return "", domain.ErrUnauthorized
}

func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(httputil.GetActorID(r)))
	})
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(stubResolver{"good": "actor-1"})(echoActor())

	tests := []struct {
		name   string
		target string
		header string
		status int
		body   string
	}{
		{"bearer header", "/api/references", "Bearer good", http.StatusOK, "actor-1"},
		{"lowercase scheme", "/api/references", "bearer good", http.StatusOK, "actor-1"},
		{"query token", "/api/references/1/file?token=good", "", http.StatusOK, "actor-1"},
		{"missing token", "/api/references", "", http.StatusUnauthorized, ""},
		{"bad token", "/api/references", "Bearer bad", http.StatusUnauthorized, ""},
		{"health is public", "/health", "", http.StatusOK, ""},
		{"metrics is public", "/metrics", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	handler := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, logs.String(), "panic recovered")
	assert.Contains(t, logs.String(), "boom")
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	collector := metrics.NewCollector("test")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Metrics(collector)(mux)

	for _, id := range []string{"a", "b"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/documents/"+id, nil))
	}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(
		collector.HTTPRequests.WithLabelValues("GET", "GET /api/documents/{id}", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		collector.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestRequestLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, http.StatusInternalServerError, "failed")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Contains(t, logs.String(), `"level":"ERROR"`)
	assert.Contains(t, logs.String(), `"status":500`)

	logs.Reset()
	quiet := RequestLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))(echoActor())
	quiet.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Empty(t, logs.String())
}
