package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"treelof-api/internal/auth"
	"treelof-api/internal/logger"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTrustStoresDecision(t *testing.T) {
	checker := auth.NewTrustChecker([]string{"https://treelof.com"}, nil)

	var seen []bool
	h := Trust(checker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, IsTrusted(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/revisions", nil)
	req.Header.Set("Origin", "https://treelof.com")
	h.ServeHTTP(httptest.NewRecorder(), req)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/revisions", nil))

	assert.Equal(t, []bool{true, false}, seen)
}

func TestIsTrustedDefaultsToFalse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, IsTrusted(req.Context()))
	assert.True(t, IsTrusted(WithTrust(req.Context(), true)))
}

func TestPanicRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := PanicRecovery(logger.NewFromZap(zap.New(core)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plants", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal","message":"Internal server error"}`, rec.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "panic recovered", logs.All()[0].Message)
}

func TestRequestLoggerAssignsID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var inner string
	h := RequestLogger(logger.NewFromZap(zap.New(core)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = GetRequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/revisions", nil))

	require.NotEmpty(t, inner)
	assert.Equal(t, inner, rec.Header().Get("X-Request-ID"))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(http.StatusCreated), fields["status"])
	assert.Equal(t, "/revisions", fields["path"])
}

func TestRequestLoggerKeepsIncomingID(t *testing.T) {
	h := RequestLogger(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/plants", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestRequestLoggerSkipsHealth(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(logger.NewFromZap(zap.New(core)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, 0, logs.Len())
}

func TestRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	var got string
	r.HandleFunc("/plants/{id}", func(w http.ResponseWriter, req *http.Request) {
		got = routeTemplate(req)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plants/42", nil))
	assert.Equal(t, "/plants/{id}", got)

	assert.Equal(t, "unmatched", routeTemplate(httptest.NewRequest(http.MethodGet, "/x", nil)))
}
