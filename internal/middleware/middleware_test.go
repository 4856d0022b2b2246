package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"listing-admin-api/internal/cache"
	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/model"
	"listing-admin-api/internal/service"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func newTokenService(t *testing.T) *service.TokenService {
	t.Helper()
	c := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { c.Close() })
	return service.NewTokenService(c, logger.NewNop())
}

func TestAuthMiddleware(t *testing.T) {
	tokens := newTokenService(t)
	token, err := tokens.GenerateToken(context.Background(), model.TokenData{AdminID: 3, Email: "ops@example.com"})
	require.NoError(t, err)

	var seen *model.TokenData
	h := NewAuthMiddleware(AuthConfig{
		TokenService: tokens,
		APIKeys:      []string{"k1", "k2"},
		LoginKey:     "dash",
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTokenDataFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name    string
		method  string
		path    string
		headers map[string]string
		want    int
	}{
		{"health is public", http.MethodGet, "/api/v1/health", nil, http.StatusOK},
		{"login is public", http.MethodPost, "/api/v1/auth/token", nil, http.StatusOK},
		{"token GET is not public", http.MethodGet, "/api/v1/auth/token", nil, http.StatusUnauthorized},
		{"no credentials", http.MethodGet, "/api/v1/listings", nil, http.StatusUnauthorized},
		{"api key", http.MethodGet, "/api/v1/listings", map[string]string{"X-API-Key": "k2"}, http.StatusOK},
		{"bearer key", http.MethodGet, "/api/v1/listings", map[string]string{"Authorization": "Bearer k1"}, http.StatusOK},
		{"wrong key", http.MethodGet, "/api/v1/listings", map[string]string{"X-API-Key": "zzz"}, http.StatusUnauthorized},
		{"login key", http.MethodGet, "/api/v1/admin/stats", map[string]string{"X-Login-Key": "dash"}, http.StatusOK},
		{"wrong login key", http.MethodGet, "/api/v1/admin/stats", map[string]string{"X-Login-Key": "x"}, http.StatusUnauthorized},
		{"session token", http.MethodGet, "/api/v1/listings", map[string]string{"X-Token": token}, http.StatusOK},
		{"bad session token", http.MethodGet, "/api/v1/listings", map[string]string{"X-Token": "lah_nope"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil)
	req.Header.Set("X-Token", token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, "ops@example.com", seen.Email)
}

func TestRequestID(t *testing.T) {
	var fromCtx string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, fromCtx)
	assert.Equal(t, fromCtx, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "given", rec.Header().Get("X-Request-ID"))
}

func TestRecoveryAndLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromZap(zap.New(core))

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	h := NewLogging(log)(NewRecovery(log)(panicking))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())

	failed := logs.FilterMessage("request failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, int64(http.StatusInternalServerError), failed[0].ContextMap()["status"])

	NewLogging(log)(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 1, logs.FilterMessage("request").Len())
}
