package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdpetition/crowdpetition/internal/api/middleware"
	"github.com/crowdpetition/crowdpetition/internal/auth"
)

type mockResolver struct {
	resolveFn func(ctx context.Context, token string) (*auth.Identity, error)
}

func (m *mockResolver) ResolveCaller(ctx context.Context, token string) (*auth.Identity, error) {
	return m.resolveFn(ctx, token)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	errObj, ok := env["error"].(map[string]interface{})
	require.True(t, ok, "expected error object")
	return errObj["code"].(string)
}

// --- RequestID ---

func TestRequestID_GeneratesNewID(t *testing.T) {
	var capturedID string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = middleware.GetRequestID(r.Context())
	}))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := uuid.Parse(capturedID)
	assert.NoError(t, err)
	assert.Equal(t, capturedID, w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReusesIncomingHeader(t *testing.T) {
	var capturedID string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = middleware.GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "trace-abc-123")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, "trace-abc-123", capturedID)
	assert.Equal(t, "trace-abc-123", w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesMalformedHeader(t *testing.T) {
	for _, bad := range []string{strings.Repeat("x", 200), "has space", "tab\there"} {
		var capturedID string
		handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedID = middleware.GetRequestID(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", bad)

		handler.ServeHTTP(httptest.NewRecorder(), req)

		_, err := uuid.Parse(capturedID)
		assert.NoError(t, err, "header %q should be replaced", bad)
	}
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	assert.Empty(t, middleware.GetRequestID(context.Background()))
}

// --- Recovery ---

func TestRecovery_PanicReturns500(t *testing.T) {
	handler := middleware.RequestID(middleware.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/petitions", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
}

func TestRecovery_PassesThrough(t *testing.T) {
	handler := middleware.Recovery(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}

// --- Authenticate / RequireAuth ---

func TestAuthenticate_ResolvesToken(t *testing.T) {
	resolver := &mockResolver{resolveFn: func(_ context.Context, token string) (*auth.Identity, error) {
		assert.Equal(t, "tok-1", token)
		return &auth.Identity{UserID: 9, Token: token}, nil
	}}

	var got *auth.Identity
	handler := middleware.Authenticate(resolver)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = middleware.GetIdentity(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.AuthHeader, "tok-1")

	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, int64(9), got.UserID)
}

func TestAuthenticate_AnonymousPassesThrough(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"unknown token", "stale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mockResolver{resolveFn: func(context.Context, string) (*auth.Identity, error) {
				return nil, nil
			}}

			called := false
			handler := middleware.Authenticate(resolver)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				called = true
				assert.Nil(t, middleware.GetIdentity(r.Context()))
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(middleware.AuthHeader, tt.header)
			}

			handler.ServeHTTP(httptest.NewRecorder(), req)
			assert.True(t, called)
		})
	}
}

func TestAuthenticate_StoreFailureIs500(t *testing.T) {
	resolver := &mockResolver{resolveFn: func(context.Context, string) (*auth.Identity, error) {
		return nil, errors.New("redis down")
	}}
	handler := middleware.Authenticate(resolver)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.AuthHeader, "tok")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
}

func TestRequireAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := middleware.RequireAuth(ok)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/petitions", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	req := httptest.NewRequest(http.MethodPost, "/petitions", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), &auth.Identity{UserID: 1}))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
