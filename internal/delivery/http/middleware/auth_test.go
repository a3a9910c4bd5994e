package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"virtualexpo/internal/delivery/http/helpers"
	"virtualexpo/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenVerifier implements domain.TokenVerifier for tests.
type fakeTokenVerifier struct {
	principal domain.Principal
	err       error
}

func (f *fakeTokenVerifier) Verify(_ string) (domain.Principal, error) {
	if f.err != nil {
		return domain.Principal{}, f.err
	}
	return f.principal, nil
}

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

func decodeErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	require.NotNil(t, envelope.Error)
	return envelope.Error.Code
}

func TestRequireAuth(t *testing.T) {
	operator := domain.Principal{UserID: "user-123", Roles: []string{"operator"}}

	tests := []struct {
		name          string
		authHeader    string
		verifier      domain.TokenVerifier
		wantStatus    int
		wantBodyCode  string
		nextCalled    bool
		wantContextID string
	}{
		{
			name:          "valid token sets context and calls next",
			authHeader:    "Bearer valid-token",
			verifier:      &fakeTokenVerifier{principal: operator},
			wantStatus:    http.StatusOK,
			nextCalled:    true,
			wantContextID: "user-123",
		},
		{
			name:         "missing authorization header",
			verifier:     &fakeTokenVerifier{principal: operator},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "invalid authorization format no Bearer prefix",
			authHeader:   "Basic abc",
			verifier:     &fakeTokenVerifier{principal: operator},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "empty token after Bearer",
			authHeader:   "Bearer ",
			verifier:     &fakeTokenVerifier{principal: operator},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "verifier returns error",
			authHeader:   "Bearer bad-token",
			verifier:     &fakeTokenVerifier{err: errors.New("token is expired")},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			var capturedUserID string
			next := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				if id, ok := UserIDFromContext(r.Context()); ok {
					capturedUserID = id
				}
				w.WriteHeader(http.StatusOK)
			}
			handler := RequireAuth(tt.verifier, testLogger)(next)

			req := httptest.NewRequest(http.MethodGet, "http://test/events/ev-1/sessions", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			handler(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			assert.Equal(t, tt.nextCalled, nextCalled, "next handler called")
			if tt.nextCalled {
				assert.Equal(t, tt.wantContextID, capturedUserID, "user ID in context")
			}
			if tt.wantBodyCode != "" {
				assert.Equal(t, tt.wantBodyCode, decodeErrorCode(t, rr))
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		principal  domain.Principal
		wantStatus int
		wantCode   string
	}{
		{"admin passes", domain.Principal{UserID: "admin-1", Roles: []string{"operator", domain.RoleAdmin}}, http.StatusOK, ""},
		{"operator is forbidden", domain.Principal{UserID: "op-1", Roles: []string{"operator"}}, http.StatusForbidden, helpers.ErrCodeForbidden},
		{"no roles is forbidden", domain.Principal{UserID: "op-2"}, http.StatusForbidden, helpers.ErrCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.Principal
			handler := RequireAdmin(&fakeTokenVerifier{principal: tt.principal}, testLogger)(func(w http.ResponseWriter, r *http.Request) {
				got, _ = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodPost, "http://test/admin/events/ev-1/force-start", nil)
			req.Header.Set("Authorization", "Bearer token")
			rr := httptest.NewRecorder()

			handler(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeErrorCode(t, rr))
				return
			}
			assert.Equal(t, tt.principal.UserID, got.UserID)
		})
	}

	t.Run("unauthenticated is 401 not 403", func(t *testing.T) {
		handler := RequireAdmin(&fakeTokenVerifier{}, testLogger)(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next must not run")
		})
		rr := httptest.NewRecorder()
		handler(rr, httptest.NewRequest(http.MethodPost, "http://test/admin/events/ev-1/force-start", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://test/", nil)
	_, ok := UserIDFromContext(req.Context())
	assert.False(t, ok)
}
