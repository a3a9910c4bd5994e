package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"virtualexpo/internal/delivery/http/controllers"
	"virtualexpo/internal/domain"

	"github.com/stretchr/testify/assert"
)

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (domain.Principal, error) {
	switch token {
	case "admin":
		return domain.Principal{UserID: "admin-1", Roles: []string{domain.RoleAdmin}}, nil
	case "viewer":
		return domain.Principal{UserID: "viewer-1"}, nil
	}
	return domain.Principal{}, domain.ErrUnauthorized
}

type stubEvents struct{ domain.EventLifecycleService }

func (stubEvents) ForceStart(_ context.Context, eventID, _ string) (*domain.Event, error) {
	return &domain.Event{ID: eventID, State: domain.EventStateLive}, nil
}

type stubSessions struct{ domain.SessionLifecycleService }

func (stubSessions) ListSessions(context.Context, string, domain.PaginationParams) ([]*domain.Session, int, error) {
	return []*domain.Session{}, 0, nil
}

func TestNewRouter_Authorization(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := NewRouter(
		controllers.NewLifecycleController(logger, stubEvents{}),
		controllers.NewSessionController(logger, stubSessions{}),
		stubVerifier{}, logger,
	)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"admin can force start", http.MethodPost, "/admin/events/ev-1/force-start", "admin", http.StatusOK},
		{"viewer cannot force start", http.MethodPost, "/admin/events/ev-1/force-start", "viewer", http.StatusForbidden},
		{"anonymous cannot force start", http.MethodPost, "/admin/events/ev-1/force-start", "", http.StatusUnauthorized},
		{"viewer can list sessions", http.MethodGet, "/events/ev-1/sessions", "viewer", http.StatusOK},
		{"anonymous cannot list sessions", http.MethodGet, "/events/ev-1/sessions", "", http.StatusUnauthorized},
		{"wrong method", http.MethodGet, "/admin/events/ev-1/force-start", "admin", http.StatusMethodNotAllowed},
		{"health", http.MethodGet, "/healthz", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
