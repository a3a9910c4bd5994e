package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"virtualexpo/internal/delivery/http/helpers"
	"virtualexpo/internal/delivery/http/middleware"
	"virtualexpo/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeLifecycleService implements domain.EventLifecycleService for handler tests.
type fakeLifecycleService struct {
	result        *domain.Event
	err           error
	lastAction    string
	lastEventID   string
	lastActorID   string
	autoAdvanceAt time.Time
}

func (f *fakeLifecycleService) AutoAdvance(_ context.Context, now time.Time) (*domain.EventAdvanceResult, error) {
	f.autoAdvanceAt = now
	return &domain.EventAdvanceResult{}, nil
}

func (f *fakeLifecycleService) ForceStart(_ context.Context, eventID, actorID string) (*domain.Event, error) {
	f.lastAction, f.lastEventID, f.lastActorID = "start", eventID, actorID
	return f.result, f.err
}

func (f *fakeLifecycleService) ForceClose(_ context.Context, eventID, actorID string) (*domain.Event, error) {
	f.lastAction, f.lastEventID, f.lastActorID = "close", eventID, actorID
	return f.result, f.err
}

// fakeSessionService implements domain.SessionLifecycleService for handler tests.
type fakeSessionService struct {
	createResult *domain.Session
	createErr    error
	lastCreate   domain.CreateSessionInput
	lastEventID  string
	lastActorID  string

	syncResult []*domain.Session
	syncErr    error

	transitionResult *domain.Session
	transitionErr    error
	lastTransition   string
	lastSessionID    string

	listResult []*domain.Session
	listTotal  int
	listErr    error
	lastPage   domain.PaginationParams

	live    *bool
	liveErr error
}

func (f *fakeSessionService) Create(_ context.Context, eventID string, in domain.CreateSessionInput, actorID string) (*domain.Session, error) {
	f.lastEventID, f.lastCreate, f.lastActorID = eventID, in, actorID
	return f.createResult, f.createErr
}

func (f *fakeSessionService) StartSession(_ context.Context, sessionID, actorID string) (*domain.Session, error) {
	f.lastTransition, f.lastSessionID, f.lastActorID = "start", sessionID, actorID
	return f.transitionResult, f.transitionErr
}

func (f *fakeSessionService) EndSession(_ context.Context, sessionID, actorID string) (*domain.Session, error) {
	f.lastTransition, f.lastSessionID, f.lastActorID = "end", sessionID, actorID
	return f.transitionResult, f.transitionErr
}

func (f *fakeSessionService) AutoAdvance(context.Context, time.Time) (*domain.SessionAdvanceResult, error) {
	return &domain.SessionAdvanceResult{}, nil
}

func (f *fakeSessionService) SyncFromSchedule(_ context.Context, eventID, actorID string) ([]*domain.Session, error) {
	f.lastEventID, f.lastActorID = eventID, actorID
	return f.syncResult, f.syncErr
}

func (f *fakeSessionService) ListSessions(_ context.Context, eventID string, page domain.PaginationParams) ([]*domain.Session, int, error) {
	f.lastEventID, f.lastPage = eventID, page
	return f.listResult, f.listTotal, f.listErr
}

func (f *fakeSessionService) IsSessionLive(_ context.Context, sessionID string) (*bool, error) {
	f.lastSessionID = sessionID
	return f.live, f.liveErr
}

// serve routes req through a ServeMux registered with pattern so PathValue works.
// When actorID is non-empty the request carries an admin principal.
func serve(t *testing.T, pattern string, handler http.HandlerFunc, req *http.Request, actorID string) *httptest.ResponseRecorder {
	t.Helper()
	if actorID != "" {
		p := domain.Principal{UserID: actorID, Roles: []string{domain.RoleAdmin}}
		req = req.WithContext(middleware.SetPrincipal(req.Context(), p))
	}
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

// decodeEnvelope decodes an APIResponse whose data is unmarshaled into data (may be nil).
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) *helpers.APIError {
	t.Helper()
	var raw struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	if data != nil && raw.Error == nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Error
}

func boolPtr(b bool) *bool { return &b }
