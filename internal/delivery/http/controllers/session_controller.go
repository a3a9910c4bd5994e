package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"virtualexpo/internal/delivery/http/helpers"
	"virtualexpo/internal/delivery/http/middleware"
	"virtualexpo/internal/domain"
)

// CreateSessionRequest is the request body for POST /admin/events/{eventID}/sessions.
// Times are RFC 3339 timestamps.
type CreateSessionRequest struct {
	Title       string    `json:"title"`
	Speaker     string    `json:"speaker"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// Validate implements Validator.
func (c CreateSessionRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Title) == "" {
		errs = append(errs, "title is required")
	}
	if c.StartTime.IsZero() {
		errs = append(errs, "start_time is required")
	}
	if c.EndTime.IsZero() {
		errs = append(errs, "end_time is required")
	}
	if !c.StartTime.IsZero() && !c.EndTime.IsZero() && !c.StartTime.Before(c.EndTime) {
		errs = append(errs, "start_time must be before end_time")
	}
	return errs
}

// SessionSuccessResponse is the success response envelope for single-session endpoints.
type SessionSuccessResponse struct {
	Data  *domain.Session   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// SessionListSuccessResponse is the success response envelope for POST /admin/events/{eventID}/sessions/sync (200).
type SessionListSuccessResponse struct {
	Data  []*domain.Session `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListSessionsResponse is the response body for GET /events/{eventID}/sessions.
type ListSessionsResponse struct {
	Items      []*domain.Session      `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListSessionsSuccessResponse is the success response envelope for GET /events/{eventID}/sessions (200).
type ListSessionsSuccessResponse struct {
	Data  ListSessionsResponse `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// SessionLiveResponse is the response body for GET /sessions/{sessionID}/live.
type SessionLiveResponse struct {
	SessionID string `json:"session_id"`
	Live      bool   `json:"live"`
}

// SessionLiveSuccessResponse is the success response envelope for GET /sessions/{sessionID}/live (200).
type SessionLiveSuccessResponse struct {
	Data  SessionLiveResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// SessionController serves session management and the transport guard.
type SessionController struct {
	Logger  *slog.Logger
	Service domain.SessionLifecycleService
}

func NewSessionController(logger *slog.Logger, svc domain.SessionLifecycleService) *SessionController {
	return &SessionController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateSession godoc
// @Summary Create a session
// @Description Creates a scheduled session. Times must fall inside the event dates, give or take 24 hours.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param session body CreateSessionRequest true "Session data"
// @Success 201 {object} controllers.SessionSuccessResponse "data contains the created session"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID}/sessions [post]
func (c *SessionController) CreateSession(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CreateSessionRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	session, err := c.Service.Create(r.Context(), eventID, domain.CreateSessionInput{
		Title:       req.Title,
		Speaker:     req.Speaker,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}, actorID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, session)
}

// SyncSessions godoc
// @Summary Import sessions from the event schedule
// @Description Creates a session for every schedule slot that looks like a talk (keynote, workshop, panel, ...) and has no session at the same start time yet. Safe to repeat.
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.SessionListSuccessResponse "data contains the sessions created by this call"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID}/sessions/sync [post]
func (c *SessionController) SyncSessions(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	created, err := c.Service.SyncFromSchedule(r.Context(), eventID, actorID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, created)
}

// StartSession godoc
// @Summary Start a session now
// @Description Moves a scheduled session to live.
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param sessionID path string true "Session ID"
// @Success 200 {object} controllers.SessionSuccessResponse "data contains the live session"
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_state"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/sessions/{sessionID}/start [patch]
func (c *SessionController) StartSession(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.Service.StartSession)
}

// EndSession godoc
// @Summary End a session now
// @Description Moves a live session to ended.
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param sessionID path string true "Session ID"
// @Success 200 {object} controllers.SessionSuccessResponse "data contains the ended session"
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_state"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/sessions/{sessionID}/end [patch]
func (c *SessionController) EndSession(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.Service.EndSession)
}

func (c *SessionController) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, sessionID, actorID string) (*domain.Session, error)) {
	sessionID := r.PathValue("sessionID")
	if sessionID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing sessionID")
		return
	}
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	session, err := fn(r.Context(), sessionID, actorID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, session)
}

// ListSessions godoc
// @Summary List the sessions of an event
// @Description Returns sessions ordered by start time. Query params page (default 1) and page_size (default 20, max 100).
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} controllers.ListSessionsSuccessResponse "data contains items and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/sessions [get]
func (c *SessionController) ListSessions(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	page := helpers.ParsePagination(r)
	sessions, total, err := c.Service.ListSessions(r.Context(), eventID, page)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListSessionsResponse{
		Items:      sessions,
		Pagination: helpers.NewPaginationMeta(page.Page, page.PageSize, total),
	})
}

// IsSessionLive godoc
// @Summary Check whether a session is live
// @Description Used by the streaming transport to admit connections only while a session is live.
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param sessionID path string true "Session ID"
// @Success 200 {object} controllers.SessionLiveSuccessResponse "data.live is true only while the session is live"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /sessions/{sessionID}/live [get]
func (c *SessionController) IsSessionLive(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	if sessionID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing sessionID")
		return
	}
	live, err := c.Service.IsSessionLive(r.Context(), sessionID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if live == nil {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "session not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, SessionLiveResponse{SessionID: sessionID, Live: *live})
}
