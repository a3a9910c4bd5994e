package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"virtualexpo/internal/delivery/http/helpers"
	"virtualexpo/internal/delivery/http/middleware"
	"virtualexpo/internal/domain"
)

// EventSuccessResponse is the success response envelope for the event override endpoints (200).
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// LifecycleController serves the admin overrides of the event lifecycle.
type LifecycleController struct {
	Logger  *slog.Logger
	Service domain.EventLifecycleService
}

func NewLifecycleController(logger *slog.Logger, svc domain.EventLifecycleService) *LifecycleController {
	return &LifecycleController{
		Logger:  logger,
		Service: svc,
	}
}

// ForceStart godoc
// @Summary Force an event live
// @Description Moves a payment_done event to live ahead of its start date. If the event moved concurrently, the current event is returned.
// @Tags lifecycle
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event after the transition"
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_state"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID}/force-start [post]
func (c *LifecycleController) ForceStart(w http.ResponseWriter, r *http.Request) {
	c.force(w, r, c.Service.ForceStart)
}

// ForceClose godoc
// @Summary Force an event closed
// @Description Moves a live event to closed ahead of its end date. If the event moved concurrently, the current event is returned.
// @Tags lifecycle
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event after the transition"
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_state"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID}/force-close [post]
func (c *LifecycleController) ForceClose(w http.ResponseWriter, r *http.Request) {
	c.force(w, r, c.Service.ForceClose)
}

type forceFunc func(ctx context.Context, eventID, actorID string) (*domain.Event, error)

func (c *LifecycleController) force(w http.ResponseWriter, r *http.Request, fn forceFunc) {
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
	event, err := fn(r.Context(), eventID, actorID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
