package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "virtualexpo/docs"
	"virtualexpo/internal/delivery/http/controllers"
	"virtualexpo/internal/delivery/http/middleware"
	"virtualexpo/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
// Admin routes require the admin role; read routes require any valid token.
func NewRouter(lifecycle *controllers.LifecycleController, sessions *controllers.SessionController, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	admin := middleware.RequireAdmin(verifier, logger)
	authed := middleware.RequireAuth(verifier, logger)

	// Admin overrides
	mux.HandleFunc("POST /admin/events/{eventID}/force-start", admin(lifecycle.ForceStart))
	mux.HandleFunc("POST /admin/events/{eventID}/force-close", admin(lifecycle.ForceClose))
	mux.HandleFunc("POST /admin/events/{eventID}/sessions", admin(sessions.CreateSession))
	mux.HandleFunc("POST /admin/events/{eventID}/sessions/sync", admin(sessions.SyncSessions))
	mux.HandleFunc("PATCH /admin/sessions/{sessionID}/start", admin(sessions.StartSession))
	mux.HandleFunc("PATCH /admin/sessions/{sessionID}/end", admin(sessions.EndSession))

	// Reads
	mux.HandleFunc("GET /events/{eventID}/sessions", authed(sessions.ListSessions))
	mux.HandleFunc("GET /sessions/{sessionID}/live", authed(sessions.IsSessionLive))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
