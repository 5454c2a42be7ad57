package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/handlers"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/middleware"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Automation  *handlers.AutomationHandler
	Snapshots   *handlers.SnapshotHandler
	Alerts      *handlers.AlertHandler
	Tables      *handlers.TableHandler
	WebSocket   *handlers.WebSocketHandler
	MatchEvents *handlers.MatchEventHandler
	Metrics     http.Handler
}

// SetupRoutes wires the full HTTP surface. Reads of the table, health,
// metrics, and the live socket are public; everything that mutates engine
// state requires an authenticated admin or operator.
func SetupRoutes(h Handlers, auth *middleware.Authenticator, allowedOrigins []string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Post("/auth/login", h.Auth.Login)
	router.Get("/health", h.Automation.Health)
	router.Method(http.MethodGet, "/metrics", h.Metrics)
	router.Get("/competitions/{competitionID}/table", h.Tables.GetByCompetition)
	router.Get("/ws/competitions/{competitionID}", h.WebSocket.ServeWs)

	router.Route("/admin", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(models.RoleAdmin, models.RoleOperator))

		r.Post("/competitions/{competitionID}/recalculate", h.Automation.TriggerRecalculation)
		r.Post("/match-events", h.MatchEvents.Notify)
		r.Get("/queue-status", h.Automation.QueueStatus)
		r.Get("/competitions/{competitionID}/history", h.Automation.History)

		r.Get("/snapshots/{competitionID}", h.Snapshots.List)
		r.Post("/snapshots", h.Snapshots.Create)
		r.Post("/snapshots/{snapshotID}/restore", h.Snapshots.Restore)

		r.Get("/alerts", h.Alerts.List)
		r.Get("/alerts/rules", h.Alerts.Rules)
		r.Post("/alerts/{alertID}/acknowledge", h.Alerts.Acknowledge)
		r.Post("/alerts/{alertID}/resolve", h.Alerts.Resolve)

		r.Get("/settings", h.Automation.GetSettings)

		// Destructive and configuration changes are admin-only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/pause", h.Automation.Pause)
			r.Post("/resume", h.Automation.Resume)
			r.Put("/settings", h.Automation.UpdateSettings)
			r.Delete("/snapshots/{snapshotID}", h.Snapshots.Delete)
		})
	})

	return router
}
