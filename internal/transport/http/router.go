package http

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"testyourself-core/internal/app"
)

// NewRouter wires the public, admin and websocket routes.
func NewRouter(leaderboard *app.LeaderboardService, admin *app.AdminService, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	api := NewAPIHandler(leaderboard, admin, logger)
	ws := NewWSHandler(leaderboard, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws/leaderboard", ws.ServeWS)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(chiMiddleware.Timeout(30 * time.Second))
		v1.Post("/results", api.SubmitResult)
		v1.Get("/leaderboards/{bucket}", api.GetStandings)

		v1.Route("/admin", func(adm chi.Router) {
			adm.Post("/catalog", api.CreateCatalogEntry)
			adm.Post("/instances", api.EnsureInstance)
			adm.Post("/registry/sync", api.SyncRegistry)
		})
	})
	return r
}
