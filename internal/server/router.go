package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/scout-labs/tokscout/internal/api"
	"github.com/scout-labs/tokscout/internal/api/handlers"
	"github.com/scout-labs/tokscout/internal/api/middleware"
)

type RouterConfig struct {
	APIToken       string
	ProfileHandler *handlers.ProfileHandler
	SearchHandler  *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.APIToken))

		r.Route("/v1/users/{userID}", func(r chi.Router) {
			r.Route("/profile", func(r chi.Router) {
				r.Get("/", cfg.ProfileHandler.Get)
				r.Delete("/", cfg.ProfileHandler.Reset)
				r.Post("/refresh", cfg.ProfileHandler.Refresh)
				r.Post("/export", cfg.ProfileHandler.Export)
				r.Post("/import", cfg.ProfileHandler.Import)
			})

			r.Post("/search", cfg.SearchHandler.Search)
			r.Get("/hashtags", cfg.SearchHandler.Hashtags)
			r.Get("/history", cfg.SearchHandler.History)
			r.Get("/history/stats", cfg.SearchHandler.HistoryStats)
		})
	})

	return r
}
