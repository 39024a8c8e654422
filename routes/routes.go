package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/riftline/tournament-engine/docs"
	"github.com/riftline/tournament-engine/handlers"
	"github.com/riftline/tournament-engine/middleware"
)

// Handlers bundles everything SetupRoutes mounts.
type Handlers struct {
	Tournament *handlers.TournamentHandler
	Lifecycle  *handlers.LifecycleHandler
	Seeding    *handlers.SeedingHandler
	Bracket    *handlers.BracketHandler
	Swiss      *handlers.SwissHandler
	Round      *handlers.RoundHandler
	Match      *handlers.MatchHandler
	WebSocket  *handlers.WebSocketHandler
}

// SetupRoutes mounts all API routes. Read endpoints are public, every
// mutating endpoint requires an organizer or admin token.
func SetupRoutes(router *chi.Mux, h Handlers) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(docs.OpenAPI)
	})
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.ListHandler)

		r.With(middleware.Authenticate, middleware.Authorize("organizer", "admin")).
			Post("/", h.Tournament.CreateHandler)

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", h.Tournament.GetByIDHandler)
			r.Get("/participants", h.Tournament.ListParticipantsHandler)
			r.Get("/lifecycle", h.Lifecycle.GetHandler)
			r.Get("/bracket", h.Bracket.GetViewHandler)
			r.Get("/swiss/standings", h.Swiss.StandingsHandler)
			r.Get("/matches", h.Match.ListHandler)
			r.Get("/logs", h.Tournament.ListLogsHandler)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate)
				r.Use(middleware.Authorize("organizer", "admin"))

				r.Delete("/", h.Tournament.DeleteHandler)

				r.Post("/participants", h.Tournament.RegisterTeamHandler)
				r.Delete("/participants/{participantID}", h.Tournament.WithdrawTeamHandler)

				r.Put("/banner", h.Tournament.UploadBannerHandler)
				r.Delete("/banner", h.Tournament.RemoveBannerHandler)

				r.Post("/lifecycle/transition", h.Lifecycle.TransitionHandler)

				r.Post("/seeding/randomize", h.Seeding.RandomizeHandler)
				r.Post("/seeding/by-rank", h.Seeding.ByRankHandler)
				r.Put("/seeding", h.Seeding.SetSeedHandler)
				r.Post("/seeding/swap", h.Seeding.SwapSeedsHandler)

				r.Post("/bracket", h.Bracket.GenerateHandler)
				r.Post("/bracket/reset", h.Round.ResetHandler)

				r.Post("/swiss/pairings", h.Swiss.GeneratePairingsHandler)

				r.Post("/rounds/advance", h.Round.AdvanceHandler)
				r.Post("/rounds/rewind", h.Round.RewindHandler)
				r.Post("/rounds/regenerate", h.Round.RegenerateHandler)
			})
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate)
			r.Use(middleware.Authorize("organizer", "admin", "referee"))
			r.Patch("/{matchID}", h.Match.UpdateHandler)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)
}
