package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/svleague/swiss-system/handlers"
	"github.com/svleague/swiss-system/middleware"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
	Standings  *handlers.StandingsHandler
	Admin      *handlers.AdminHandler
	WebSocket  *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	organizerOnly := middleware.Authorize("organizer")

	router.Post("/auth/login", h.Auth.LoginHandler)

	router.Route("/tournaments", func(r chi.Router) {
		// Public read access for spectators.
		r.Get("/", h.Tournament.ListHandler)
		r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
		r.Get("/{tournamentID}/players", h.Tournament.ListPlayersHandler)
		r.Get("/{tournamentID}/rounds/current", h.Tournament.CurrentRoundHandler)
		r.Get("/{tournamentID}/standings", h.Standings.GetStandingsHandler)
		r.Get("/{tournamentID}/stats/classes", h.Standings.ClassStatsHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/", h.Tournament.CreateHandler)
			r.Post("/{tournamentID}/players", h.Tournament.AddPlayerHandler)
			r.Delete("/{tournamentID}/players/{externalID}", h.Tournament.DropPlayerHandler)
			r.Post("/{tournamentID}/start", h.Tournament.StartHandler)
			r.Post("/{tournamentID}/advance", h.Tournament.AdvanceHandler)
			r.Post("/{tournamentID}/cut", h.Tournament.CutHandler)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}/meta", h.Match.MetaHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/{matchID}/result", h.Match.ReportResultHandler)
			r.Post("/{matchID}/picks", h.Match.RecordPickHandler)
			r.Post("/{matchID}/actual", h.Match.RecordActualHandler)
			r.Delete("/{matchID}/picks", h.Match.ResetPicksHandler)
		})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(organizerOnly)

		r.Post("/matches/{matchID}/override", h.Admin.OverrideResultHandler)
		r.Post("/matches/swap", h.Admin.SwapTablesHandler)
		r.Post("/players/ban", h.Admin.BanPlayerHandler)
		r.Delete("/tournaments/{tournamentID}", h.Admin.PurgeTournamentHandler)
		r.Post("/tournaments/{tournamentID}/export", h.Admin.ExportHandler)
		r.Get("/tournaments/{tournamentID}/archive", h.Admin.ArchivePreviewHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeTournamentWS)

	return router
}
