package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aleister1102/pagewatch/internal/engine"
)

// Server exposes the engine over a JSON HTTP API.
type Server struct {
	engine *engine.Engine
	router *chi.Mux
	logger zerolog.Logger
}

// NewServer builds the router and binds all job endpoints.
func NewServer(eng *engine.Engine, log zerolog.Logger) *Server {
	s := &Server{
		engine: eng,
		router: chi.NewRouter(),
		logger: log.With().Str("component", "APIServer").Logger(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Post("/", s.handleCreateJob)

			r.Route("/{jobID}", func(r chi.Router) {
				r.Get("/", s.handleGetJob)
				r.Delete("/", s.handleDeleteJob)
				r.Post("/start", s.handleStartJob)
				r.Post("/stop", s.handleStopJob)
				r.Post("/pause", s.handlePauseJob)
				r.Get("/results", s.handleResults)
				r.Get("/stats", s.handleStats)
			})
		})
	})

	return s
}

// Router returns the HTTP handler for mounting or serving.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
