package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/repflow/internal/ingest"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
	"github.com/go-chi/chi/v5"
)

// Records is the read side of the sync store.
type Records interface {
	GetWorkout(ctx context.Context, id string) (*models.StoredWorkout, error)
	ListWorkouts(ctx context.Context, memberID string) ([]storage.WorkoutRef, error)
	QueryPushLogs(ctx context.Context, memberID string, limit int) ([]storage.PushLog, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db     Records
	sync   *ingest.Provider
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(db Records, provider *ingest.Provider, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		sync:   provider,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))

		// Pushes from clients
		r.Post("/workouts/{id}/snapshot", s.handleSnapshot)
		r.Post("/sets/{id}", s.handleSet)

		// Read-back
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Get("/members/{member}/workouts", s.handleListWorkouts)
		r.Get("/members/{member}/pushes", s.handlePushLogs)
	})
}
