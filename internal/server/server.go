package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/ultracoach/internal/models"
	"github.com/claude/ultracoach/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxBodyBytes caps request bodies on JSON endpoints.
const maxBodyBytes = 1 << 20

// Store is the persistence the HTTP handlers need. *storage.DB satisfies it.
type Store interface {
	GetAthlete(ctx context.Context, athleteID string) (*models.Athlete, error)
	UpsertAthlete(ctx context.Context, a models.Athlete) (*models.Athlete, error)
	SavePlannedWorkout(ctx context.Context, p models.PlannedWorkoutRow) (*models.PlannedWorkoutRow, error)
	GetPlannedWorkout(ctx context.Context, id uuid.UUID) (*models.PlannedWorkoutRow, error)
	QueryPlannedWorkouts(ctx context.Context, athleteID string, start, end time.Time) ([]models.PlannedWorkoutRow, error)
	InsertFitExport(ctx context.Context, e models.FitExport) (int64, error)
	QueryFitExports(ctx context.Context, athleteID string, limit int) ([]models.FitExport, error)
	GetAthleteStats(ctx context.Context, athleteID string) (*storage.AthleteStats, error)
}

var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store          Store
	log            *slog.Logger
	apiKey         string
	defaultAthlete string
	router         chi.Router
	now            func() time.Time
}

// New creates a new Server with all routes configured. defaultAthlete is
// recorded on exports that name no athlete.
func New(store Store, apiKey, defaultAthlete string, log *slog.Logger) *Server {
	s := &Server{
		store:          store,
		log:            log,
		apiKey:         apiKey,
		defaultAthlete: defaultAthlete,
		router:         chi.NewRouter(),
		now:            time.Now,
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

	// Stateless compiler endpoints
	s.router.Route("/api/v1/workouts", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Post("/compile", s.handleCompile)
		r.Post("/fit", s.handleWorkoutFit)
	})

	s.router.Get("/api/v1/athletes/{id}", s.handleGetAthlete)
	s.router.Get("/api/v1/athletes/{id}/plans", s.handleListPlans)
	s.router.Get("/api/v1/athletes/{id}/stats", s.handleAthleteStats)
	s.router.Get("/api/v1/plans/{planID}", s.handleGetPlan)
	s.router.Get("/api/v1/plans/{planID}/fit", s.handlePlanFit)
	s.router.Get("/api/v1/exports", s.handleExports)

	// Write endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Put("/api/v1/athletes/{id}", s.handlePutAthlete)
		r.Post("/api/v1/athletes/{id}/plans", s.handleSavePlan)
	})
}

// MountMCP serves an MCP streamable HTTP handler at /mcp behind the API key.
func (s *Server) MountMCP(h http.Handler) {
	s.router.With(APIKeyAuth(s.apiKey)).Handle("/mcp", h)
}
