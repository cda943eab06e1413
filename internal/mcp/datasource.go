package mcp

import (
	"context"
	"time"

	"github.com/claude/ultracoach/internal/models"
	"github.com/claude/ultracoach/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface. Lookups of
// unknown athletes or plans return errors wrapping storage.ErrNotFound.
type DataSource interface {
	GetAthlete(ctx context.Context, athleteID string) (*models.Athlete, error)
	QueryPlannedWorkouts(ctx context.Context, athleteID string, start, end time.Time) ([]models.PlannedWorkoutRow, error)
	SavePlannedWorkout(ctx context.Context, p models.PlannedWorkoutRow) (*models.PlannedWorkoutRow, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
