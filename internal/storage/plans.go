package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/ultracoach/internal/models"
	"github.com/google/uuid"
)

const planColumns = `id, athlete_id, plan_date, title, workout, created_at, updated_at`

// SavePlannedWorkout stores the workout planned for an athlete on a date,
// replacing any workout already planned for that day. The row keeps its ID
// across replacements.
func (db *DB) SavePlannedWorkout(ctx context.Context, p models.PlannedWorkoutRow) (*models.PlannedWorkoutRow, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO planned_workouts (id, athlete_id, plan_date, title, workout)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (athlete_id, plan_date) DO UPDATE SET
			title = EXCLUDED.title,
			workout = EXCLUDED.workout,
			updated_at = NOW()
		RETURNING `+planColumns,
		p.ID, p.AthleteID, p.PlanDate, p.Title, p.Workout)

	var out models.PlannedWorkoutRow
	if err := scanPlan(row, &out); err != nil {
		return nil, fmt.Errorf("saving planned workout: %w", err)
	}
	return &out, nil
}

// GetPlannedWorkout retrieves a planned workout by ID.
func (db *DB) GetPlannedWorkout(ctx context.Context, id uuid.UUID) (*models.PlannedWorkoutRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM planned_workouts WHERE id = $1`, id)

	var p models.PlannedWorkoutRow
	if err := scanPlan(row, &p); err != nil {
		return nil, notFound(err, "planned workout "+id.String())
	}
	return &p, nil
}

// QueryPlannedWorkouts retrieves an athlete's planned workouts with plan_date in [start, end).
func (db *DB) QueryPlannedWorkouts(ctx context.Context, athleteID string, start, end time.Time) ([]models.PlannedWorkoutRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+planColumns+`
		 FROM planned_workouts
		 WHERE athlete_id = $1 AND plan_date >= $2 AND plan_date < $3
		 ORDER BY plan_date ASC`,
		athleteID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying planned workouts: %w", err)
	}
	defer rows.Close()

	var result []models.PlannedWorkoutRow
	for rows.Next() {
		var p models.PlannedWorkoutRow
		if err := scanPlan(rows, &p); err != nil {
			return nil, fmt.Errorf("scanning planned workout: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// DeletePlannedWorkout removes a planned workout. Returns ErrNotFound when nothing was deleted.
func (db *DB) DeletePlannedWorkout(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM planned_workouts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting planned workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("planned workout %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanPlan(row interface{ Scan(dest ...any) error }, p *models.PlannedWorkoutRow) error {
	return row.Scan(&p.ID, &p.AthleteID, &p.PlanDate, &p.Title, &p.Workout, &p.CreatedAt, &p.UpdatedAt)
}
