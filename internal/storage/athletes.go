package storage

import (
	"context"
	"fmt"

	"github.com/claude/ultracoach/internal/models"
)

// UpsertAthlete creates or updates an athlete profile and returns the stored row.
func (db *DB) UpsertAthlete(ctx context.Context, a models.Athlete) (*models.Athlete, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO athletes (athlete_id, name, hr_max, hr_rest, lt_hr, z2_hr_cap, z3_hr_floor, goal_event)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (athlete_id) DO UPDATE SET
			name = EXCLUDED.name,
			hr_max = EXCLUDED.hr_max,
			hr_rest = EXCLUDED.hr_rest,
			lt_hr = EXCLUDED.lt_hr,
			z2_hr_cap = EXCLUDED.z2_hr_cap,
			z3_hr_floor = EXCLUDED.z3_hr_floor,
			goal_event = EXCLUDED.goal_event,
			updated_at = NOW()
		RETURNING athlete_id, name, hr_max, hr_rest, lt_hr, z2_hr_cap, z3_hr_floor, goal_event, created_at, updated_at
	`, a.AthleteID, a.Name, a.HRMax, a.HRRest, a.LTHR, a.Z2HRCap, a.Z3HRFloor, a.GoalEvent)

	var out models.Athlete
	if err := scanAthlete(row, &out); err != nil {
		return nil, fmt.Errorf("upserting athlete %s: %w", a.AthleteID, err)
	}
	return &out, nil
}

// GetAthlete retrieves one athlete. Returns ErrNotFound for unknown IDs.
func (db *DB) GetAthlete(ctx context.Context, athleteID string) (*models.Athlete, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT athlete_id, name, hr_max, hr_rest, lt_hr, z2_hr_cap, z3_hr_floor, goal_event, created_at, updated_at
		 FROM athletes WHERE athlete_id = $1`, athleteID)

	var a models.Athlete
	if err := scanAthlete(row, &a); err != nil {
		return nil, notFound(err, "athlete "+athleteID)
	}
	return &a, nil
}

// ListAthletes returns every athlete ordered by ID.
func (db *DB) ListAthletes(ctx context.Context) ([]models.Athlete, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT athlete_id, name, hr_max, hr_rest, lt_hr, z2_hr_cap, z3_hr_floor, goal_event, created_at, updated_at
		 FROM athletes ORDER BY athlete_id`)
	if err != nil {
		return nil, fmt.Errorf("querying athletes: %w", err)
	}
	defer rows.Close()

	var result []models.Athlete
	for rows.Next() {
		var a models.Athlete
		if err := scanAthlete(rows, &a); err != nil {
			return nil, fmt.Errorf("scanning athlete: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func scanAthlete(row interface{ Scan(dest ...any) error }, a *models.Athlete) error {
	return row.Scan(&a.AthleteID, &a.Name, &a.HRMax, &a.HRRest, &a.LTHR,
		&a.Z2HRCap, &a.Z3HRFloor, &a.GoalEvent, &a.CreatedAt, &a.UpdatedAt)
}
