package storage

import (
	"context"
	"fmt"

	"github.com/claude/ultracoach/internal/models"
)

// InsertFitExport records a FIT export attempt and returns its ID.
func (db *DB) InsertFitExport(ctx context.Context, e models.FitExport) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO fit_exports (athlete_id, plan_id, source, status, title, step_count, bytes, duration_ms, error_message)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id`,
		e.AthleteID, e.PlanID, e.Source, e.Status, e.Title, e.StepCount, e.Bytes, e.DurationMs, e.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting fit export: %w", err)
	}
	return id, nil
}

// QueryFitExports returns the most recent exports, optionally for one athlete.
func (db *DB) QueryFitExports(ctx context.Context, athleteID string, limit int) ([]models.FitExport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, athlete_id, plan_id, created_at, source, status, title, step_count, bytes, duration_ms, error_message
		 FROM fit_exports
		 WHERE $1 = '' OR athlete_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		athleteID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying fit exports: %w", err)
	}
	defer rows.Close()

	var result []models.FitExport
	for rows.Next() {
		var e models.FitExport
		if err := rows.Scan(&e.ID, &e.AthleteID, &e.PlanID, &e.CreatedAt, &e.Source, &e.Status,
			&e.Title, &e.StepCount, &e.Bytes, &e.DurationMs, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning fit export: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
