package storage

import (
	"context"
	"fmt"
	"time"
)

// AthleteStats holds aggregate statistics about an athlete's plans and exports.
type AthleteStats struct {
	AthleteID       string            `json:"athlete_id"`
	PlannedWorkouts int64             `json:"planned_workouts"`
	UpcomingPlans   int64             `json:"upcoming_plans"`
	FirstPlanDate   *time.Time        `json:"first_plan_date"`
	LastPlanDate    *time.Time        `json:"last_plan_date"`
	ExportsBySource []ExportSourceStat `json:"exports_by_source"`
}

// ExportSourceStat summarizes FIT exports from one source (api, plan).
type ExportSourceStat struct {
	Source     string `json:"source"`
	Succeeded  int64  `json:"succeeded"`
	Failed     int64  `json:"failed"`
	TotalBytes int64  `json:"total_bytes"`
}

// GetAthleteStats returns aggregate statistics for one athlete. Upcoming
// plans are those dated on or after today's date in UTC.
func (db *DB) GetAthleteStats(ctx context.Context, athleteID string) (*AthleteStats, error) {
	stats := &AthleteStats{AthleteID: athleteID, ExportsBySource: []ExportSourceStat{}}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE plan_date >= CURRENT_DATE),
		        MIN(plan_date), MAX(plan_date)
		 FROM planned_workouts WHERE athlete_id = $1`, athleteID,
	).Scan(&stats.PlannedWorkouts, &stats.UpcomingPlans, &stats.FirstPlanDate, &stats.LastPlanDate)
	if err != nil {
		return nil, fmt.Errorf("counting planned workouts: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT source,
		        COUNT(*) FILTER (WHERE status = 'success'),
		        COUNT(*) FILTER (WHERE status <> 'success'),
		        COALESCE(SUM(bytes), 0)
		 FROM fit_exports
		 WHERE athlete_id = $1
		 GROUP BY source
		 ORDER BY source`, athleteID)
	if err != nil {
		return nil, fmt.Errorf("querying export stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ExportSourceStat
		if err := rows.Scan(&s.Source, &s.Succeeded, &s.Failed, &s.TotalBytes); err != nil {
			return nil, fmt.Errorf("scanning export stats: %w", err)
		}
		stats.ExportsBySource = append(stats.ExportsBySource, s)
	}
	return stats, rows.Err()
}
