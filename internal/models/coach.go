package models

import (
	"encoding/json"
	"time"

	"github.com/claude/ultracoach/internal/workout"
	"github.com/google/uuid"
)

// Athlete is a row of the athletes table.
type Athlete struct {
	AthleteID string    `json:"athlete_id"`
	Name      string    `json:"name"`
	HRMax     *float64  `json:"hr_max,omitempty"`
	HRRest    *float64  `json:"hr_rest,omitempty"`
	LTHR      *float64  `json:"lt_hr,omitempty"`
	Z2HRCap   *float64  `json:"z2_hr_cap,omitempty"`
	Z3HRFloor *float64  `json:"z3_hr_floor,omitempty"`
	GoalEvent string    `json:"goal_event,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Constraints returns the athlete's HR constraints in the shape the compiler
// reads. Unset values are left out so they do not trigger heart-rate targets.
func (a *Athlete) Constraints() workout.Constraints {
	c := workout.Constraints{}
	if a == nil {
		return c
	}
	if a.Z2HRCap != nil {
		c["z2_hr_cap"] = *a.Z2HRCap
	}
	if a.Z3HRFloor != nil {
		c["z3_hr_floor"] = *a.Z3HRFloor
	}
	return c
}

// PlannedWorkoutRow is a row of the planned_workouts table. Workout holds the
// raw workout document as authored (by a coach or an LLM).
type PlannedWorkoutRow struct {
	ID        uuid.UUID       `json:"id"`
	AthleteID string          `json:"athlete_id"`
	PlanDate  time.Time       `json:"plan_date"`
	Title     string          `json:"title"`
	Workout   json.RawMessage `json:"workout"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Document decodes the stored workout JSON.
func (p *PlannedWorkoutRow) Document() (workout.Document, error) {
	var doc workout.Document
	if err := json.Unmarshal(p.Workout, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FitExport records one attempt to produce a FIT file.
type FitExport struct {
	ID           int64      `json:"id"`
	AthleteID    string     `json:"athlete_id"`
	PlanID       *uuid.UUID `json:"plan_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Source       string     `json:"source"`
	Status       string     `json:"status"`
	Title        string     `json:"title"`
	StepCount    int        `json:"step_count"`
	Bytes        int        `json:"bytes"`
	DurationMs   *int       `json:"duration_ms"`
	ErrorMessage *string    `json:"error_message"`
}
