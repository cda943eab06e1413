package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/ultracoach/internal/models"
	"github.com/claude/ultracoach/internal/storage"
	"github.com/claude/ultracoach/internal/workout"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to today through the next 14 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		now := time.Now().UTC()
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = start.AddDate(0, 0, 14)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// objectArg returns a JSON object argument. Clients that cannot send nested
// objects may pass it as a JSON string instead.
func objectArg(req mcp.CallToolRequest, name string) (any, bool, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return nil, false, nil
	}
	if s, isString := v.(string); isString {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, true, fmt.Errorf("%s is not valid JSON: %w", name, err)
		}
		return decoded, true, nil
	}
	return v, true, nil
}

// --- Tool definitions ---

var workoutDescription = mcp.Description(`Workout object: {"title": "...", "segments": [{"name": "Aquecimento", "duration_min": 10, "target_hr_low": 120, "target_hr_high": 140}, ...]}`)

var toolValidateWorkout = mcp.NewTool("validate_workout",
	mcp.WithDescription("Check a workout document for structural problems. Returns every problem found, not just the first."),
	mcp.WithObject("workout", mcp.Required(), workoutDescription),
)

var toolCompileWorkout = mcp.NewTool("compile_workout",
	mcp.WithDescription("Compile a workout into ordered watch steps with durations in milliseconds, intensity, and heart-rate targets in device encoding (bpm + 100). Segments without a positive duration are skipped."),
	mcp.WithObject("workout", mcp.Required(), workoutDescription),
	mcp.WithObject("constraints", mcp.Description("Optional {\"z2_hr_cap\": bpm, \"z3_hr_floor\": bpm}. Defaults to the athlete's stored constraints.")),
	mcp.WithString("athlete_id", mcp.Description("Athlete whose stored constraints apply when constraints is omitted.")),
)

var toolGetAthleteConstraints = mcp.NewTool("get_athlete_constraints",
	mcp.WithDescription("Get an athlete's profile and the heart-rate constraints (zone-2 cap, zone-3 floor) used as fallbacks when compiling workouts."),
	mcp.WithString("athlete_id", mcp.Description("Athlete ID. Defaults to the configured athlete.")),
)

var toolListPlannedWorkouts = mcp.NewTool("list_planned_workouts",
	mcp.WithDescription("List workouts planned for an athlete, ordered by date."),
	mcp.WithString("athlete_id", mcp.Description("Athlete ID. Defaults to the configured athlete.")),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to today.")),
	mcp.WithString("end", mcp.Description("End date, exclusive. Defaults to 14 days after start.")),
)

var toolSavePlannedWorkout = mcp.NewTool("save_planned_workout",
	mcp.WithDescription("Validate a workout and plan it for an athlete on a date, replacing any workout already planned that day."),
	mcp.WithString("date", mcp.Required(), mcp.Description("Plan date (YYYY-MM-DD)")),
	mcp.WithObject("workout", mcp.Required(), workoutDescription),
	mcp.WithString("athlete_id", mcp.Description("Athlete ID. Defaults to the configured athlete.")),
)

// --- Tool handlers ---

type validationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func (h *handlers) validateWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, _, err := objectArg(req, "workout")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	errs := workout.Validate(doc)
	result, err := mcp.NewToolResultJSON(validationResult{Valid: len(errs) == 0, Errors: errs})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) compileWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, _, err := objectArg(req, "workout")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if errs := workout.Validate(doc); len(errs) > 0 {
		return mcp.NewToolResultError("invalid workout: " + strings.Join(errs, "; ")), nil
	}

	raw, given, err := objectArg(req, "constraints")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var constraints workout.Constraints
	if given {
		constraints, _ = raw.(map[string]any)
	} else {
		athleteID := h.athleteID(ctx, req)
		a, err := h.ds.GetAthlete(ctx, athleteID)
		switch {
		case err == nil:
			constraints = a.Constraints()
		case errors.Is(err, storage.ErrNotFound):
			h.log.Debug("mcp compile_workout: athlete not found, compiling without constraints", "athlete", athleteID)
		default:
			h.log.Error("mcp compile_workout", "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
	}

	compiled, err := workout.Build(doc.(map[string]any), constraints)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(compiled)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getAthleteConstraints(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	athleteID := h.athleteID(ctx, req)

	a, err := h.ds.GetAthlete(ctx, athleteID)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError("athlete " + athleteID + " not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_athlete_constraints", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"athlete":     a,
		"constraints": a.Constraints(),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listPlannedWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	plans, err := h.ds.QueryPlannedWorkouts(ctx, h.athleteID(ctx, req), start, end)
	if err != nil {
		h.log.Error("mcp list_planned_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if plans == nil {
		plans = []models.PlannedWorkoutRow{}
	}

	result, err := mcp.NewToolResultJSON(plans)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) savePlannedWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dateStr, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError("date parameter is required"), nil
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return mcp.NewToolResultError("date must be YYYY-MM-DD"), nil
	}

	doc, _, err := objectArg(req, "workout")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if errs := workout.Validate(doc); len(errs) > 0 {
		return mcp.NewToolResultError("invalid workout: " + strings.Join(errs, "; ")), nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}

	saved, err := h.ds.SavePlannedWorkout(ctx, models.PlannedWorkoutRow{
		AthleteID: h.athleteID(ctx, req),
		PlanDate:  date,
		Title:     workout.Title(doc.(map[string]any)),
		Workout:   raw,
	})
	if err != nil {
		h.log.Error("mcp save_planned_workout", "error", err)
		return mcp.NewToolResultError("save failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(saved)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
