package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/claude/ultracoach/internal/workout"
	"github.com/mark3labs/mcp-go/mcp"
)

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) hrTargetRules(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	rules := map[string]any{
		"aliases": workout.FieldAliases(),
		"fallbacks": map[string]string{
			"low":  "segment target_hr_low if positive, else athlete z3_hr_floor",
			"high": "segment target_hr_high if positive, else athlete z2_hr_cap",
		},
		"heart_rate_offset":   workout.HeartRateOffset,
		"max_encoded_hr":      workout.MaxEncodedHeartRate,
		"max_duration_ms":     workout.MaxDurationMs,
		"custom_zone":         workout.CustomZone,
		"intensity_keywords":  workout.IntensityKeywords(),
		"max_name_length":     workout.MaxNameLen,
		"default_step_name":   workout.DefaultStepName,
		"default_title":       workout.DefaultTitle,
		"duration_unit_input": "minutes",
	}
	return jsonContents(req.Params.URI, rules)
}

func (h *handlers) upcomingPlans(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	athleteID := AthleteIDFromContext(ctx)
	if athleteID == "" {
		athleteID = h.defaultAthlete
	}
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	plans, err := h.ds.QueryPlannedWorkouts(ctx, athleteID, start, start.AddDate(0, 0, 7))
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, map[string]any{
		"athlete_id": athleteID,
		"plans":      plans,
	})
}
