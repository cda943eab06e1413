package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/claude/ultracoach/internal/models"
	"github.com/claude/ultracoach/internal/storage"
	"github.com/claude/ultracoach/internal/workout"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

type fakeDataSource struct {
	athletes map[string]*models.Athlete
	plans    []models.PlannedWorkoutRow
	queried  string
}

func (f *fakeDataSource) GetAthlete(_ context.Context, id string) (*models.Athlete, error) {
	a, ok := f.athletes[id]
	if !ok {
		return nil, fmt.Errorf("athlete %s: %w", id, storage.ErrNotFound)
	}
	return a, nil
}

func (f *fakeDataSource) QueryPlannedWorkouts(_ context.Context, athleteID string, _, _ time.Time) ([]models.PlannedWorkoutRow, error) {
	f.queried = athleteID
	var out []models.PlannedWorkoutRow
	for _, p := range f.plans {
		if p.AthleteID == athleteID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeDataSource) SavePlannedWorkout(_ context.Context, p models.PlannedWorkoutRow) (*models.PlannedWorkoutRow, error) {
	p.ID = uuid.New()
	f.plans = append(f.plans, p)
	return &p, nil
}

func newTestHandlers() (*handlers, *fakeDataSource) {
	z2, z3 := 150.0, 140.0
	ds := &fakeDataSource{athletes: map[string]*models.Athlete{
		"ana": {AthleteID: "ana", Name: "Ana", Z2HRCap: &z2, Z3HRFloor: &z3},
	}}
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil)), defaultAthlete: "ana"}, ds
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", res.Content[0])
	return ""
}

func decodeArg(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

const tempo = `{"title":"Tempo","segments":[{"name":"Warm up","duration_min":15},{"name":"Tempo","duration_min":20,"target_hr_low":160,"target_hr_high":170},{"name":"Cool down","duration_min":10}]}`

// TestValidateWorkoutTool verifies all errors are reported together.
func TestValidateWorkoutTool(t *testing.T) {
	h, _ := newTestHandlers()

	res, err := h.validateWorkout(context.Background(), callRequest(map[string]any{
		"workout": decodeArg(t, `{"segments":[{"duration_min":5},{"name":"B","duration_min":-1}]}`),
	}))
	if err != nil {
		t.Fatal(err)
	}
	var got validationResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if got.Valid || len(got.Errors) != 2 {
		t.Errorf("result = %+v, want 2 errors", got)
	}
}

// TestValidateWorkoutToolStringArg verifies a workout passed as a JSON string is accepted.
func TestValidateWorkoutToolStringArg(t *testing.T) {
	h, _ := newTestHandlers()

	res, _ := h.validateWorkout(context.Background(), callRequest(map[string]any{"workout": tempo}))
	if !strings.Contains(resultText(t, res), `"valid":true`) {
		t.Errorf("result = %s", resultText(t, res))
	}

	res, _ = h.validateWorkout(context.Background(), callRequest(map[string]any{"workout": "{not json"}))
	if !res.IsError {
		t.Error("malformed JSON string: expected tool error")
	}
}

// TestCompileWorkoutTool verifies athlete constraints fill missing bounds and segment bounds win.
func TestCompileWorkoutTool(t *testing.T) {
	h, _ := newTestHandlers()

	res, err := h.compileWorkout(context.Background(), callRequest(map[string]any{"workout": decodeArg(t, tempo)}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var c workout.Compiled
	if err := json.Unmarshal([]byte(resultText(t, res)), &c); err != nil {
		t.Fatal(err)
	}
	if c.StepCount != 3 {
		t.Fatalf("step_count = %d, want 3", c.StepCount)
	}
	want := []struct {
		low, high int
		intensity workout.Intensity
	}{
		{240, 250, workout.IntensityWarmup},
		{260, 270, workout.IntensityActive},
		{240, 250, workout.IntensityCooldown},
	}
	for i, w := range want {
		st := c.Steps[i]
		if st.HRLowEncoded == nil || *st.HRLowEncoded != w.low || st.HRHighEncoded == nil || *st.HRHighEncoded != w.high {
			t.Errorf("step %d bounds = %v/%v, want %d/%d", i, st.HRLowEncoded, st.HRHighEncoded, w.low, w.high)
		}
		if st.Intensity != w.intensity {
			t.Errorf("step %d intensity = %q, want %q", i, st.Intensity, w.intensity)
		}
	}
}

// TestCompileWorkoutToolExplicitConstraints verifies explicit constraints override the athlete's.
func TestCompileWorkoutToolExplicitConstraints(t *testing.T) {
	h, _ := newTestHandlers()

	res, _ := h.compileWorkout(context.Background(), callRequest(map[string]any{
		"workout":     decodeArg(t, `{"segments":[{"name":"Easy","duration_min":30}]}`),
		"constraints": map[string]any{"z2Cap": 138.0},
	}))
	var c workout.Compiled
	json.Unmarshal([]byte(resultText(t, res)), &c)
	st := c.Steps[0]
	if st.HRHighEncoded == nil || *st.HRHighEncoded != 238 || st.HRLowEncoded != nil {
		t.Errorf("bounds = %v/%v, want nil/238", st.HRLowEncoded, st.HRHighEncoded)
	}
}

// TestCompileWorkoutToolUnknownAthlete verifies an unknown athlete compiles with an open target.
func TestCompileWorkoutToolUnknownAthlete(t *testing.T) {
	h, _ := newTestHandlers()

	res, _ := h.compileWorkout(context.Background(), callRequest(map[string]any{
		"workout":    decodeArg(t, `{"segments":[{"name":"Easy","duration_min":30}]}`),
		"athlete_id": "nobody",
	}))
	var c workout.Compiled
	json.Unmarshal([]byte(resultText(t, res)), &c)
	if len(c.Steps) != 1 || c.Steps[0].TargetKind != workout.TargetOpen {
		t.Errorf("steps = %+v, want one open step", c.Steps)
	}
}

// TestCompileWorkoutToolErrors verifies validation failures and empty compilations are tool errors.
func TestCompileWorkoutToolErrors(t *testing.T) {
	h, _ := newTestHandlers()

	for _, doc := range []string{`{"segments":[]}`, `{"segments":[{"name":"A","duration_min":"0"}]}`} {
		res, err := h.compileWorkout(context.Background(), callRequest(map[string]any{"workout": decodeArg(t, doc)}))
		if err != nil {
			t.Fatal(err)
		}
		if !res.IsError {
			t.Errorf("%s: expected tool error", doc)
		}
	}
}

// TestGetAthleteConstraintsTool verifies the default athlete and the not-found path.
func TestGetAthleteConstraintsTool(t *testing.T) {
	h, _ := newTestHandlers()

	res, _ := h.getAthleteConstraints(context.Background(), callRequest(nil))
	text := resultText(t, res)
	if res.IsError || !strings.Contains(text, `"z2_hr_cap":150`) || !strings.Contains(text, `"z3_hr_floor":140`) {
		t.Errorf("result = %s", text)
	}

	res, _ = h.getAthleteConstraints(context.Background(), callRequest(map[string]any{"athlete_id": "bob"}))
	if !res.IsError {
		t.Error("unknown athlete: expected tool error")
	}
}

// TestSaveAndListPlannedWorkouts verifies saving derives the title and listing honours the context athlete.
func TestSaveAndListPlannedWorkouts(t *testing.T) {
	h, ds := newTestHandlers()

	res, _ := h.savePlannedWorkout(context.Background(), callRequest(map[string]any{
		"date":    "2026-03-03",
		"workout": decodeArg(t, tempo),
	}))
	if res.IsError {
		t.Fatalf("save: %s", resultText(t, res))
	}
	if len(ds.plans) != 1 || ds.plans[0].Title != "Tempo" || ds.plans[0].AthleteID != "ana" {
		t.Fatalf("plans = %+v", ds.plans)
	}
	if got := ds.plans[0].PlanDate.Format("2006-01-02"); got != "2026-03-03" {
		t.Errorf("plan date = %s", got)
	}

	res, _ = h.listPlannedWorkouts(WithAthleteID(context.Background(), "ana"), callRequest(map[string]any{"start": "2026-03-01"}))
	var plans []models.PlannedWorkoutRow
	if err := json.Unmarshal([]byte(resultText(t, res)), &plans); err != nil {
		t.Fatal(err)
	}
	if len(plans) != 1 {
		t.Errorf("got %d plans, want 1", len(plans))
	}

	res, _ = h.listPlannedWorkouts(context.Background(), callRequest(map[string]any{"athlete_id": "carol"}))
	if ds.queried != "carol" || strings.TrimSpace(resultText(t, res)) != "[]" {
		t.Errorf("carol: queried %q, result %s", ds.queried, resultText(t, res))
	}
}

// TestSavePlannedWorkoutToolRejects verifies bad dates and invalid workouts are not saved.
func TestSavePlannedWorkoutToolRejects(t *testing.T) {
	h, ds := newTestHandlers()

	cases := []map[string]any{
		{"workout": decodeArg(t, tempo)},
		{"date": "tomorrow", "workout": decodeArg(t, tempo)},
		{"date": "2026-03-03", "workout": decodeArg(t, `{"title":"x"}`)},
	}
	for i, args := range cases {
		res, _ := h.savePlannedWorkout(context.Background(), callRequest(args))
		if !res.IsError {
			t.Errorf("case %d: expected tool error", i)
		}
	}
	if len(ds.plans) != 0 {
		t.Errorf("plans saved: %d", len(ds.plans))
	}
}

// TestHRTargetRulesResource verifies the rules resource exposes the offset and keyword order.
func TestHRTargetRulesResource(t *testing.T) {
	h, _ := newTestHandlers()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "ultracoach://hr_target_rules"

	contents, err := h.hrTargetRules(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	var rules struct {
		Offset   int                   `json:"heart_rate_offset"`
		Keywords []workout.KeywordRule `json:"intensity_keywords"`
		Aliases  map[string][]string   `json:"aliases"`
	}
	if err := json.Unmarshal([]byte(text), &rules); err != nil {
		t.Fatal(err)
	}
	if rules.Offset != 100 {
		t.Errorf("offset = %d, want 100", rules.Offset)
	}
	if z2 := rules.Aliases["z2_hr_cap"]; len(z2) != 3 || z2[0] != "z2_hr_cap" {
		t.Errorf("z2_hr_cap aliases = %v", z2)
	}
	if len(rules.Keywords) != 3 || rules.Keywords[0].Intensity != workout.IntensityWarmup {
		t.Errorf("keywords = %+v", rules.Keywords)
	}
}

// TestAthleteIDContext verifies the context helpers.
func TestAthleteIDContext(t *testing.T) {
	if id := AthleteIDFromContext(context.Background()); id != "" {
		t.Errorf("empty context = %q, want empty", id)
	}
	if id := AthleteIDFromContext(WithAthleteID(context.Background(), "ana")); id != "ana" {
		t.Errorf("AthleteIDFromContext = %q, want ana", id)
	}
}

// TestDefaultTimeRange verifies the forward-looking default and parsing.
func TestDefaultTimeRange(t *testing.T) {
	start, end, err := defaultTimeRange("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := end.Sub(start); diff != 14*24*time.Hour {
		t.Errorf("default range = %v, want 336h", diff)
	}
	if start.Hour() != 0 || start.Minute() != 0 {
		t.Errorf("default start = %v, want midnight", start)
	}

	start, end, err = defaultTimeRange("2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Day() != 1 || end.Day() != 31 {
		t.Errorf("range = %v..%v", start, end)
	}

	start, _, err = defaultTimeRange("2024-06-15T10:30:00Z", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	if _, _, err = defaultTimeRange("not-a-date", ""); err == nil {
		t.Error("expected error for invalid date")
	}
}
