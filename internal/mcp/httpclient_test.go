package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/ultracoach/internal/models"
	"github.com/claude/ultracoach/internal/storage"
	"github.com/google/uuid"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestGetAthlete verifies the athlete profile is fetched and decoded.
func TestGetAthlete(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/athletes/ana": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method = %s, want GET", r.Method)
			}
			z2 := 150.0
			writeTestJSON(t, w, models.Athlete{AthleteID: "ana", Name: "Ana", Z2HRCap: &z2})
		},
	})
	defer ts.Close()

	a, err := NewHTTPClient(ts.URL, "").GetAthlete(context.Background(), "ana")
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "Ana" || a.Z2HRCap == nil || *a.Z2HRCap != 150 {
		t.Errorf("athlete = %+v", a)
	}
}

// TestGetAthleteNotFound verifies a 404 maps to storage.ErrNotFound.
func TestGetAthleteNotFound(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/athletes/nobody": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"athlete nobody: not found"}`))
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, "").GetAthlete(context.Background(), "nobody")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestQueryPlannedWorkouts verifies the time range is sent as RFC 3339 query params.
func TestQueryPlannedWorkouts(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/athletes/ana/plans": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("start"); got != "2026-03-01T00:00:00Z" {
				t.Errorf("start=%q", got)
			}
			if got := r.URL.Query().Get("end"); got != "2026-03-15T00:00:00Z" {
				t.Errorf("end=%q", got)
			}
			writeTestJSON(t, w, []models.PlannedWorkoutRow{
				{ID: uuid.New(), AthleteID: "ana", PlanDate: start, Title: "Long Run", Workout: json.RawMessage(`{"segments":[]}`)},
			})
		},
	})
	defer ts.Close()

	plans, err := NewHTTPClient(ts.URL, "").QueryPlannedWorkouts(context.Background(), "ana", start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 1 || plans[0].Title != "Long Run" {
		t.Errorf("plans = %+v", plans)
	}
}

// TestSavePlannedWorkout verifies the POST body and the API key header.
func TestSavePlannedWorkout(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/athletes/ana/plans": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if got := r.Header.Get("X-API-Key"); got != "k" {
				t.Errorf("X-API-Key = %q, want k", got)
			}
			var body struct {
				PlanDate string          `json:"plan_date"`
				Workout  json.RawMessage `json:"workout"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.PlanDate != "2026-03-03" {
				t.Errorf("plan_date = %q", body.PlanDate)
			}
			w.WriteHeader(http.StatusCreated)
			writeTestJSON(t, w, models.PlannedWorkoutRow{ID: uuid.New(), AthleteID: "ana", Title: "Tempo", Workout: body.Workout})
		},
	})
	defer ts.Close()

	saved, err := NewHTTPClient(ts.URL, "k").SavePlannedWorkout(context.Background(), models.PlannedWorkoutRow{
		AthleteID: "ana",
		PlanDate:  time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		Workout:   json.RawMessage(`{"title":"Tempo","segments":[{"name":"T","duration_min":20}]}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.Title != "Tempo" || saved.ID == uuid.Nil {
		t.Errorf("saved = %+v", saved)
	}
}

// TestHTTPErrorStatus verifies non-2xx responses become errors carrying the body.
func TestHTTPErrorStatus(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/athletes/ana/plans": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid API key"}`, http.StatusForbidden)
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, "bad").SavePlannedWorkout(context.Background(), models.PlannedWorkoutRow{AthleteID: "ana"})
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want a 403 error", err)
	}
}
