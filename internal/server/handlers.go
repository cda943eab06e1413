package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/claude/ultracoach/internal/fitfile"
	"github.com/claude/ultracoach/internal/models"
	"github.com/claude/ultracoach/internal/storage"
	"github.com/claude/ultracoach/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// workoutRequest is the body of the /api/v1/workouts endpoints.
type workoutRequest struct {
	Workout     json.RawMessage     `json:"workout"`
	Constraints workout.Constraints `json:"constraints"`
	AthleteID   string              `json:"athlete_id"`
}

type validationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// decodeWorkoutRequest reads the request body and decodes the workout
// document loosely, so the validator sees exactly what the client sent.
func decodeWorkoutRequest(w http.ResponseWriter, r *http.Request) (*workoutRequest, any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req workoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return nil, nil, false
	}
	var doc any
	if len(req.Workout) > 0 {
		if err := json.Unmarshal(req.Workout, &doc); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout JSON: " + err.Error()})
			return nil, nil, false
		}
	}
	return &req, doc, true
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	_, doc, ok := decodeWorkoutRequest(w, r)
	if !ok {
		return
	}
	errs := workout.Validate(doc)
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, validationResponse{Valid: len(errs) == 0, Errors: errs})
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	c, _, ok := s.compileRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleWorkoutFit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	c, athleteID, ok := s.compileRequest(w, r)
	if !ok {
		return
	}
	s.serveFit(w, r, c, models.FitExport{AthleteID: athleteID, Source: "api"}, start)
}

// compileRequest validates and compiles the workout in the request body,
// writing the error response itself when it cannot.
func (s *Server) compileRequest(w http.ResponseWriter, r *http.Request) (*workout.Compiled, string, bool) {
	req, doc, ok := decodeWorkoutRequest(w, r)
	if !ok {
		return nil, "", false
	}
	if errs := workout.Validate(doc); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Valid: false, Errors: errs})
		return nil, "", false
	}

	constraints := req.Constraints
	if constraints == nil && req.AthleteID != "" {
		a, err := s.store.GetAthlete(r.Context(), req.AthleteID)
		if err != nil {
			writeStoreError(w, err)
			return nil, "", false
		}
		constraints = a.Constraints()
	}

	c, err := workout.Build(doc.(map[string]any), constraints)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return nil, "", false
	}

	athleteID := req.AthleteID
	if athleteID == "" {
		athleteID = s.defaultAthlete
	}
	return c, athleteID, true
}

// serveFit encodes c as a FIT attachment and records the export.
func (s *Server) serveFit(w http.ResponseWriter, r *http.Request, c *workout.Compiled, export models.FitExport, start time.Time) {
	data, err := fitfile.Bytes(c, fitfile.Options{TimeCreated: s.now()})
	// Only callers holding the API key write to the export log.
	if validAPIKey(r.Header.Get("X-API-Key"), s.apiKey) {
		export.Title = c.Title
		export.StepCount = c.StepCount
		export.Bytes = len(data)
		s.logExport(export, err, int(time.Since(start).Milliseconds()))
	}
	if err != nil {
		s.log.Error("fit encode error", "title", c.Title, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", fitfile.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fitFilename(c.Title)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// fitFilename turns a workout title into a safe download name.
func fitFilename(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = "workout"
	}
	return name + ".fit"
}

func (s *Server) handleGetAthlete(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAthlete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handlePutAthlete(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var a models.Athlete
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	a.AthleteID = chi.URLParam(r, "id")
	if a.Name == "" {
		a.Name = a.AthleteID
	}

	saved, err := s.store.UpsertAthlete(r.Context(), a)
	if err != nil {
		s.log.Error("athlete upsert error", "athlete", a.AthleteID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// planRequest is the body of POST /api/v1/athletes/{id}/plans.
type planRequest struct {
	PlanDate string          `json:"plan_date"`
	Workout  json.RawMessage `json:"workout"`
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	date, err := time.Parse(time.DateOnly, req.PlanDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "plan_date must be YYYY-MM-DD"})
		return
	}

	var doc any
	if len(req.Workout) > 0 {
		if err := json.Unmarshal(req.Workout, &doc); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout JSON: " + err.Error()})
			return
		}
	}
	if errs := workout.Validate(doc); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Valid: false, Errors: errs})
		return
	}

	saved, err := s.store.SavePlannedWorkout(r.Context(), models.PlannedWorkoutRow{
		AthleteID: chi.URLParam(r, "id"),
		PlanDate:  date,
		Title:     workout.Title(doc.(map[string]any)),
		Workout:   req.Workout,
	})
	if err != nil {
		s.log.Error("plan save error", "athlete", chi.URLParam(r, "id"), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	start, end, err := parseTimeRange(r, today, today.AddDate(0, 0, 14))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	plans, err := s.store.QueryPlannedWorkouts(r.Context(), chi.URLParam(r, "id"), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if plans == nil {
		plans = []models.PlannedWorkoutRow{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPlan(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePlanFit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := s.loadPlan(w, r)
	if !ok {
		return
	}
	doc, err := p.Document()
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "stored workout is not valid JSON"})
		return
	}

	var constraints workout.Constraints
	a, err := s.store.GetAthlete(r.Context(), p.AthleteID)
	switch {
	case err == nil:
		constraints = a.Constraints()
	case errors.Is(err, storage.ErrNotFound):
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	c, err := workout.Build(doc, constraints)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	planID := p.ID
	s.serveFit(w, r, c, models.FitExport{AthleteID: p.AthleteID, PlanID: &planID, Source: "plan"}, start)
}

func (s *Server) loadPlan(w http.ResponseWriter, r *http.Request) (*models.PlannedWorkoutRow, bool) {
	planID, err := uuid.Parse(chi.URLParam(r, "planID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid plan ID"})
		return nil, false
	}
	p, err := s.store.GetPlannedWorkout(r.Context(), planID)
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	return p, true
}

// writeStoreError maps storage.ErrNotFound to 404 and everything else to 500.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseTimeRange reads start/end query parameters (RFC 3339 or YYYY-MM-DD),
// falling back to the given defaults. A date-only end includes that whole day.
func parseTimeRange(r *http.Request, defStart, defEnd time.Time) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	start, end = defStart, defEnd
	if startStr != "" {
		start, err = time.Parse(time.RFC3339, startStr)
		if err != nil {
			start, err = time.Parse(time.DateOnly, startStr)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %q", startStr)
			}
		}
	}
	if endStr != "" {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse(time.DateOnly, endStr)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %q", endStr)
			}
			end = end.Add(24 * time.Hour)
		}
	}
	return start, end, nil
}
