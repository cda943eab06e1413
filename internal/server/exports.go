package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/ultracoach/internal/models"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleExports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	exports, err := s.store.QueryFitExports(r.Context(), r.URL.Query().Get("athlete"), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if exports == nil {
		exports = []models.FitExport{}
	}
	writeJSON(w, http.StatusOK, exports)
}

func (s *Server) handleAthleteStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetAthleteStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// logExport records a FIT export attempt to the fit_exports table. Failures
// are logged and never surface to the client.
func (s *Server) logExport(e models.FitExport, exportErr error, durationMs int) {
	e.Status = "success"
	if exportErr != nil {
		e.Status = "error"
		msg := exportErr.Error()
		e.ErrorMessage = &msg
	}
	e.DurationMs = &durationMs

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.store.InsertFitExport(ctx, e); err != nil {
		s.log.Error("failed to log export", "source", e.Source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout
// so export logging outlives a cancelled request.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
