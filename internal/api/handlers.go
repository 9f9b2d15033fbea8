package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/habitloop/habitloop/internal/domain"
)

// handleStatus returns the full progression snapshot for the current month.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleBaseline returns the baseline for the window ending today.
func (s *Server) handleBaseline(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.Baselines.BaselineFor(time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleRatings returns the star rating report.
func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Ratings.Report(time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleRecordActivity ingests one day of activity counts.
func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	var rec domain.DailyActivityRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.engine.RecordActivity(r.Context(), rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded", "day": rec.Day})
}

// handleCurrentChallenge returns this month's active challenge.
func (s *Server) handleCurrentChallenge(w http.ResponseWriter, r *http.Request) {
	month := time.Now().Format(domain.MonthFormat)
	ch, _, err := s.engine.Tracker.Sync(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ch == nil {
		writeError(w, http.StatusNotFound, "no active challenge for "+month)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// handleGenerate starts the current month, generating its challenge.
// Idempotent: an existing challenge is returned with a warning.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	month := time.Now().Format(domain.MonthFormat)
	res, err := s.engine.StartMonth(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleStreak returns the consistency streak state, recomputed.
func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Streaks.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleDebt returns outstanding warm-up debt.
func (s *Server) handleDebt(w http.ResponseWriter, r *http.Request) {
	debt, err := s.engine.Streaks.Debt()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, debt)
}

// handleWarmUp records a warm-up payment for a missed day.
func (s *Server) handleWarmUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MissedDay string `json:"missed_day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	st, err := s.engine.Streaks.PayWarmUp(r.Context(), req.MissedDay)
	if err != nil {
		if errors.Is(err, domain.ErrFutureDay) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleLifecycle returns a month's lifecycle state with its transition
// history and error log.
func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	if _, err := time.Parse(domain.MonthFormat, month); err != nil {
		writeError(w, http.StatusBadRequest, "invalid month: "+month)
		return
	}

	state, err := s.engine.Lifecycle.Ensure(r.Context(), month)
	if err != nil {
		if errors.Is(err, domain.ErrMonthClosed) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	history, err := s.engine.Lifecycle.History(month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	errs, err := s.engine.Lifecycle.Errors(month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":       state,
		"transitions": history,
		"errors":      errs,
	})
}

// handleCloseMonth finalizes a month's challenge cycle.
func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	ch, err := s.engine.CloseMonth(r.Context(), month)
	if err != nil {
		if errors.Is(err, domain.ErrChallengeNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, domain.ErrMonthClosed) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// handlePreview generates the next month's challenge as a preview.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	res, err := s.engine.PreviewNext(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
