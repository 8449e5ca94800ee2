package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"deo-backend/internal/middleware"
	"deo-backend/internal/services"
	"deo-backend/internal/streak"
)

// StreakHandler handles the daily streak counter
type StreakHandler struct {
	streakService *services.StreakService
	loc           *time.Location
}

// NewStreakHandler creates a new streak handler. Client dates are read in loc.
func NewStreakHandler(streakService *services.StreakService, loc *time.Location) *StreakHandler {
	return &StreakHandler{streakService: streakService, loc: loc}
}

// LogStreakRequest optionally carries the client's local date (YYYY-MM-DD)
type LogStreakRequest struct {
	Today string `json:"today"`
}

// GetStreak handles GET /api/v1/streak
func (h *StreakHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	state, err := h.streakService.Get(r.Context(), userID)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to get streak")
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// LogStreak handles POST /api/v1/streak/log
func (h *StreakHandler) LogStreak(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req LogStreakRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var today *time.Time
	if req.Today != "" {
		d, err := streak.ParseDay(req.Today, h.loc)
		if err != nil {
			respondError(w, "today must be a date in YYYY-MM-DD format", http.StatusBadRequest)
			return
		}
		today = &d
	}

	result, err := h.streakService.Log(r.Context(), userID, today)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to log streak")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
