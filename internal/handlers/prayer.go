package handlers

import (
	"net/http"

	"deo-backend/internal/middleware"
	"deo-backend/internal/services"
)

// PrayerHandler handles the personal prayer list
type PrayerHandler struct {
	prayerService *services.PrayerService
}

// NewPrayerHandler creates a new prayer handler
func NewPrayerHandler(prayerService *services.PrayerService) *PrayerHandler {
	return &PrayerHandler{prayerService: prayerService}
}

// AddPrayerRequest represents the request body for a new prayer
type AddPrayerRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ListPrayers handles GET /api/v1/prayers
func (h *PrayerHandler) ListPrayers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	prayers, err := h.prayerService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to get prayers")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"prayers": prayers})
}

// AddPrayer handles POST /api/v1/prayers
func (h *PrayerHandler) AddPrayer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req AddPrayerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	prayer, err := h.prayerService.Add(r.Context(), userID, req.Title, req.Body)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to add prayer")
		return
	}

	respondJSON(w, http.StatusCreated, prayer)
}
