package handlers

import (
	"net/http"

	"deo-backend/internal/middleware"
	"deo-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// InspirationHandler handles inspirational prayers
type InspirationHandler struct {
	inspirationService *services.InspirationService
}

// NewInspirationHandler creates a new inspiration handler
func NewInspirationHandler(inspirationService *services.InspirationService) *InspirationHandler {
	return &InspirationHandler{inspirationService: inspirationService}
}

// AddInspirationRequest represents the request body for a new inspiration
type AddInspirationRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// UpdateInspirationRequest is a partial update; absent fields are kept
type UpdateInspirationRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// ListInspirations handles GET /api/v1/inspirations
func (h *InspirationHandler) ListInspirations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	list, err := h.inspirationService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to get inspirations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"inspirations": list})
}

// AddInspiration handles POST /api/v1/inspirations
func (h *InspirationHandler) AddInspiration(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req AddInspirationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.inspirationService.Add(r.Context(), userID, req.Title, req.Body)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to add inspiration")
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

// UpdateInspiration handles PATCH /api/v1/inspirations/{inspiration_id}
func (h *InspirationHandler) UpdateInspiration(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := chi.URLParam(r, "inspiration_id")

	var req UpdateInspirationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.inspirationService.Update(r.Context(), userID, id, req.Title, req.Body)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to update inspiration")
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// ShareInspiration handles POST /api/v1/inspirations/{inspiration_id}/share
func (h *InspirationHandler) ShareInspiration(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := chi.URLParam(r, "inspiration_id")

	result, err := h.inspirationService.Share(r.Context(), userID, id)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to share inspiration")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("inspiration_id", id).
		Str("status", string(result.Status)).
		Msg("Inspiration shared")

	respondJSON(w, http.StatusOK, result)
}
