package handlers

import (
	"net/http"

	"deo-backend/internal/middleware"
	"deo-backend/internal/services"
)

// ReflectionHandler handles the reflection journal
type ReflectionHandler struct {
	reflectionService *services.ReflectionService
}

// NewReflectionHandler creates a new reflection handler
func NewReflectionHandler(reflectionService *services.ReflectionService) *ReflectionHandler {
	return &ReflectionHandler{reflectionService: reflectionService}
}

// AddReflectionRequest represents the request body for a journal entry
type AddReflectionRequest struct {
	Body string `json:"body"`
}

// ListReflections handles GET /api/v1/reflections
func (h *ReflectionHandler) ListReflections(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	entries, err := h.reflectionService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to get reflections")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"reflections": entries})
}

// AddReflection handles POST /api/v1/reflections
func (h *ReflectionHandler) AddReflection(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req AddReflectionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.reflectionService.Add(r.Context(), userID, req.Body)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to save reflection")
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}
