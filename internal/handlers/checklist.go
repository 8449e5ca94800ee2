package handlers

import (
	"net/http"

	"deo-backend/internal/middleware"
	"deo-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// ChecklistHandler handles the daily prayer checklist
type ChecklistHandler struct {
	checklistService *services.ChecklistService
}

// NewChecklistHandler creates a new checklist handler
func NewChecklistHandler(checklistService *services.ChecklistService) *ChecklistHandler {
	return &ChecklistHandler{checklistService: checklistService}
}

// ToggleRequest carries the value the client currently shows
type ToggleRequest struct {
	Done *bool `json:"done"`
}

// GetChecklist handles GET /api/v1/checklist
func (h *ChecklistHandler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	view, err := h.checklistService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to get checklist")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// ToggleItem handles POST /api/v1/checklist/{item_id}/toggle
func (h *ChecklistHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	itemID := chi.URLParam(r, "item_id")

	var req ToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Done == nil {
		respondError(w, "done is required", http.StatusBadRequest)
		return
	}

	item, err := h.checklistService.Toggle(r.Context(), userID, itemID, *req.Done)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to toggle checklist item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}
