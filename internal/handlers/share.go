package handlers

import (
	"net/http"

	"deo-backend/internal/middleware"
	"deo-backend/internal/services"
)

// ShareHandler handles free-form shares
type ShareHandler struct {
	shareService *services.ShareService
}

// NewShareHandler creates a new share handler. shareService may be nil.
func NewShareHandler(shareService *services.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// Share handles POST /api/v1/share
func (h *ShareHandler) Share(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if h.shareService == nil {
		respondServiceError(w, userID, services.ErrShareUnavailable, "Failed to share")
		return
	}

	var req services.ShareRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.shareService.Share(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to share")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
