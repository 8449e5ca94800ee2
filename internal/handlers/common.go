package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"deo-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends v as a JSON body
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// respondServiceError maps a service error to a status code and logs
// anything unexpected
func respondServiceError(w http.ResponseWriter, userID string, err error, action string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNoSession), errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, rootMessage(err), http.StatusUnauthorized)
	case errors.Is(err, services.ErrNotOwner):
		respondError(w, services.ErrNotOwner.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, services.ErrNotFound.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrEmailTaken):
		respondError(w, services.ErrEmailTaken.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrShareUnavailable):
		respondError(w, services.ErrShareUnavailable.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, services.ErrWriteFailed):
		log.Error().Err(err).Str("user_id", userID).Msg(action)
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:     services.ErrWriteFailed.Error(),
			Retryable: true,
		})
	default:
		log.Error().Err(err).Str("user_id", userID).Msg(action)
		respondError(w, action, http.StatusInternalServerError)
	}
}

func rootMessage(err error) string {
	if errors.Is(err, services.ErrInvalidCredentials) {
		return services.ErrInvalidCredentials.Error()
	}
	return services.ErrNoSession.Error()
}

// decodeJSON decodes the request body into v
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
