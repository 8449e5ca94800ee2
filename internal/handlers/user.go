package handlers

import (
	"net/http"

	"deo-backend/internal/middleware"
	"deo-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles account and session HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// SignUpRequest represents the request body for registration
type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest represents the request body for signing in
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PushTokenRequest represents the request body for registering a device
type PushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// SignUp handles POST /api/v1/auth/signup
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.userService.SignUp(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondServiceError(w, "", err, "Registration failed")
		return
	}

	log.Info().
		Str("user_id", result.User.ID).
		Str("username", result.User.Username).
		Msg("User registered")

	respondJSON(w, http.StatusCreated, result)
}

// SignIn handles POST /api/v1/auth/signin
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.userService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, "", err, "Login failed")
		return
	}

	log.Info().Str("user_id", result.User.ID).Msg("User signed in")
	respondJSON(w, http.StatusOK, result)
}

// SignOut handles POST /api/v1/auth/signout
func (h *UserHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		respondError(w, services.ErrNoSession.Error(), http.StatusUnauthorized)
		return
	}

	if err := h.userService.SignOut(r.Context(), *session); err != nil {
		respondServiceError(w, session.UserID, err, "Failed to sign out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.Me(r.Context(), userID)
	if err != nil {
		respondServiceError(w, userID, err, "Failed to get profile")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdatePushToken handles PUT /api/v1/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req PushTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), userID, req.PushToken); err != nil {
		respondServiceError(w, userID, err, "Failed to update push token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
