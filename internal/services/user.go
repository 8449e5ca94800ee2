package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"deo-backend/internal/models"
	"deo-backend/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserStore persists user accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
}

// UserService handles registration, sign-in and profiles
type UserService struct {
	users    UserStore
	gate     *SessionGate
	clock    Clock
	hashCost int
}

// NewUserService creates a new user service
func NewUserService(users UserStore, gate *SessionGate, clock Clock) *UserService {
	return &UserService{
		users:    users,
		gate:     gate,
		clock:    clock,
		hashCost: bcrypt.DefaultCost,
	}
}

// AuthResult is returned by sign-up and sign-in
type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	SessionID string       `json:"session_id"`
}

// SignUp registers a user, creates the profile document and opens a session
func (s *UserService) SignUp(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: please fill in all fields", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: the email address is badly formatted", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password should be at least %d characters", ErrValidation, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return s.openSession(ctx, user)
}

// SignIn verifies credentials and opens a session
func (s *UserService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: please enter email and password", ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.openSession(ctx, user)
}

// SignOut ends the session
func (s *UserService) SignOut(ctx context.Context, session models.Session) error {
	return s.gate.Close(ctx, session)
}

// Me returns the user's profile
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdatePushToken stores the device token used for streak reminders.
// An empty token clears it.
func (s *UserService) UpdatePushToken(ctx context.Context, userID, pushToken string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	var token *string
	if t := strings.TrimSpace(pushToken); t != "" {
		token = &t
	}
	if err := s.users.UpdatePushToken(ctx, userID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func (s *UserService) openSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	token, session, err := s.gate.Open(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, SessionID: session.ID}, nil
}
