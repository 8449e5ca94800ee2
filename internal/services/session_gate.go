package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"deo-backend/internal/models"
	"deo-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionStore persists sessions
type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Revoke(ctx context.Context, id string, at time.Time) (bool, error)
}

// SessionEventKind names a session transition
type SessionEventKind string

const (
	SessionSignedIn  SessionEventKind = "signed_in"
	SessionSignedOut SessionEventKind = "signed_out"
)

// SessionEvent is emitted on every session transition
type SessionEvent struct {
	Kind    SessionEventKind
	Session models.Session
}

// SessionGate resolves tokens to the current user and tells listeners
// when a session starts or ends
type SessionGate struct {
	sessions  SessionStore
	jwtSecret []byte
	ttl       time.Duration
	clock     Clock

	mu        sync.RWMutex
	listeners map[int]func(SessionEvent)
	nextID    int
}

// NewSessionGate creates a session gate signing tokens with jwtSecret
func NewSessionGate(sessions SessionStore, jwtSecret string, expDays int, clock Clock) *SessionGate {
	return &SessionGate{
		sessions:  sessions,
		jwtSecret: []byte(jwtSecret),
		ttl:       time.Duration(expDays) * 24 * time.Hour,
		clock:     clock,
		listeners: make(map[int]func(SessionEvent)),
	}
}

// OnChange registers fn for session transitions. The returned func removes it.
func (g *SessionGate) OnChange(fn func(SessionEvent)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.listeners, id)
	}
}

func (g *SessionGate) notify(ev SessionEvent) {
	g.mu.RLock()
	fns := make([]func(SessionEvent), 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Open starts a session for user and returns its signed token
func (g *SessionGate) Open(ctx context.Context, user *models.User) (string, *models.Session, error) {
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: g.clock.Now(),
	}
	if err := g.sessions.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to open session: %w: %w", ErrWriteFailed, err)
	}

	token, err := g.GenerateJWT(session)
	if err != nil {
		return "", nil, err
	}

	log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("Session opened")
	g.notify(SessionEvent{Kind: SessionSignedIn, Session: *session})
	return token, session, nil
}

// Close ends a session. Closing an ended session is a no-op.
func (g *SessionGate) Close(ctx context.Context, session models.Session) error {
	revoked, err := g.sessions.Revoke(ctx, session.ID, g.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to close session: %w: %w", ErrWriteFailed, err)
	}
	if !revoked {
		return nil
	}

	log.Info().Str("user_id", session.UserID).Str("session_id", session.ID).Msg("Session closed")
	g.notify(SessionEvent{Kind: SessionSignedOut, Session: session})
	return nil
}

// CurrentUser returns the live session behind token, or ErrNoSession
func (g *SessionGate) CurrentUser(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	sessionID, err := g.ValidateJWT(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
	}

	session, err := g.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.RevokedAt != nil {
		return nil, ErrNoSession
	}
	return session, nil
}

// GenerateJWT generates a JWT token for a session
func (g *SessionGate) GenerateJWT(session *models.Session) (string, error) {
	now := g.clock.Now()
	claims := jwt.MapClaims{
		"sid":     session.ID,
		"user_id": session.UserID,
		"email":   session.Email,
		"exp":     now.Add(g.ttl).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(g.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the session ID
func (g *SessionGate) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.jwtSecret, nil
	}, jwt.WithTimeFunc(g.clock.Now))

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	sessionID, ok := claims["sid"].(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("sid not found in token")
	}

	return sessionID, nil
}
