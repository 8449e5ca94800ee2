package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"deo-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteTimeout = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type       string `json:"type"`
	Collection string `json:"collection,omitempty"`
	Initial    bool   `json:"initial,omitempty"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
	Summary    any    `json:"summary,omitempty"`
}

// SnapshotMessage converts a feed snapshot into its wire message
func SnapshotMessage(snap Snapshot) WSMessage {
	return WSMessage{
		Type:       "snapshot",
		Collection: snap.Collection,
		Initial:    snap.Initial,
		Data:       snap.Records,
		Summary:    snap.Summary,
	}
}

// WSClient is one websocket connection bound to a session.
// gorilla/websocket allows a single concurrent writer, so writes are serialized.
type WSClient struct {
	Session models.Session

	mu   sync.Mutex
	conn *websocket.Conn
}

// Send writes a JSON message to the connection
func (c *WSClient) Send(message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// WSHub manages WebSocket connections, one per session
type WSHub struct {
	mu      sync.RWMutex
	clients map[string]*WSClient
}

// NewWSHub creates a new WebSocket hub that drops connections of ended sessions
func NewWSHub(gate *SessionGate) *WSHub {
	h := &WSHub{clients: make(map[string]*WSClient)}
	gate.OnChange(func(ev SessionEvent) {
		if ev.Kind == SessionSignedOut {
			h.EndSession(ev.Session.ID)
		}
	})
	return h
}

// Register registers a new WebSocket connection for a session
func (h *WSHub) Register(session models.Session, conn *websocket.Conn) *WSClient {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if existing, exists := h.clients[session.ID]; exists {
		existing.conn.Close()
	}

	client := &WSClient{Session: session, conn: conn}
	h.clients[session.ID] = client

	log.Info().Str("user_id", session.UserID).Str("session_id", session.ID).Msg("WebSocket connection registered")
	return client
}

// Unregister removes client if it is still the session's connection
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, exists := h.clients[client.Session.ID]; exists && current == client {
		delete(h.clients, client.Session.ID)
		log.Info().Str("user_id", client.Session.UserID).Str("session_id", client.Session.ID).Msg("WebSocket connection unregistered")
	}
	client.conn.Close()
}

// EndSession tells the session's connection it was signed out and closes it
func (h *WSHub) EndSession(sessionID string) {
	h.mu.Lock()
	client, exists := h.clients[sessionID]
	if exists {
		delete(h.clients, sessionID)
	}
	h.mu.Unlock()

	if !exists {
		return
	}
	if err := client.Send(WSMessage{Type: "session_ended"}); err != nil {
		log.Debug().Err(err).Str("session_id", sessionID).Msg("Failed to notify ended session")
	}
	client.conn.Close()
}

// IsOnline checks if a session has a live connection
func (h *WSHub) IsOnline(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.clients[sessionID]
	return exists
}

// Count returns the number of live connections
func (h *WSHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
