package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"deo-backend/internal/middleware"
	"deo-backend/internal/models"
	"deo-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients send no Origin
	},
}

// WebSocketHandler streams live collection snapshots over WebSocket
type WebSocketHandler struct {
	hub         *services.WSHub
	gate        middleware.SessionResolver
	collections map[string]services.Subscribable
}

// NewWebSocketHandler creates a new WebSocket handler serving the named collections
func NewWebSocketHandler(
	hub *services.WSHub,
	gate middleware.SessionResolver,
	collections map[string]services.Subscribable,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		gate:        gate,
		collections: collections,
	}
}

// Collections returns the names clients may subscribe to
func (h *WebSocketHandler) Collections() []string {
	names := make([]string, 0, len(h.collections))
	for name := range h.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	session, err := h.gate.CurrentUser(r.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrNoSession) {
			respondError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Msg("Failed to resolve WebSocket session")
		respondError(w, "failed to resolve session", http.StatusInternalServerError)
		return
	}

	// Upgrade connection
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := h.hub.Register(*session, conn)
	defer h.hub.Unregister(client)

	subs := make(map[string]*services.Subscription)
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	log.Info().Str("user_id", session.UserID).Msg("WebSocket connection established")

	ctx := r.Context()
	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", session.UserID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to parse WebSocket message")
			h.sendError(client, "Invalid message format")
			continue
		}

		if err := h.handleMessage(ctx, client, subs, msg); err != nil {
			log.Error().Err(err).Str("user_id", session.UserID).Str("type", msg.Type).Msg("Failed to handle message")
			h.sendError(client, err.Error())
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, client *services.WSClient, subs map[string]*services.Subscription, msg services.WSMessage) error {
	switch msg.Type {
	case "subscribe":
		return h.handleSubscribe(ctx, client, subs, msg.Collection)
	case "unsubscribe":
		if sub, ok := subs[msg.Collection]; ok {
			sub.Close()
			delete(subs, msg.Collection)
		}
		return nil
	default:
		return errors.New("unknown message type")
	}
}

// handleSubscribe opens a feed subscription and pumps its snapshots to the client
func (h *WebSocketHandler) handleSubscribe(ctx context.Context, client *services.WSClient, subs map[string]*services.Subscription, name string) error {
	if sub, ok := subs[name]; ok {
		if !sub.Closed() {
			return nil
		}
		// delivery stopped on its own; open a fresh one
		delete(subs, name)
	}
	collection, ok := h.collections[name]
	if !ok {
		return errors.New("unknown collection")
	}

	sub, err := collection.Subscribe(ctx, client.Session.UserID, client.Session.ID)
	if err != nil {
		return err
	}
	subs[name] = sub

	go pumpSnapshots(client.Session, client, sub)
	return nil
}

func pumpSnapshots(session models.Session, client *services.WSClient, sub *services.Subscription) {
	for snap := range sub.Snapshots() {
		if err := client.Send(services.SnapshotMessage(snap)); err != nil {
			log.Debug().Err(err).Str("user_id", session.UserID).Str("scope", sub.Scope()).Msg("Stopped snapshot delivery")
			sub.Close()
			return
		}
	}
}

// sendError sends an error message to the client
func (h *WebSocketHandler) sendError(client *services.WSClient, message string) {
	if err := client.Send(services.WSMessage{Type: "error", Message: message}); err != nil {
		log.Debug().Err(err).Str("session_id", client.Session.ID).Msg("Failed to send error message")
	}
}
