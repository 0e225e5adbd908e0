// Package ws exposes the conversation orchestrator over a persistent
// WebSocket channel: one connection per user, JSON envelopes in both
// directions, and a hub keeping informational session counters.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lumehealth/intake/internal/conversation"
	"github.com/lumehealth/intake/internal/profile"
)

const writeTimeout = 10 * time.Second

// Conversation is the orchestrator surface the channel needs.
// Implemented by *conversation.Orchestrator.
type Conversation interface {
	Initialize(ctx context.Context, userID string) (conversation.Event, error)
	AnswerFor(ctx context.Context, userID, text, field string) (conversation.Event, error)
	EndSession(userID string)
}

// Handler upgrades HTTP requests to conversational WebSocket sessions.
type Handler struct {
	conv     Conversation
	hub      *Hub
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandler creates a WebSocket handler backed by the given orchestrator and
// hub.
func NewHandler(conv Conversation, hub *Hub) *Handler {
	return &Handler{
		conv: conv,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The service fronts a chat UI served from anywhere; transport
			// auth is out of scope here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: slog.Default(),
	}
}

// ServeHTTP handles GET /ws/{user_id}: upgrade, send the opening turn, then
// pump answers through the orchestrator until the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromPath(r.URL.Path)
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()
	h.hub.register(sessionID)
	defer h.hub.unregister(sessionID)
	defer h.conv.EndSession(userID)

	h.log.Info("conversation connected", "user_id", userID, "session_id", sessionID)

	ev, err := h.conv.Initialize(r.Context(), userID)
	if err != nil {
		h.sendError(conn, err)
		return
	}
	if err := h.send(conn, TypeInitProfile, initPayload(ev)); err != nil {
		return
	}

	h.readLoop(r.Context(), conn, userID)
	h.log.Info("conversation disconnected", "user_id", userID, "session_id", sessionID)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, userID string) {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", "user_id", userID, "error", err)
			}
			return
		}

		text, field, ok := parseInbound(env)
		if !ok {
			h.send(conn, TypeError, errorPayload{Message: "unsupported message type: " + env.Type})
			continue
		}
		if strings.TrimSpace(text) == "" {
			h.send(conn, TypeError, errorPayload{Message: "answer must not be empty"})
			continue
		}

		ev, err := h.conv.AnswerFor(ctx, userID, text, field)
		if err != nil {
			h.sendError(conn, err)
			continue
		}

		msgType, payload := outbound(ev)
		if err := h.send(conn, msgType, payload); err != nil {
			return
		}
	}
}

// parseInbound extracts the answer text and optional field hint from either
// inbound message form.
func parseInbound(env Envelope) (text, field string, ok bool) {
	switch env.Type {
	case TypeUserAnswer:
		var p answerPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return "", "", false
		}
		return p.Answer, p.Field, true
	case TypeUserMessage:
		var p messagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return "", "", false
		}
		return p.Message, "", true
	default:
		return "", "", false
	}
}

func (h *Handler) send(conn *websocket.Conn, msgType string, payload any) error {
	env, err := newEnvelope(msgType, payload)
	if err != nil {
		h.log.Error("encoding websocket payload", "type", msgType, "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(env); err != nil {
		h.log.Warn("websocket write failed", "type", msgType, "error", err)
		return err
	}
	return nil
}

func (h *Handler) sendError(conn *websocket.Conn, err error) {
	var perr *conversation.PersistenceError
	if errors.As(err, &perr) {
		h.send(conn, TypeError, errorPayload{
			Message:   "could not save your answer, please try again",
			Retryable: true,
		})
		return
	}
	h.send(conn, TypeError, errorPayload{Message: "something went wrong processing your message"})
}

// --- outbound payloads ---

type questionData struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

type initData struct {
	Message string          `json:"message"`
	Field   string          `json:"field,omitempty"`
	Hint    string          `json:"hint,omitempty"`
	Profile profile.Profile `json:"profile"`
}

type updateData struct {
	Message       string          `json:"message"`
	UpdatedFields []string        `json:"updated_fields"`
	Field         string          `json:"field,omitempty"`
	Hint          string          `json:"hint,omitempty"`
	Profile       profile.Profile `json:"profile"`
}

type completeData struct {
	Message              string          `json:"message"`
	Profile              profile.Profile `json:"profile"`
	CompletionPercentage float64         `json:"completion_percentage"`
}

func initPayload(ev conversation.Event) initData {
	d := initData{Message: ev.Message, Profile: ev.Profile}
	if q := ev.Question; q != nil {
		d.Field = q.Field
		d.Hint = q.Hint
	}
	return d
}

// outbound maps an orchestrator event to its wire message.
func outbound(ev conversation.Event) (string, any) {
	switch ev.Kind {
	case conversation.EventUpdate:
		d := updateData{
			Message:       ev.Message,
			UpdatedFields: ev.UpdatedFields,
			Profile:       ev.Profile,
		}
		if q := ev.Question; q != nil {
			d.Field = q.Field
			d.Hint = q.Hint
		}
		return TypeProfileUpdate, d

	case conversation.EventComplete:
		return TypeProfileComplete, completeData{
			Message:              ev.Message,
			Profile:              ev.Profile,
			CompletionPercentage: ev.Profile.Completion(),
		}

	default:
		// Questions, re-asks and post-completion acknowledgements.
		d := questionData{Message: ev.Message}
		if q := ev.Question; q != nil {
			d.Field = q.Field
			d.Hint = q.Hint
		}
		return TypeAssistantQuestion, d
	}
}

// userIDFromPath extracts the trailing path segment of /ws/{user_id}.
func userIDFromPath(path string) string {
	trimmed := strings.Trim(path, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[len(parts)-1] == "" {
		return ""
	}
	return parts[len(parts)-1]
}
