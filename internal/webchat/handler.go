// Package webchat serves the patient chat over a WebSocket.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/dental-assistant/internal/conversation"
	"github.com/wolfman30/dental-assistant/internal/dialog"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// Chatter is the part of conversation.Service the socket needs.
type Chatter interface {
	ProcessMessage(ctx context.Context, req conversation.MessageRequest) (*conversation.Response, error)
	History(ctx context.Context, id string) ([]conversation.Message, error)
}

// Handler manages web chat connections.
type Handler struct {
	chat   Chatter
	logger *logging.Logger
	newID  func() string
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type        string              `json:"type"` // "message", "ping"
	Text        string              `json:"text"`
	SideChannel *dialog.SideChannel `json:"side_channel,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "session", "history", "outcome", "error", "pong"
	Text      string           `json:"text,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
	Outcome   *dialog.Outcome  `json:"outcome,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler.
func NewHandler(chat Chatter, newID func() string, logger *logging.Logger) *Handler {
	if chat == nil {
		panic("webchat: chatter required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{chat: chat, newID: newID, logger: logger}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" && h.newID != nil {
		sessionID = h.newID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
	h.sendHistory(ctx, conn, sessionID)

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
		case "message":
			out := h.process(ctx, sessionID, msg)
			if out.SessionID != "" {
				sessionID = out.SessionID
			}
			if err := websocket.JSON.Send(conn, out); err != nil {
				h.logger.Debug("webchat: send failed", "session_id", sessionID, "error", err)
				return
			}
		}
	}
}

func (h *Handler) sendHistory(ctx context.Context, conn *websocket.Conn, sessionID string) {
	if sessionID == "" {
		return
	}
	msgs, err := h.chat.History(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, conversation.ErrSessionNotFound) {
			h.logger.Warn("webchat: failed to load history", "session_id", sessionID, "error", err)
		}
		return
	}
	if len(msgs) == 0 {
		return
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: toHistory(msgs)})
}

func (h *Handler) process(ctx context.Context, sessionID string, msg InboundMessage) OutboundMessage {
	resp, err := h.chat.ProcessMessage(ctx, conversation.MessageRequest{
		SessionID:   sessionID,
		Message:     msg.Text,
		SideChannel: msg.SideChannel,
		Channel:     conversation.ChannelWebSocket,
	})
	if err != nil {
		return OutboundMessage{Type: "error", SessionID: sessionID, Text: errorText(err)}
	}
	return OutboundMessage{
		Type:      "outcome",
		SessionID: resp.SessionID,
		Text:      resp.Text,
		Timestamp: resp.Timestamp.Format(time.RFC3339),
		Outcome:   resp.Outcome,
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, dialog.ErrEmptyUtterance):
		return "Mensaje vacío"
	case errors.Is(err, dialog.ErrInvalidSideChannel):
		return "Fecha u hora no válida"
	default:
		return "Lo sentimos, algo salió mal. Inténtelo de nuevo."
	}
}

// HandleHistory returns chat history for ?session=.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	history := []HistoryMessage{}
	msgs, err := h.chat.History(r.Context(), sessionID)
	switch {
	case errors.Is(err, conversation.ErrSessionNotFound):
	case err != nil:
		h.logger.Error("webchat: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	default:
		history = toHistory(msgs)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
}

func toHistory(msgs []conversation.Message) []HistoryMessage {
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      string(m.Role),
			Text:      m.Text,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	return history
}
