package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/dental-assistant/internal/catalog"
	"github.com/wolfman30/dental-assistant/internal/conversation"
	"github.com/wolfman30/dental-assistant/internal/dialog"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

type fakeChat struct {
	mu       sync.Mutex
	requests []conversation.MessageRequest
	history  map[string][]conversation.Message
	err      error
}

func (f *fakeChat) ProcessMessage(_ context.Context, req conversation.MessageRequest) (*conversation.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &conversation.Response{
		SessionID: req.SessionID,
		Outcome: &dialog.Outcome{
			Response: catalog.Response{Text: "eco: " + req.Message},
			State:    dialog.Idle,
		},
		Timestamp: time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeChat) History(_ context.Context, id string) ([]conversation.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs, ok := f.history[id]
	if !ok {
		return nil, conversation.ErrSessionNotFound
	}
	return msgs, nil
}

func dial(t *testing.T, h *Handler, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	return msg
}

func TestWebSocket_NewSession(t *testing.T) {
	chat := &fakeChat{}
	h := NewHandler(chat, func() string { return "sess-new" }, logging.Discard())
	conn := dial(t, h, "")

	first := receive(t, conn)
	assert.Equal(t, "session", first.Type)
	assert.Equal(t, "sess-new", first.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	assert.Equal(t, "pong", receive(t, conn).Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "hola"}))
	out := receive(t, conn)
	assert.Equal(t, "outcome", out.Type)
	assert.Equal(t, "eco: hola", out.Text)
	require.NotNil(t, out.Outcome)
	assert.Equal(t, dialog.Idle, out.Outcome.State)

	chat.mu.Lock()
	defer chat.mu.Unlock()
	require.Len(t, chat.requests, 1)
	assert.Equal(t, "sess-new", chat.requests[0].SessionID)
	assert.Equal(t, conversation.ChannelWebSocket, chat.requests[0].Channel)
}

func TestWebSocket_ResumeSendsHistory(t *testing.T) {
	chat := &fakeChat{history: map[string][]conversation.Message{
		"sess1": {
			{Role: conversation.ChatRoleUser, Text: "quiero una cita", Timestamp: time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)},
			{Role: conversation.ChatRoleAssistant, Text: "¿Ya es paciente?", Timestamp: time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)},
		},
	}}
	h := NewHandler(chat, nil, logging.Discard())
	conn := dial(t, h, "?session=sess1")

	assert.Equal(t, "sess1", receive(t, conn).SessionID)
	hist := receive(t, conn)
	assert.Equal(t, "history", hist.Type)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "user", hist.Messages[0].Role)
	assert.Equal(t, "2025-03-05T09:00:00Z", hist.Messages[0].Timestamp)
}

func TestWebSocket_SideChannelAndErrors(t *testing.T) {
	chat := &fakeChat{err: dialog.ErrInvalidSideChannel}
	h := NewHandler(chat, func() string { return "s" }, logging.Discard())
	conn := dial(t, h, "")
	receive(t, conn)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{
		Type:        "message",
		SideChannel: &dialog.SideChannel{Date: "2025-13-40"},
	}))
	out := receive(t, conn)
	assert.Equal(t, "error", out.Type)
	assert.Equal(t, "Fecha u hora no válida", out.Text)

	chat.mu.Lock()
	require.NotNil(t, chat.requests[0].SideChannel)
	assert.Equal(t, "2025-13-40", chat.requests[0].SideChannel.Date)
	chat.err = errors.New("redis down")
	chat.mu.Unlock()

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "hola"}))
	assert.Contains(t, receive(t, conn).Text, "algo salió mal")
}

func TestHandleHistory(t *testing.T) {
	chat := &fakeChat{history: map[string][]conversation.Message{
		"sess1": {{Role: conversation.ChatRoleUser, Text: "hola"}},
	}}
	h := NewHandler(chat, nil, logging.Discard())

	w := httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/webchat/history?session=sess1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "hola", resp.Messages[0].Text)

	w = httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/webchat/history?session=unknown", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())

	w = httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/webchat/history", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
