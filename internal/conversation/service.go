// Package conversation manages patient chat sessions around the dialog
// engine: session persistence, transcripts and the LLM fallback chain.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/dental-assistant/internal/archive"
	"github.com/wolfman30/dental-assistant/internal/dialog"
	"github.com/wolfman30/dental-assistant/internal/observability/metrics"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// Channel identifies which transport the conversation is happening on.
type Channel string

const (
	ChannelHTTP      Channel = "http"
	ChannelWebSocket Channel = "websocket"
	ChannelTerminal  Channel = "terminal"
)

// Advancer applies one dialog turn.
type Advancer interface {
	Advance(ctx context.Context, turn dialog.Turn) (*dialog.Outcome, error)
}

// MessageRequest represents a single inbound turn.
type MessageRequest struct {
	SessionID   string              `json:"session_id"`
	Message     string              `json:"message"`
	SideChannel *dialog.SideChannel `json:"side_channel,omitempty"`
	Channel     Channel             `json:"-"`
}

// Response is the reply to one turn.
type Response struct {
	SessionID string `json:"session_id"`
	*dialog.Outcome
	Timestamp time.Time `json:"timestamp"`
}

// Archiver receives a session's transcript before it is forgotten.
type Archiver interface {
	Archive(ctx context.Context, input archive.TranscriptInput)
}

// Service serialises turns per session and persists the result.
type Service struct {
	engine   Advancer
	store    SessionStore
	archiver Archiver
	metrics  *metrics.DialogMetrics
	logger   *logging.Logger
	now      func() time.Time
	newID    func() string

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithServiceMetrics records turn latency per channel.
func WithServiceMetrics(m *metrics.DialogMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithArchiver archives transcripts on Reset.
func WithArchiver(a Archiver) ServiceOption {
	return func(s *Service) { s.archiver = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires the engine to a session store.
func NewService(engine Advancer, store SessionStore, logger *logging.Logger, opts ...ServiceOption) *Service {
	if engine == nil || store == nil {
		panic("conversation: engine and session store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		engine: engine,
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		locks:  make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession opens an idle session with a fresh ID.
func (s *Service) StartSession(ctx context.Context) (*Session, error) {
	now := s.now().UTC()
	sess := &Session{ID: s.newID(), State: dialog.Idle, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ProcessMessage applies one turn to the session named in req, creating it
// when the ID is empty, unknown or expired. Input errors leave the stored
// session untouched.
func (s *Service) ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error) {
	start := s.now()
	id := req.SessionID
	if id == "" {
		id = s.newID()
	}

	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Load(ctx, id)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		now := s.now().UTC()
		sess = &Session{ID: id, State: dialog.Idle, CreatedAt: now}
	case err != nil:
		return nil, err
	}

	out, err := s.engine.Advance(ctx, dialog.Turn{
		Utterance:   req.Message,
		State:       sess.State,
		Draft:       sess.Draft,
		SideChannel: req.SideChannel,
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sess.appendHistory(
		Message{Role: ChatRoleUser, Text: describeInput(req), Timestamp: now},
		Message{Role: ChatRoleAssistant, Text: out.Text, Timestamp: now},
	)
	sess.State = out.State
	sess.Draft = out.Draft
	if out.AppointmentID != 0 {
		sess.Booked = append(sess.Booked, out.AppointmentID)
	}
	sess.UpdatedAt = now
	if err := s.store.Save(ctx, sess); err != nil {
		// The turn already happened (possibly a booking); reply anyway.
		s.logger.Error("failed to save session", "session_id", id, "state", out.State, "error", err)
	}

	channel := req.Channel
	if channel == "" {
		channel = ChannelHTTP
	}
	s.metrics.ObserveTurnLatency(string(channel), s.now().Sub(start).Seconds())

	return &Response{SessionID: id, Outcome: out, Timestamp: now}, nil
}

// History returns the session transcript.
func (s *Service) History(ctx context.Context, id string) ([]Message, error) {
	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.History, nil
}

// Reset forgets a session, archiving its transcript first when an
// archiver is configured.
func (s *Service) Reset(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	if s.archiver != nil {
		sess, err := s.store.Load(ctx, id)
		switch {
		case err == nil:
			s.archiver.Archive(ctx, transcriptOf(sess))
		case !errors.Is(err, ErrSessionNotFound):
			s.logger.Warn("failed to load session for archive", "session_id", id, "error", err)
		}
	}
	return s.store.Delete(ctx, id)
}

func transcriptOf(sess *Session) archive.TranscriptInput {
	msgs := make([]archive.Message, 0, len(sess.History))
	for _, m := range sess.History {
		msgs = append(msgs, archive.Message{Role: m.Role, Content: m.Text, Timestamp: m.Timestamp})
	}
	return archive.TranscriptInput{
		SessionID:  sess.ID,
		FinalState: string(sess.State),
		Booked:     len(sess.Booked) > 0,
		MidBooking: sess.State.InBookingFlow(),
		Messages:   msgs,
	}
}

// lock serialises turns for id within this process only. Replicas sharing a
// Redis session store do not coordinate.
func (s *Service) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func describeInput(req MessageRequest) string {
	if req.Message != "" || req.SideChannel == nil {
		return req.Message
	}
	switch {
	case req.SideChannel.Date != "" && req.SideChannel.Time != "":
		return fmt.Sprintf("[%s %s]", req.SideChannel.Date, req.SideChannel.Time)
	case req.SideChannel.Date != "":
		return fmt.Sprintf("[%s]", req.SideChannel.Date)
	default:
		return fmt.Sprintf("[%s]", req.SideChannel.Time)
	}
}
