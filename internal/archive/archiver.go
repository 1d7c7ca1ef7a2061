package archive

import (
	"context"
	"time"

	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// TranscriptInput is a finished session handed over for archival.
type TranscriptInput struct {
	SessionID  string
	FinalState string
	Booked     bool
	MidBooking bool // the session stopped inside the booking flow
	Messages   []Message
}

// TranscriptArchiver scrubs and stores transcripts before sessions are
// forgotten. Failures are logged, never returned.
type TranscriptArchiver struct {
	store  *Store
	logger *logging.Logger
	now    func() time.Time
}

// NewTranscriptArchiver returns nil if store is not enabled.
func NewTranscriptArchiver(store *Store, logger *logging.Logger) *TranscriptArchiver {
	if !store.Enabled() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TranscriptArchiver{store: store, logger: logger, now: time.Now}
}

// Archive stores a scrubbed copy of input. Empty transcripts are skipped.
func (ta *TranscriptArchiver) Archive(ctx context.Context, input TranscriptInput) {
	if ta == nil || len(input.Messages) == 0 {
		return
	}

	msgs := make([]Message, len(input.Messages))
	copy(msgs, input.Messages)
	ScrubMessages(msgs)

	var durationSec int
	if len(msgs) >= 2 {
		durationSec = int(msgs[len(msgs)-1].Timestamp.Sub(msgs[0].Timestamp).Seconds())
	}

	record := &TranscriptRecord{
		Version:         "1.0",
		SessionID:       input.SessionID,
		ArchivedAt:      ta.now().UTC(),
		DurationSeconds: durationSec,
		MessageCount:    len(msgs),
		FinalState:      input.FinalState,
		Outcome:         outcomeOf(input),
		Messages:        msgs,
	}
	if err := ta.store.ArchiveTranscript(ctx, record); err != nil {
		ta.logger.Error("transcript archive failed", "error", err, "session_id", input.SessionID)
	}
}

func outcomeOf(input TranscriptInput) string {
	switch {
	case input.Booked:
		return "booked"
	case input.MidBooking:
		return "abandoned"
	default:
		return "browsing"
	}
}
