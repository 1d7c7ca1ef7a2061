package archive

import "time"

// TranscriptRecord is one finished chat session as stored in S3.
type TranscriptRecord struct {
	Version         string    `json:"version"`
	SessionID       string    `json:"session_id"`
	ArchivedAt      time.Time `json:"archived_at"`
	DurationSeconds int       `json:"duration_seconds"`
	MessageCount    int       `json:"message_count"`
	FinalState      string    `json:"final_state"`
	Outcome         string    `json:"outcome"` // booked|abandoned|browsing
	Messages        []Message `json:"messages"`
}

// Message is a single chat turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	SessionID    string `json:"session_id"`
	S3Key        string `json:"s3_key"`
	Outcome      string `json:"outcome"`
	FinalState   string `json:"final_state"`
	ArchivedAt   string `json:"archived_at"`
	MessageCount int    `json:"message_count"`
}
