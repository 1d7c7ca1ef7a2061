package archive

import (
	"regexp"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// Spanish numbers: optional +34/0034, nine digits starting 6-9, free grouping.
	phoneRe = regexp.MustCompile(`(?:(?:\+|00)34[\s.-]?)?[6-9](?:[\s.-]?\d){8}`)
)

// ScrubPII replaces emails with [EMAIL] and phone numbers with [TELÉFONO].
// Names are kept so transcripts stay readable.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	return phoneRe.ReplaceAllString(text, "[TELÉFONO]")
}

// ScrubMessages scrubs msgs in place.
func ScrubMessages(msgs []Message) {
	for i := range msgs {
		msgs[i].Content = ScrubPII(msgs[i].Content)
	}
}
