package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"email", "mi correo es ana.lopez@example.com gracias", "mi correo es [EMAIL] gracias"},
		{"mobile", "600000000", "[TELÉFONO]"},
		{"grouped", "llámeme al 612 34 56 78", "llámeme al [TELÉFONO]"},
		{"international", "+34 912-345-678", "[TELÉFONO]"},
		{"date untouched", "el 2025-03-10 a las 09:30", "el 2025-03-10 a las 09:30"},
		{"no pii", "Quiero una limpieza dental", "Quiero una limpieza dental"},
		{"name kept", "Me llamo Ana López", "Me llamo Ana López"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ScrubPII(tt.input))
		})
	}
}

func TestScrubMessages(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "test@test.com", Timestamp: time.Now()},
		{Role: "assistant", Content: "¿Cuál es su teléfono?", Timestamp: time.Now()},
	}
	ScrubMessages(msgs)
	assert.Equal(t, "[EMAIL]", msgs[0].Content)
	assert.Equal(t, "¿Cuál es su teléfono?", msgs[1].Content)
}
