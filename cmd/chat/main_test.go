package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/dental-assistant/internal/config"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		LLMProvider:        "none",
		ClinicName:         "Clínica Dental Sonrisa",
		ClinicPhone:        "+34 910 000 000",
		ClinicTimezone:     "Europe/Madrid",
		BookingHorizonDays: 14,
		ClosedWeekday:      time.Sunday,
		ShortWeekday:       time.Saturday,
		OpenHour:           9,
		CloseHour:          20,
		ShortCloseHour:     14,
		SessionTTL:         time.Hour,
	}
}

func TestREPL(t *testing.T) {
	ctx := context.Background()
	chat, cleanup, err := newChat(ctx, testConfig(), logging.Discard())
	require.NoError(t, err)
	defer cleanup()

	in := strings.NewReader("Quiero una cita\n/fecha 02-11-2026\n/reiniciar\n/salir\nnunca llega\n")
	var out bytes.Buffer
	require.NoError(t, repl(ctx, chat, in, &out))

	got := out.String()
	assert.Contains(t, got, "/fecha AAAA-MM-DD")
	assert.Contains(t, got, "entrada no válida")
	assert.Contains(t, got, "Conversación reiniciada.")
	assert.NotContains(t, got, "nunca llega")
}

func TestREPLEndOfInput(t *testing.T) {
	ctx := context.Background()
	chat, cleanup, err := newChat(ctx, testConfig(), logging.Discard())
	require.NoError(t, err)
	defer cleanup()

	var out bytes.Buffer
	assert.NoError(t, repl(ctx, chat, strings.NewReader(""), &out))
}
