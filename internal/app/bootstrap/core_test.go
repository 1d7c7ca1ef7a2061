package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dental-assistant/internal/appointments"
	"github.com/wolfman30/dental-assistant/internal/intent"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

func TestBuildCore(t *testing.T) {
	cfg := testConfig()
	_, profile := BuildProfileStore(nil, cfg)
	store := appointments.NewMemoryStore()

	core, err := BuildCore(CoreDeps{
		Profile: profile,
		Hours:   BuildHours(cfg),
		Store:   store,
		Logger:  logging.Discard(),
	}, cfg.BookingHorizonDays)
	require.NoError(t, err)

	require.NotNil(t, core.Engine)
	assert.Same(t, appointments.Store(store), core.Bookings.Store())
	assert.NotEmpty(t, core.Resolver.ListOpenDays())

	entry, ok := core.Catalog.Lookup(string(intent.RequestAppointment))
	require.True(t, ok)
	assert.NotEmpty(t, entry.Response.Text)
}

func TestBuildCoreRequiresProfileAndStore(t *testing.T) {
	_, err := BuildCore(CoreDeps{Hours: BuildHours(testConfig())}, 14)
	assert.Error(t, err)
}

func TestBuildNotifierDisabledWithoutRecipient(t *testing.T) {
	assert.Nil(t, BuildNotifier(testConfig(), nil, logging.Discard()))
}

func TestBuildEmailSenderFallsBackToStub(t *testing.T) {
	cfg := testConfig()
	cfg.EmailProvider = "sendgrid"

	_, provider := BuildEmailSender(cfg, nil, logging.Discard())
	assert.Equal(t, "stub", provider)

	cfg.EmailProvider = "ses"
	cfg.SESFromEmail = "citas@example.com"
	_, provider = BuildEmailSender(cfg, nil, logging.Discard())
	assert.Equal(t, "stub", provider)

	cfg.EmailProvider = "sendgrid"
	cfg.SendGridAPIKey = "SG.key"
	cfg.SendGridFromEmail = "citas@example.com"
	_, provider = BuildEmailSender(cfg, nil, logging.Discard())
	assert.Equal(t, "sendgrid", provider)
}

func TestBuildCoreNotifierReceivesBookings(t *testing.T) {
	cfg := testConfig()
	_, profile := BuildProfileStore(nil, cfg)
	rec := &recordingNotifier{}

	core, err := BuildCore(CoreDeps{
		Profile:  profile,
		Hours:    BuildHours(cfg),
		Store:    appointments.NewMemoryStore(),
		Notifier: rec,
		Logger:   logging.Discard(),
	}, cfg.BookingHorizonDays)
	require.NoError(t, err)

	days := core.Resolver.ListOpenDays()
	require.NotEmpty(t, days)
	res := core.Bookings.Book(context.Background(), appointments.Appointment{
		FullName: "Ana López",
		Phone:    "612345678",
		Email:    "ana@example.com",
		Kind:     appointments.KindRoutineCheckup,
		Date:     days[0].Date,
		Time:     "10:00",
	})
	require.NoError(t, res.Err)
	core.Bookings.Wait()
	assert.Equal(t, 1, rec.calls)
}

type recordingNotifier struct{ calls int }

func (r *recordingNotifier) AppointmentBooked(context.Context, appointments.Appointment) error {
	r.calls++
	return nil
}
