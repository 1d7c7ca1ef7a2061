package appointments

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/dental-assistant/internal/observability/metrics"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

var appointmentsTracer = otel.Tracer("dental.internal.appointments")

// Outcome is the result class of a booking attempt.
type Outcome string

const (
	OutcomeBooked   Outcome = "booked"
	OutcomeConflict Outcome = "conflict"
	OutcomeFailed   Outcome = "failed"
)

// BookResult is returned by Service.Book instead of a bare error so the
// dialog can branch on conflict vs failure without inspecting errors.
type BookResult struct {
	Outcome Outcome
	ID      int64
	Err     error
}

// Notifier is told about every persisted appointment.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt Appointment) error
}

const notifyTimeout = 15 * time.Second

// Service persists bookings and fans out staff notifications.
type Service struct {
	store    Store
	notifier Notifier
	metrics  *metrics.DialogMetrics
	logger   *logging.Logger
	wg       sync.WaitGroup
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithNotifier sends a notification after each successful booking.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records booking outcomes.
func WithMetrics(m *metrics.DialogMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a booking service.
func NewService(store Store, logger *logging.Logger, opts ...ServiceOption) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for availability reads.
func (s *Service) Store() Store {
	return s.store
}

// Book persists appt and classifies the result.
func (s *Service) Book(ctx context.Context, appt Appointment) BookResult {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("dental.appointment.date", appt.Date),
		attribute.String("dental.appointment.time", appt.Time),
		attribute.String("dental.appointment.kind", string(appt.Kind)),
	)

	if appt.Status == "" {
		appt.Status = StatusPending
	}
	id, err := s.store.Create(ctx, appt)
	switch {
	case err == nil:
	case errors.Is(err, ErrSlotConflict):
		span.SetAttributes(attribute.Bool("dental.appointment.conflict", true))
		s.metrics.ObserveBooking(string(OutcomeConflict))
		s.logger.Warn("appointment slot conflict", "date", appt.Date, "time", appt.Time)
		return BookResult{Outcome: OutcomeConflict, Err: err}
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "create appointment")
		s.metrics.ObserveBooking(string(OutcomeFailed))
		s.logger.Error("failed to persist appointment", "date", appt.Date, "time", appt.Time, "error", err)
		return BookResult{Outcome: OutcomeFailed, Err: err}
	}

	appt.ID = id
	span.SetAttributes(attribute.Int64("dental.appointment.id", id))
	s.metrics.ObserveBooking(string(OutcomeBooked))
	s.logger.Info("appointment booked", "appointment_id", id, "date", appt.Date, "time", appt.Time, "kind", appt.Kind)

	if s.notifier != nil {
		s.wg.Add(1)
		go s.notify(context.WithoutCancel(ctx), appt)
	}
	return BookResult{Outcome: OutcomeBooked, ID: id}
}

func (s *Service) notify(ctx context.Context, appt Appointment) {
	defer s.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.notifier.AppointmentBooked(ctx, appt); err != nil {
		s.metrics.ObserveNotification("error")
		s.logger.Warn("appointment notification failed", "appointment_id", appt.ID, "error", err)
		return
	}
	s.metrics.ObserveNotification("sent")
}

// Wait blocks until in-flight notifications finish.
func (s *Service) Wait() {
	s.wg.Wait()
}
