// Package availability computes bookable days and half-hour slots.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/dental-assistant/internal/appointments"
	"github.com/wolfman30/dental-assistant/internal/observability/metrics"
)

// Day is a bookable calendar date.
type Day struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
}

// SlotMinutes is the fixed grid step. Side-channel times must sit on it.
const SlotMinutes = 30

// Hours describes the weekly operating schedule.
type Hours struct {
	OpenHour       int
	CloseHour      int
	ShortCloseHour int
	ShortWeekday   time.Weekday
	ClosedWeekday  time.Weekday
}

// DefaultHours is Monday to Friday 9-18, Saturday 9-14, closed Sunday.
func DefaultHours() Hours {
	return Hours{
		OpenHour:       9,
		CloseHour:      18,
		ShortCloseHour: 14,
		ShortWeekday:   time.Saturday,
		ClosedWeekday:  time.Sunday,
	}
}

// Validate rejects schedules that cannot produce a slot grid.
func (h Hours) Validate() error {
	if h.OpenHour < 0 || h.CloseHour > 24 || h.OpenHour >= h.CloseHour {
		return fmt.Errorf("availability: invalid hours %d-%d", h.OpenHour, h.CloseHour)
	}
	if h.ShortCloseHour <= h.OpenHour || h.ShortCloseHour > h.CloseHour {
		return fmt.Errorf("availability: invalid short-day close %d", h.ShortCloseHour)
	}
	return nil
}

// CloseHourFor returns the closing hour on weekday, or -1 when closed.
func (h Hours) CloseHourFor(weekday time.Weekday) int {
	switch weekday {
	case h.ClosedWeekday:
		return -1
	case h.ShortWeekday:
		return h.ShortCloseHour
	default:
		return h.CloseHour
	}
}

var weekdayLabels = [...]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

// WeekdayLabel is the Spanish name for weekday.
func WeekdayLabel(weekday time.Weekday) string {
	return weekdayLabels[weekday]
}

// OpenDays lists horizonDays consecutive days starting the day after today,
// skipping closedWeekday.
func OpenDays(today time.Time, horizonDays int, closedWeekday time.Weekday) []Day {
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	days := make([]Day, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		d := start.AddDate(0, 0, i)
		if d.Weekday() == closedWeekday {
			continue
		}
		days = append(days, Day{Date: d.Format(appointments.DateLayout), Weekday: WeekdayLabel(d.Weekday())})
	}
	return days
}

// SlotGrid returns the HH:MM labels from opening (inclusive) to closing
// (exclusive) on date's weekday, in chronological order.
func SlotGrid(date time.Time, h Hours) []string {
	closeHour := h.CloseHourFor(date.Weekday())
	if closeHour < 0 {
		return []string{}
	}
	slots := make([]string, 0, (closeHour-h.OpenHour)*60/SlotMinutes)
	for m := h.OpenHour * 60; m < closeHour*60; m += SlotMinutes {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// Resolver answers availability queries against an appointment store.
type Resolver struct {
	store   appointments.Store
	hours   Hours
	horizon int
	loc     *time.Location
	now     func() time.Time
	metrics *metrics.DialogMetrics
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLocation sets the clinic timezone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithMetrics records how many slots each query returns.
func WithMetrics(m *metrics.DialogMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver builds a resolver. horizonDays is how many calendar days
// ahead patients may book.
func NewResolver(store appointments.Store, hours Hours, horizonDays int, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("availability: store required")
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}
	if horizonDays <= 0 {
		return nil, fmt.Errorf("availability: horizon must be positive, got %d", horizonDays)
	}
	r := &Resolver{store: store, hours: hours, horizon: horizonDays, loc: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Hours returns the configured schedule.
func (r *Resolver) Hours() Hours {
	return r.hours
}

// ListOpenDays returns the bookable days as of now.
func (r *Resolver) ListOpenDays() []Day {
	return OpenDays(r.now().In(r.loc), r.horizon, r.hours.ClosedWeekday)
}

// IsOpenDay reports whether date is one of the currently bookable days.
func (r *Resolver) IsOpenDay(date string) bool {
	for _, d := range r.ListOpenDays() {
		if d.Date == date {
			return true
		}
	}
	return false
}

// ListOpenSlots returns the grid for date minus slots held by pending
// appointments. Confirmed appointments are not subtracted here; the store
// still rejects a second booking for any non-cancelled slot.
func (r *Resolver) ListOpenSlots(ctx context.Context, date string) ([]string, error) {
	day, err := appointments.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("availability: %w", err)
	}
	grid := SlotGrid(day, r.hours)
	if len(grid) == 0 {
		return grid, nil
	}

	taken, err := r.store.ListByDateAndStatus(ctx, date, appointments.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("availability: list taken slots: %w", err)
	}
	occupied := make(map[string]struct{}, len(taken))
	for _, a := range taken {
		occupied[a.Time] = struct{}{}
	}

	open := make([]string, 0, len(grid))
	for _, slot := range grid {
		if _, ok := occupied[slot]; !ok {
			open = append(open, slot)
		}
	}
	r.metrics.ObserveOpenSlots(len(open))
	return open, nil
}
