package appointments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps appointments in process. The slot check and the insert
// happen under one lock so concurrent bookings cannot both succeed.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []Appointment
	nextID int64
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Create inserts appt and returns its id, or ErrSlotConflict.
func (s *MemoryStore) Create(ctx context.Context, appt Appointment) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := appt.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rows {
		if existing.Date == appt.Date && existing.Time == appt.Time && existing.Status != StatusCancelled {
			return 0, ErrSlotConflict
		}
	}

	s.nextID++
	appt.ID = s.nextID
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	appt.CreatedAt = s.now().UTC()
	s.rows = append(s.rows, appt)
	return appt.ID, nil
}

// ListByDateAndStatus returns a snapshot of matching appointments ordered by time.
func (s *MemoryStore) ListByDateAndStatus(ctx context.Context, date string, status Status) ([]Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Appointment
	for _, a := range s.rows {
		if a.Date == date && a.Status == status {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

// List returns appointments newest first.
func (s *MemoryStore) List(ctx context.Context, f Filter) ([]Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Appointment, 0, len(s.rows))
	for i := len(s.rows) - 1; i >= 0; i-- {
		a := s.rows[i]
		if f.Date != "" && a.Date != f.Date {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Stats counts appointments by status and kind.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	latest, err := s.List(ctx, Filter{Limit: latestCount})
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		Total:    len(s.rows),
		ByStatus: map[Status]int{StatusPending: 0, StatusConfirmed: 0, StatusCancelled: 0},
		ByKind:   map[Kind]int{KindRoutineCheckup: 0, KindSpecificComplaint: 0},
		Latest:   latest,
	}
	for _, a := range s.rows {
		stats.ByStatus[a.Status]++
		stats.ByKind[a.Kind]++
	}
	return stats, nil
}

// UpdateStatus changes an appointment's administrative status.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id int64, status Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAppointment, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		if s.rows[i].ID != id {
			continue
		}
		if status != StatusCancelled && s.rows[i].Status == StatusCancelled {
			for _, other := range s.rows {
				if other.ID != id && other.Date == s.rows[i].Date && other.Time == s.rows[i].Time && other.Status != StatusCancelled {
					return ErrSlotConflict
				}
			}
		}
		s.rows[i].Status = status
		return nil
	}
	return ErrNotFound
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
