package appointments

import (
	"context"
	"errors"
)

// ErrSlotConflict is returned by Create when a non-cancelled appointment
// already holds the same date and time.
var ErrSlotConflict = errors.New("appointments: slot already taken")

// ErrNotFound is returned when an appointment id does not exist.
var ErrNotFound = errors.New("appointments: not found")

// Store is the persistence contract used by the booking dialog and the
// availability resolver. Implementations must enforce (date, time)
// uniqueness at write time.
type Store interface {
	Create(ctx context.Context, appt Appointment) (int64, error)
	ListByDateAndStatus(ctx context.Context, date string, status Status) ([]Appointment, error)
}

// Filter narrows administrative listings. Zero values mean no filter.
type Filter struct {
	Statuses []Status
	Date     string
	Limit    int
}

// Stats summarises the appointment book.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
	ByKind   map[Kind]int   `json:"by_kind"`
	Latest   []Appointment  `json:"latest"`
}

// latestCount is how many recent appointments Stats reports.
const latestCount = 5

// Reporter serves the administrative views: listings, statistics, exports
// and status changes made by staff.
type Reporter interface {
	List(ctx context.Context, f Filter) ([]Appointment, error)
	Stats(ctx context.Context) (*Stats, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}
