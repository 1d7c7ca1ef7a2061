package appointments

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout and TimeLayout are the wire formats for slot selection.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Kind distinguishes a routine check-up from a visit about a specific problem.
type Kind string

const (
	KindRoutineCheckup    Kind = "routine-checkup"
	KindSpecificComplaint Kind = "specific-complaint"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindRoutineCheckup || k == KindSpecificComplaint
}

// Label is the patient-facing name used in summaries and exports.
func (k Kind) Label() string {
	switch k {
	case KindRoutineCheckup:
		return "Revisión General"
	case KindSpecificComplaint:
		return "Padecimiento"
	default:
		return string(k)
	}
}

// Status is the administrative lifecycle of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus accepts a status name, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("appointments: unknown status %q", raw)
	}
	return s, nil
}

// Appointment is a reserved slot for a patient.
type Appointment struct {
	ID              int64     `json:"id"`
	FullName        string    `json:"full_name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Kind            Kind      `json:"kind"`
	ComplaintDetail string    `json:"complaint_detail,omitempty"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// ErrInvalidAppointment wraps validation failures on Create.
var ErrInvalidAppointment = errors.New("appointments: invalid appointment")

// Validate checks the fields a store requires before inserting.
func (a Appointment) Validate() error {
	var problems []string
	if strings.TrimSpace(a.FullName) == "" {
		problems = append(problems, "full name required")
	}
	if strings.TrimSpace(a.Phone) == "" {
		problems = append(problems, "phone required")
	}
	if strings.TrimSpace(a.Email) == "" {
		problems = append(problems, "email required")
	}
	if !a.Kind.Valid() {
		problems = append(problems, fmt.Sprintf("unknown kind %q", a.Kind))
	}
	if _, err := ParseDate(a.Date); err != nil {
		problems = append(problems, err.Error())
	}
	if err := ValidateTime(a.Time); err != nil {
		problems = append(problems, err.Error())
	}
	if a.Status != "" && !a.Status.Valid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", a.Status))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAppointment, strings.Join(problems, "; "))
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return d, nil
}

// ValidateTime checks a 24-hour HH:MM label aligned to the half hour.
func ValidateTime(raw string) error {
	if len(raw) != len(TimeLayout) {
		return fmt.Errorf("invalid time %q", raw)
	}
	t, err := time.Parse(TimeLayout, raw)
	if err != nil {
		return fmt.Errorf("invalid time %q", raw)
	}
	if t.Minute()%30 != 0 {
		return fmt.Errorf("time %q is not on a half-hour boundary", raw)
	}
	return nil
}
