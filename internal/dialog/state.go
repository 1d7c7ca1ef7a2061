package dialog

import (
	"fmt"
	"strings"

	"github.com/wolfman30/dental-assistant/internal/appointments"
)

// State is where in the conversation a session sits.
type State string

const (
	Idle                            State = "idle"
	AwaitingExistingTreatmentAnswer State = "awaiting_existing_treatment_answer"
	AwaitingAppointmentType         State = "awaiting_appointment_type"
	AwaitingComplaintDetail         State = "awaiting_complaint_detail"
	AwaitingDate                    State = "awaiting_date"
	AwaitingTime                    State = "awaiting_time"
	AwaitingName                    State = "awaiting_name"
	AwaitingPhone                   State = "awaiting_phone"
	AwaitingEmail                   State = "awaiting_email"
	AwaitingConfirmation            State = "awaiting_confirmation"
	InTreatmentMenu                 State = "in_treatment_menu"
)

var knownStates = map[State]struct{}{
	Idle: {}, AwaitingExistingTreatmentAnswer: {}, AwaitingAppointmentType: {},
	AwaitingComplaintDetail: {}, AwaitingDate: {}, AwaitingTime: {}, AwaitingName: {},
	AwaitingPhone: {}, AwaitingEmail: {}, AwaitingConfirmation: {}, InTreatmentMenu: {},
}

// ParseState decodes a state key. The empty string is Idle.
func ParseState(raw string) (State, error) {
	s := State(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return Idle, nil
	}
	if _, ok := knownStates[s]; !ok {
		return "", fmt.Errorf("%w: unknown state %q", ErrInvalidState, raw)
	}
	return s, nil
}

// UnmarshalText lets JSON payloads carry state keys directly.
func (s *State) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// InBookingFlow reports whether s belongs to the appointment dialog.
func (s State) InBookingFlow() bool {
	return s != Idle && s != InTreatmentMenu && s != ""
}

// Draft is the partially completed appointment carried across turns.
type Draft struct {
	Kind            appointments.Kind `json:"appointment_kind,omitempty"`
	ComplaintDetail string            `json:"complaint_detail,omitempty"`
	Date            string            `json:"date,omitempty"`
	Time            string            `json:"time,omitempty"`
	FullName        string            `json:"full_name,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	Email           string            `json:"email,omitempty"`
}

// IsZero reports whether nothing has been collected.
func (d Draft) IsZero() bool {
	return d == Draft{}
}

// Appointment converts a complete draft into a record to persist.
func (d Draft) Appointment() appointments.Appointment {
	return appointments.Appointment{
		FullName:        d.FullName,
		Phone:           d.Phone,
		Email:           d.Email,
		Kind:            d.Kind,
		ComplaintDetail: d.ComplaintDetail,
		Date:            d.Date,
		Time:            d.Time,
		Status:          appointments.StatusPending,
	}
}

// requirement is a draft field and the state that collects it.
type requirement struct {
	filled  func(Draft) bool
	fillsIn State
}

// requirements is ordered the way the dialog collects the fields.
var requirements = []requirement{
	{func(d Draft) bool { return d.Kind.Valid() }, AwaitingAppointmentType},
	{func(d Draft) bool { return d.Date != "" }, AwaitingDate},
	{func(d Draft) bool { return d.Time != "" }, AwaitingTime},
	{func(d Draft) bool { return d.FullName != "" }, AwaitingName},
	{func(d Draft) bool { return d.Phone != "" }, AwaitingPhone},
	{func(d Draft) bool { return d.Email != "" }, AwaitingEmail},
}

// flowRank orders the booking states. States not in the map need nothing.
var flowRank = map[State]int{
	AwaitingAppointmentType: 1,
	AwaitingComplaintDetail: 2,
	AwaitingDate:            3,
	AwaitingTime:            4,
	AwaitingName:            5,
	AwaitingPhone:           6,
	AwaitingEmail:           7,
	AwaitingConfirmation:    8,
}

// missingPrecondition returns the state that must collect the earliest
// field s depends on, or ok=false when the draft satisfies s.
func missingPrecondition(s State, d Draft) (State, bool) {
	rank, tracked := flowRank[s]
	if !tracked {
		return "", false
	}
	if s == AwaitingComplaintDetail && d.Kind != appointments.KindSpecificComplaint {
		return AwaitingAppointmentType, true
	}
	for _, req := range requirements {
		if flowRank[req.fillsIn] >= rank {
			break
		}
		if !req.filled(d) {
			return req.fillsIn, true
		}
	}
	return "", false
}
