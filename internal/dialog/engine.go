// Package dialog drives the appointment booking conversation.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/dental-assistant/internal/appointments"
	"github.com/wolfman30/dental-assistant/internal/availability"
	"github.com/wolfman30/dental-assistant/internal/catalog"
	"github.com/wolfman30/dental-assistant/internal/intent"
	"github.com/wolfman30/dental-assistant/internal/observability/metrics"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// SideChannel carries structured selections made outside free text.
type SideChannel struct {
	Date string `json:"date,omitempty"`
	Time string `json:"time,omitempty"`
}

func (s *SideChannel) empty() bool {
	return s == nil || (s.Date == "" && s.Time == "")
}

// Turn is one inbound message with the session's current position.
type Turn struct {
	Utterance   string       `json:"utterance"`
	State       State        `json:"state"`
	Draft       Draft        `json:"draft"`
	SideChannel *SideChannel `json:"side_channel,omitempty"`
}

// Outcome is the engine's reply and the session's next position.
type Outcome struct {
	catalog.Response
	State          State              `json:"state"`
	Draft          Draft              `json:"draft"`
	AvailableDays  []availability.Day `json:"available_days,omitempty"`
	AvailableSlots []string           `json:"available_slots,omitempty"`
	AppointmentID  int64              `json:"appointment_id,omitempty"`
	Intent         string             `json:"intent,omitempty"`
}

// Availability is the slice of the resolver the engine needs.
type Availability interface {
	ListOpenDays() []availability.Day
	IsOpenDay(date string) bool
	ListOpenSlots(ctx context.Context, date string) ([]string, error)
}

// Booker persists a confirmed draft.
type Booker interface {
	Book(ctx context.Context, appt appointments.Appointment) appointments.BookResult
}

// Responder answers free text nothing else recognised.
type Responder interface {
	Respond(ctx context.Context, utterance string) (string, error)
}

// Deps wires an Engine. Fallback, Metrics and Logger are optional.
type Deps struct {
	Matcher      *intent.Matcher
	Catalog      *catalog.Catalog
	Availability Availability
	Booker       Booker
	Fallback     Responder
	Messages     Messages
	Metrics      *metrics.DialogMetrics
	Logger       *logging.Logger
}

// Engine is stateless between calls; every turn carries its own state and
// draft, so one Engine serves all sessions concurrently.
type Engine struct {
	matcher  *intent.Matcher
	catalog  *catalog.Catalog
	slots    Availability
	booker   Booker
	fallback Responder
	messages Messages
	metrics  *metrics.DialogMetrics
	logger   *logging.Logger
}

// NewEngine validates deps and builds an engine.
func NewEngine(d Deps) (*Engine, error) {
	if d.Matcher == nil || d.Catalog == nil {
		return nil, errors.New("dialog: matcher and catalog required")
	}
	if d.Availability == nil || d.Booker == nil {
		return nil, errors.New("dialog: availability and booker required")
	}
	for _, e := range d.Catalog.Entries() {
		if e.NextState == "" {
			continue
		}
		if _, err := ParseState(e.NextState); err != nil {
			return nil, fmt.Errorf("dialog: catalog entry %q: %w", e.Key, err)
		}
	}
	if _, ok := d.Catalog.Lookup(string(intent.RequestAppointment)); !ok {
		return nil, fmt.Errorf("dialog: catalog missing %q entry", intent.RequestAppointment)
	}
	if d.Messages == (Messages{}) {
		d.Messages = DefaultMessages("")
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return &Engine{
		matcher:  d.Matcher,
		catalog:  d.Catalog,
		slots:    d.Availability,
		booker:   d.Booker,
		fallback: d.Fallback,
		messages: d.Messages,
		metrics:  d.Metrics,
		logger:   d.Logger,
	}, nil
}

// Advance applies one turn. Input errors leave the caller's state as is;
// every other path returns a valid next state and message.
func (e *Engine) Advance(ctx context.Context, turn Turn) (*Outcome, error) {
	state := turn.State
	if state == "" {
		state = Idle
	}
	if _, ok := knownStates[state]; !ok {
		return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidState, state)
	}

	t := turn
	t.State = state
	t.Utterance = strings.TrimSpace(turn.Utterance)
	if turn.SideChannel != nil {
		t.SideChannel = &SideChannel{
			Date: strings.TrimSpace(turn.SideChannel.Date),
			Time: strings.TrimSpace(turn.SideChannel.Time),
		}
	}
	if t.Utterance == "" && t.SideChannel.empty() {
		return nil, ErrEmptyUtterance
	}
	if err := validateSideChannel(t.SideChannel); err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := e.dispatch(ctx, t)
	if err != nil {
		return nil, err
	}
	if out.Response.Media == nil {
		out.Response.Media = []catalog.Media{}
	}
	e.metrics.ObserveTurn(string(state), string(out.State))
	e.logger.Debug("dialog turn",
		"from", state,
		"to", out.State,
		"intent", out.Intent,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func validateSideChannel(sc *SideChannel) error {
	if sc.empty() {
		return nil
	}
	if sc.Date != "" {
		if _, err := appointments.ParseDate(sc.Date); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSideChannel, err)
		}
	}
	if sc.Time != "" {
		if err := appointments.ValidateTime(sc.Time); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSideChannel, err)
		}
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, t Turn) (*Outcome, error) {
	if missing, ok := missingPrecondition(t.State, t.Draft); ok {
		e.logger.Debug("dialog precondition missing, re-prompting", "state", t.State, "reprompt_state", missing)
		return e.prompt(ctx, missing, t.Draft)
	}

	switch t.State {
	case Idle:
		return e.onIdle(ctx, t)
	case InTreatmentMenu:
		return e.onTreatmentMenu(t)
	case AwaitingExistingTreatmentAnswer:
		return e.onExistingTreatmentAnswer(t)
	case AwaitingAppointmentType:
		return e.onAppointmentType(t)
	case AwaitingComplaintDetail:
		if t.Utterance == "" {
			return e.reply(AwaitingComplaintDetail, t.Draft, e.messages.EmptyAnswer, catalog.Directives{ShowComplaintInput: true}), nil
		}
		d := t.Draft
		d.ComplaintDetail = t.Utterance
		return e.askDate(d, e.messages.AskDate), nil
	case AwaitingDate:
		if t.SideChannel.empty() || t.SideChannel.Date == "" {
			return e.askDate(t.Draft, e.messages.UseCalendar), nil
		}
		return e.selectDate(ctx, t.Draft, t.SideChannel.Date)
	case AwaitingTime:
		return e.onTime(ctx, t)
	case AwaitingName:
		return e.collectText(t, AwaitingPhone, e.messages.AskPhone, func(d *Draft, v string) { d.FullName = v })
	case AwaitingPhone:
		return e.collectText(t, AwaitingEmail, e.messages.AskEmail, func(d *Draft, v string) { d.Phone = v })
	case AwaitingEmail:
		if t.Utterance == "" {
			return e.reply(AwaitingEmail, t.Draft, e.messages.EmptyAnswer, catalog.Directives{}), nil
		}
		d := t.Draft
		d.Email = t.Utterance
		return e.reply(AwaitingConfirmation, d, e.messages.Summary(d), catalog.Directives{ShowConfirmation: true}), nil
	case AwaitingConfirmation:
		return e.onConfirmation(ctx, t)
	}
	return nil, fmt.Errorf("%w: unhandled state %q", ErrInvalidState, t.State)
}

func (e *Engine) onIdle(ctx context.Context, t Turn) (*Outcome, error) {
	if t.Utterance == "" {
		return e.fromEntry(e.catalog.Fallback(), Idle, t.Draft), nil
	}
	key, ok := e.matcher.Match(t.Utterance)
	if ok {
		if entry, found := e.catalog.Lookup(string(key)); found {
			return e.applyEntry(entry, Idle, t.Draft), nil
		}
		e.logger.Warn("intent has no catalog entry", "intent", key)
	}
	return e.fallbackReply(ctx, t), nil
}

func (e *Engine) onTreatmentMenu(t Turn) (*Outcome, error) {
	key, ok := e.matcher.Match(t.Utterance)
	if ok {
		if entry, found := e.catalog.Lookup(string(key)); found {
			switch {
			case key == intent.RequestAppointment:
				out := e.applyEntry(entry, InTreatmentMenu, t.Draft)
				out.Directives.ClearScreen = true
				return out, nil
			case entry.Treatment:
				return e.fromEntry(entry, InTreatmentMenu, t.Draft), nil
			case entry.NextState != "":
				return e.applyEntry(entry, InTreatmentMenu, t.Draft), nil
			}
		}
	}
	out := e.reply(InTreatmentMenu, t.Draft, e.messages.treatmentList(e.catalog.Treatments()), catalog.Directives{})
	out.Intent = string(key)
	return out, nil
}

func (e *Engine) onExistingTreatmentAnswer(t Turn) (*Outcome, error) {
	switch {
	case e.matcher.IsAffirmative(t.Utterance):
		return e.reply(Idle, Draft{}, e.messages.HasExistingTreatment, catalog.Directives{ShowFaqButtons: true}), nil
	case e.matcher.IsNegative(t.Utterance):
		return e.reply(AwaitingAppointmentType, t.Draft, e.messages.AskAppointmentType, catalog.Directives{}), nil
	}
	return e.reply(AwaitingExistingTreatmentAnswer, t.Draft, e.messages.AskExistingTreatment, catalog.Directives{}), nil
}

func (e *Engine) onAppointmentType(t Turn) (*Outcome, error) {
	d := t.Draft
	switch {
	case e.matcher.IsRoutineCheckup(t.Utterance):
		d.Kind = appointments.KindRoutineCheckup
		d.ComplaintDetail = ""
		return e.askDate(d, e.messages.AskDate), nil
	case e.matcher.IsComplaint(t.Utterance):
		d.Kind = appointments.KindSpecificComplaint
		return e.reply(AwaitingComplaintDetail, d, e.messages.AskComplaintDetail, catalog.Directives{ShowComplaintInput: true}), nil
	}
	return e.reply(AwaitingAppointmentType, d, e.messages.AskAppointmentType, catalog.Directives{}), nil
}

func (e *Engine) onTime(ctx context.Context, t Turn) (*Outcome, error) {
	sc := t.SideChannel
	if !sc.empty() && sc.Date != "" && sc.Date != t.Draft.Date {
		return e.selectDate(ctx, t.Draft, sc.Date)
	}
	if sc.empty() || sc.Time == "" {
		return e.askTime(ctx, t.Draft, e.messages.UseHourPicker)
	}

	open, err := e.slots.ListOpenSlots(ctx, t.Draft.Date)
	if err != nil {
		return e.persistenceFailure(err), nil
	}
	if !containsSlot(open, sc.Time) {
		return e.hourPicker(t.Draft, open, e.messages.TimeNotAvailable), nil
	}
	d := t.Draft
	d.Time = sc.Time
	return e.reply(AwaitingName, d, e.messages.AskName, catalog.Directives{}), nil
}

func (e *Engine) onConfirmation(ctx context.Context, t Turn) (*Outcome, error) {
	if !e.matcher.IsAffirmative(t.Utterance) {
		return e.reply(Idle, Draft{}, e.messages.BookingCancelled, catalog.Directives{ShowFaqButtons: true}), nil
	}

	res := e.booker.Book(ctx, t.Draft.Appointment())
	switch res.Outcome {
	case appointments.OutcomeBooked:
		text := fmt.Sprintf(e.messages.Booked, res.ID, t.Draft.Date, t.Draft.Time)
		out := e.reply(Idle, Draft{}, text, catalog.Directives{AppointmentSaved: true, ShowFaqButtons: true})
		out.AppointmentID = res.ID
		return out, nil
	case appointments.OutcomeConflict:
		d := t.Draft
		d.Time = ""
		return e.askTime(ctx, d, e.messages.SlotConflict)
	default:
		return e.persistenceFailure(res.Err), nil
	}
}

func (e *Engine) collectText(t Turn, next State, question string, set func(*Draft, string)) (*Outcome, error) {
	if t.Utterance == "" {
		return e.reply(t.State, t.Draft, e.messages.EmptyAnswer, catalog.Directives{}), nil
	}
	d := t.Draft
	set(&d, t.Utterance)
	return e.reply(next, d, question, catalog.Directives{}), nil
}

// selectDate validates a calendar pick and moves to hour selection.
func (e *Engine) selectDate(ctx context.Context, d Draft, date string) (*Outcome, error) {
	if !e.slots.IsOpenDay(date) {
		return e.askDate(d, e.messages.DateNotAvailable), nil
	}
	open, err := e.slots.ListOpenSlots(ctx, date)
	if err != nil {
		return e.persistenceFailure(err), nil
	}
	if len(open) == 0 {
		return e.askDate(d, fmt.Sprintf(e.messages.NoSlotsOnDate, date)), nil
	}
	d.Date = date
	d.Time = ""
	return e.hourPicker(d, open, fmt.Sprintf(e.messages.AskTime, date)), nil
}

func (e *Engine) askDate(d Draft, text string) *Outcome {
	out := e.reply(AwaitingDate, d, text, catalog.Directives{ShowCalendar: true})
	out.AvailableDays = e.slots.ListOpenDays()
	return out
}

func (e *Engine) askTime(ctx context.Context, d Draft, text string) (*Outcome, error) {
	open, err := e.slots.ListOpenSlots(ctx, d.Date)
	if err != nil {
		return e.persistenceFailure(err), nil
	}
	if len(open) == 0 {
		d.Date = ""
		d.Time = ""
		return e.askDate(d, e.messages.DateNotAvailable), nil
	}
	return e.hourPicker(d, open, text), nil
}

func (e *Engine) hourPicker(d Draft, open []string, text string) *Outcome {
	out := e.reply(AwaitingTime, d, text, catalog.Directives{ShowHourPicker: true})
	out.AvailableSlots = open
	return out
}

// prompt re-asks the question that fills the field state s collects.
func (e *Engine) prompt(ctx context.Context, s State, d Draft) (*Outcome, error) {
	switch s {
	case AwaitingAppointmentType:
		return e.reply(s, d, e.messages.AskAppointmentType, catalog.Directives{}), nil
	case AwaitingDate:
		return e.askDate(d, e.messages.AskDate), nil
	case AwaitingTime:
		return e.askTime(ctx, d, fmt.Sprintf(e.messages.AskTime, d.Date))
	case AwaitingName:
		return e.reply(s, d, e.messages.AskName, catalog.Directives{}), nil
	case AwaitingPhone:
		return e.reply(s, d, e.messages.AskPhone, catalog.Directives{}), nil
	default:
		return e.reply(AwaitingEmail, d, e.messages.AskEmail, catalog.Directives{}), nil
	}
}

func (e *Engine) persistenceFailure(err error) *Outcome {
	e.logger.Error("dialog persistence failure, resetting session", "error", err)
	return e.reply(Idle, Draft{}, e.messages.PersistenceFailure, catalog.Directives{ShowFaqButtons: true})
}

// applyEntry emits entry and follows its state transition, if any. Entering
// the booking flow starts from an empty draft.
func (e *Engine) applyEntry(entry catalog.Entry, current State, d Draft) *Outcome {
	next := current
	if entry.NextState != "" {
		parsed, _ := ParseState(entry.NextState)
		next = parsed
	}
	if next.InBookingFlow() && !current.InBookingFlow() {
		d = Draft{}
	}
	return e.fromEntry(entry, next, d)
}

func (e *Engine) fromEntry(entry catalog.Entry, next State, d Draft) *Outcome {
	resp := entry.Response
	resp.Media = append([]catalog.Media(nil), resp.Media...)
	return &Outcome{Response: resp, State: next, Draft: d, Intent: entry.Key}
}

func (e *Engine) fallbackReply(ctx context.Context, t Turn) *Outcome {
	if e.fallback != nil {
		text, err := e.fallback.Respond(ctx, t.Utterance)
		if err == nil && strings.TrimSpace(text) != "" {
			e.metrics.ObserveFallback("ok")
			out := e.reply(Idle, t.Draft, strings.TrimSpace(text), catalog.Directives{ShowFaqButtons: true})
			out.Intent = "fallback"
			return out
		}
		e.metrics.ObserveFallback("error")
		if err != nil {
			e.logger.Warn("fallback responder failed", "error", err)
		}
	}
	return e.fromEntry(e.catalog.Fallback(), Idle, t.Draft)
}

func (e *Engine) reply(next State, d Draft, text string, dir catalog.Directives) *Outcome {
	return &Outcome{
		Response: catalog.Response{Text: text, Media: []catalog.Media{}, Directives: dir},
		State:    next,
		Draft:    d,
	}
}

func containsSlot(slots []string, want string) bool {
	for _, s := range slots {
		if s == want {
			return true
		}
	}
	return false
}
