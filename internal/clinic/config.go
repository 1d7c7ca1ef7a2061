// Package clinic holds the clinic profile shown to patients and used to
// ground the fallback responder.
package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/dental-assistant/internal/availability"
)

// DayHours represents the opening hours for a single day.
// Nil means the clinic is closed that day.
type DayHours struct {
	Open  string `json:"open"`  // "09:00"
	Close string `json:"close"` // "18:00"
}

// BusinessHours maps day names to their hours.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// HoursFromSchedule renders an availability schedule as per-day hours so
// the profile never disagrees with the slot grid.
func HoursFromSchedule(h availability.Hours) BusinessHours {
	var b BusinessHours
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		closeHour := h.CloseHourFor(wd)
		if closeHour < 0 {
			continue
		}
		b.set(wd, &DayHours{
			Open:  fmt.Sprintf("%02d:00", h.OpenHour),
			Close: fmt.Sprintf("%02d:00", closeHour),
		})
	}
	return b
}

func (b *BusinessHours) set(weekday time.Weekday, hours *DayHours) {
	switch weekday {
	case time.Sunday:
		b.Sunday = hours
	case time.Monday:
		b.Monday = hours
	case time.Tuesday:
		b.Tuesday = hours
	case time.Wednesday:
		b.Wednesday = hours
	case time.Thursday:
		b.Thursday = hours
	case time.Friday:
		b.Friday = hours
	case time.Saturday:
		b.Saturday = hours
	}
}

// GetHoursForDay returns the hours for a given weekday (0=Sunday, 6=Saturday).
func (b *BusinessHours) GetHoursForDay(weekday time.Weekday) *DayHours {
	switch weekday {
	case time.Sunday:
		return b.Sunday
	case time.Monday:
		return b.Monday
	case time.Tuesday:
		return b.Tuesday
	case time.Wednesday:
		return b.Wednesday
	case time.Thursday:
		return b.Thursday
	case time.Friday:
		return b.Friday
	case time.Saturday:
		return b.Saturday
	default:
		return nil
	}
}

// Summary renders the week in Spanish, grouping consecutive days with the
// same hours: "Lunes a Viernes 09:00-18:00, Sábado 09:00-14:00".
func (b *BusinessHours) Summary() string {
	order := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	var parts []string
	for i := 0; i < len(order); {
		h := b.GetHoursForDay(order[i])
		j := i
		for j+1 < len(order) && sameHours(h, b.GetHoursForDay(order[j+1])) {
			j++
		}
		if h != nil {
			label := availability.WeekdayLabel(order[i])
			if j > i {
				label += " a " + availability.WeekdayLabel(order[j])
			}
			parts = append(parts, fmt.Sprintf("%s %s-%s", label, h.Open, h.Close))
		}
		i = j + 1
	}
	if len(parts) == 0 {
		return "Solo con cita previa"
	}
	return strings.Join(parts, ", ")
}

func sameHours(a, b *DayHours) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Location is one of the clinic's practices.
type Location struct {
	City    string `json:"city"`
	Address string `json:"address"`
	MapsURL string `json:"maps_url"`
}

// Profile holds clinic-specific details.
type Profile struct {
	Name           string        `json:"name"`
	Phone          string        `json:"phone"`
	Email          string        `json:"email,omitempty"`
	Timezone       string        `json:"timezone"`
	WelcomeMessage string        `json:"welcome_message"`
	Services       []string      `json:"services"`
	Locations      []Location    `json:"locations"`
	BusinessHours  BusinessHours `json:"business_hours"`
}

func mapsURL(address string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(address)
}

func defaultLocations() []Location {
	raw := []struct{ city, address string }{
		{"Madrid", "Calle Gran Vía 123, Madrid"},
		{"Barcelona", "Paseo de Gracia 456, Barcelona"},
		{"Valencia", "Calle Colón 789, Valencia"},
		{"Sevilla", "Avenida de la Constitución 321, Sevilla"},
		{"Bilbao", "Gran Vía 654, Bilbao"},
	}
	out := make([]Location, 0, len(raw))
	for _, l := range raw {
		out = append(out, Location{City: l.city, Address: l.address, MapsURL: mapsURL(l.address)})
	}
	return out
}

// DefaultProfile returns the stock profile for a clinic open on schedule h.
func DefaultProfile(name, phone, timezone string, h availability.Hours) *Profile {
	return &Profile{
		Name:           name,
		Phone:          phone,
		Timezone:       timezone,
		WelcomeMessage: fmt.Sprintf("Bienvenido a %s ¿en qué puedo ayudarle?", name),
		Services:       []string{"Limpieza dental", "Empastes", "Ortodoncia", "Cirugía oral", "Blanqueamiento"},
		Locations:      defaultLocations(),
		BusinessHours:  HoursFromSchedule(h),
	}
}

// Location resolves the profile timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsOpenAt checks if the clinic is open at the given time.
func (p *Profile) IsOpenAt(t time.Time) bool {
	local := t.In(p.Location())
	hours := p.BusinessHours.GetHoursForDay(local.Weekday())
	if hours == nil {
		return false
	}
	openAt, err := time.Parse("15:04", hours.Open)
	if err != nil {
		return false
	}
	closeAt, err := time.Parse("15:04", hours.Close)
	if err != nil {
		return false
	}
	now := local.Hour()*60 + local.Minute()
	return now >= openAt.Hour()*60+openAt.Minute() && now < closeAt.Hour()*60+closeAt.Minute()
}

// CatalogVars are the placeholders substituted into catalog texts.
func (p *Profile) CatalogVars() map[string]string {
	return map[string]string{
		"clinic": p.Name,
		"phone":  p.Phone,
		"hours":  p.BusinessHours.Summary(),
	}
}

// SystemPrompt grounds the fallback responder in the clinic's details.
func (p *Profile) SystemPrompt(now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eres el asistente virtual de %s, una clínica dental. ", p.Name)
	b.WriteString("Ayudas a los pacientes con información sobre tratamientos, horarios y ubicaciones. ")
	b.WriteString("Responde siempre en español, de forma breve, amable y profesional.\n\n")

	fmt.Fprintf(&b, "Servicios: %s\n", strings.Join(p.Services, ", "))
	fmt.Fprintf(&b, "Horario: %s\n", p.BusinessHours.Summary())
	fmt.Fprintf(&b, "Teléfono: %s\n", p.Phone)
	if len(p.Locations) > 0 {
		b.WriteString("Ubicaciones:\n")
		for _, l := range p.Locations {
			fmt.Fprintf(&b, "- %s: %s\n", l.City, l.Address)
		}
	}

	local := now.In(p.Location())
	status := "cerrada"
	if p.IsOpenAt(now) {
		status = "abierta"
	}
	fmt.Fprintf(&b, "\nAhora son las %s del %s; la clínica está %s.\n",
		local.Format("15:04"), local.Format("2006-01-02"), status)

	b.WriteString("\nNo inventes precios, diagnósticos ni disponibilidad. ")
	b.WriteString("Si el paciente quiere una cita, indícale que escriba \"quiero una cita\". ")
	fmt.Fprintf(&b, "Si no sabes algo, sugiere llamar al %s.", p.Phone)
	return b.String()
}

// ProfileStore reads and writes the editable profile.
type ProfileStore interface {
	Get(ctx context.Context) (*Profile, error)
	Set(ctx context.Context, p *Profile) error
}

// StaticStore serves a fixed profile and keeps updates in memory.
type StaticStore struct {
	mu      sync.RWMutex
	profile *Profile
}

// NewStaticStore wraps p.
func NewStaticStore(p *Profile) *StaticStore {
	return &StaticStore{profile: p}
}

func (s *StaticStore) Get(context.Context) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := *s.profile
	return &cp, nil
}

func (s *StaticStore) Set(_ context.Context, p *Profile) error {
	cp := *p
	s.mu.Lock()
	s.profile = &cp
	s.mu.Unlock()
	return nil
}

// Store persists profile edits in Redis, serving the default until the
// first edit.
type Store struct {
	redis    *redis.Client
	key      string
	fallback *Profile
}

// NewStore creates a Redis-backed profile store.
func NewStore(redisClient *redis.Client, fallback *Profile) *Store {
	if redisClient == nil {
		panic("clinic: redis client required")
	}
	return &Store{redis: redisClient, key: "clinic:profile", fallback: fallback}
}

// Get retrieves the profile, returning the default if none was saved.
func (s *Store) Get(ctx context.Context) (*Profile, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		cp := *s.fallback
		return &cp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("clinic: unmarshal profile: %w", err)
	}
	return &p, nil
}

// Set saves the profile.
func (s *Store) Set(ctx context.Context, p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("clinic: marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("clinic: set profile: %w", err)
	}
	return nil
}
