package intent

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
)

// Key identifies a recognized conversational purpose.
type Key string

// Keys the dialog engine treats specially. Everything else is catalog data.
const (
	RequestAppointment Key = "request_appointment"
	TreatmentsOverview Key = "treatments_overview"
	MainMenu           Key = "main_menu"
)

// Rule maps an ordered list of triggers to an intent key.
type Rule struct {
	Key      Key      `json:"key"`
	Triggers []string `json:"triggers"`
}

// Markers are the answer vocabularies used inside the booking flow.
type Markers struct {
	Affirmative    []string `json:"affirmative"`
	Negative       []string `json:"negative"`
	RoutineCheckup []string `json:"routine_checkup"`
	Complaint      []string `json:"complaint"`
}

// Tables is the full matcher configuration. Rule order is significant:
// the first matching rule wins in both passes.
type Tables struct {
	Phrases  []Rule  `json:"phrases"`
	Keywords []Rule  `json:"keywords"`
	Markers  Markers `json:"markers"`
}

//go:embed tables.json
var defaultTables []byte

// Matcher resolves utterances to intent keys. It is immutable after
// construction and safe for concurrent use.
type Matcher struct {
	phrases  []Rule
	keywords []Rule
	markers  Markers
}

// ErrEmptyTables is returned when neither pass has any rule.
var ErrEmptyTables = errors.New("intent: no phrase or keyword rules")

// New builds a matcher from tables, normalizing every trigger.
func New(t Tables) (*Matcher, error) {
	if len(t.Phrases) == 0 && len(t.Keywords) == 0 {
		return nil, ErrEmptyTables
	}
	phrases, err := normalizeRules("phrases", t.Phrases)
	if err != nil {
		return nil, err
	}
	keywords, err := normalizeRules("keywords", t.Keywords)
	if err != nil {
		return nil, err
	}
	return &Matcher{
		phrases:  phrases,
		keywords: keywords,
		markers: Markers{
			Affirmative:    normalizeList(t.Markers.Affirmative),
			Negative:       normalizeList(t.Markers.Negative),
			RoutineCheckup: normalizeList(t.Markers.RoutineCheckup),
			Complaint:      normalizeList(t.Markers.Complaint),
		},
	}, nil
}

// Load parses JSON tables and builds a matcher.
func Load(raw []byte) (*Matcher, error) {
	var t Tables
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("intent: decode tables: %w", err)
	}
	return New(t)
}

// Default returns the matcher for the built-in clinic tables.
func Default() *Matcher {
	m, err := Load(defaultTables)
	if err != nil {
		panic(fmt.Sprintf("intent: embedded tables invalid: %v", err))
	}
	return m
}

// Match returns the first phrase rule contained in the utterance, then the
// first keyword rule whose trigger appears as a whole word.
func (m *Matcher) Match(utterance string) (Key, bool) {
	normalized := Normalize(utterance)
	if normalized == "" {
		return "", false
	}
	toks := tokens(normalized)

	for _, rule := range m.phrases {
		for _, trigger := range rule.Triggers {
			if containsTrigger(normalized, trigger) {
				return rule.Key, true
			}
		}
	}
	for _, rule := range m.keywords {
		for _, trigger := range rule.Triggers {
			if hasToken(toks, trigger) {
				return rule.Key, true
			}
		}
	}
	return "", false
}

// IsAffirmative reports whether the utterance contains a yes-marker.
func (m *Matcher) IsAffirmative(utterance string) bool {
	return m.containsAny(utterance, m.markers.Affirmative)
}

// IsNegative reports whether the utterance contains a no-marker.
func (m *Matcher) IsNegative(utterance string) bool {
	return m.containsAny(utterance, m.markers.Negative)
}

// IsRoutineCheckup reports whether the utterance asks for a general check-up.
func (m *Matcher) IsRoutineCheckup(utterance string) bool {
	return m.containsAny(utterance, m.markers.RoutineCheckup)
}

// IsComplaint reports whether the utterance describes a specific problem.
func (m *Matcher) IsComplaint(utterance string) bool {
	return m.containsAny(utterance, m.markers.Complaint)
}

func (m *Matcher) containsAny(utterance string, markers []string) bool {
	normalized := Normalize(utterance)
	if normalized == "" {
		return false
	}
	for _, marker := range markers {
		if containsTrigger(normalized, marker) {
			return true
		}
	}
	return false
}

func normalizeRules(section string, rules []Rule) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))
	for i, rule := range rules {
		if rule.Key == "" {
			return nil, fmt.Errorf("intent: %s[%d]: missing key", section, i)
		}
		triggers := normalizeList(rule.Triggers)
		if len(triggers) == 0 {
			return nil, fmt.Errorf("intent: %s[%d] %q: no triggers", section, i, rule.Key)
		}
		out = append(out, Rule{Key: rule.Key, Triggers: triggers})
	}
	return out, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
