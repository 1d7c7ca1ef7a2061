package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultKey names the entry used when nothing else matches.
const DefaultKey = "default"

// Media is an image or document reference attached to a response.
type Media struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// Directives tell the client which UI affordances to surface.
type Directives struct {
	ShowCalendar       bool `json:"show_calendar"`
	ShowHourPicker     bool `json:"show_hour_picker"`
	ShowComplaintInput bool `json:"show_complaint_input"`
	ShowConfirmation   bool `json:"show_confirmation"`
	ShowFaqButtons     bool `json:"show_faq_buttons"`
	ClearScreen        bool `json:"clear_screen"`
	AppointmentSaved   bool `json:"appointment_saved"`
}

// Response is the payload returned to the patient.
type Response struct {
	Text       string     `json:"response_text"`
	Media      []Media    `json:"media"`
	Directives Directives `json:"ui_directives"`
}

// Entry is one catalog record. NextState, when set, is the conversation
// state selecting this entry moves the session to.
type Entry struct {
	Key       string   `json:"key"`
	Title     string   `json:"title,omitempty"`
	Response  Response `json:"response"`
	NextState string   `json:"next_state,omitempty"`
	Treatment bool     `json:"treatment,omitempty"`
}

//go:embed catalog.json
var defaultCatalog []byte

var (
	// ErrMissingDefault is returned when the catalog has no default entry.
	ErrMissingDefault = errors.New("catalog: missing default entry")
	// ErrDuplicateKey is returned when two entries share a key.
	ErrDuplicateKey = errors.New("catalog: duplicate key")
)

// Catalog is an immutable keyed set of responses. Entry order from the
// source data is preserved for listings.
type Catalog struct {
	entries map[string]Entry
	order   []string
}

// New validates entries and builds a catalog.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]Entry, len(entries))}
	for i, e := range entries {
		e.Key = strings.TrimSpace(e.Key)
		if e.Key == "" {
			return nil, fmt.Errorf("catalog: entry %d: missing key", i)
		}
		if _, dup := c.entries[e.Key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, e.Key)
		}
		if e.Response.Media == nil {
			e.Response.Media = []Media{}
		}
		c.entries[e.Key] = e
		c.order = append(c.order, e.Key)
	}
	if _, ok := c.entries[DefaultKey]; !ok {
		return nil, ErrMissingDefault
	}
	return c, nil
}

// Load decodes JSON entries and substitutes {placeholders} from vars in
// every text, title and alt field.
func Load(raw []byte, vars map[string]string) (*Catalog, error) {
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	r := replacer(vars)
	for i := range entries {
		entries[i].Title = r.Replace(entries[i].Title)
		entries[i].Response.Text = r.Replace(entries[i].Response.Text)
		for j := range entries[i].Response.Media {
			entries[i].Response.Media[j].Alt = r.Replace(entries[i].Response.Media[j].Alt)
		}
	}
	return New(entries)
}

// Default loads the built-in clinic catalog.
func Default(vars map[string]string) (*Catalog, error) {
	return Load(defaultCatalog, vars)
}

// Lookup returns the entry for key.
func (c *Catalog) Lookup(key string) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Fallback returns the default entry.
func (c *Catalog) Fallback() Entry {
	return c.entries[DefaultKey]
}

// Entries returns every entry in source order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.entries[k])
	}
	return out
}

// Treatments returns the treatment entries in source order.
func (c *Catalog) Treatments() []Entry {
	var out []Entry
	for _, k := range c.order {
		if e := c.entries[k]; e.Treatment {
			out = append(out, e)
		}
	}
	return out
}

func replacer(vars map[string]string) *strings.Replacer {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...)
}
