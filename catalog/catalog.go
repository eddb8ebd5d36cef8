package catalog

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/Snaptraks/FateBot/errors"
	"github.com/Snaptraks/FateBot/models"
)

//go:embed templates/*.json
var templateFS embed.FS

var templateFiles = map[models.EventType]string{
	models.EventTypeTrial:   "templates/trials.json",
	models.EventTypeDungeon: "templates/dungeons.json",
	models.EventTypeArena:   "templates/arenas.json",
}

// RoleSlot is one capacity role in a template. Capacity 0 means the role
// is not offered for this event and stays hidden from the roster.
type RoleSlot struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Template is the static role-capacity definition for one event name,
// plus the display metadata for its roster embed.
type Template struct {
	Key          string     `json:"key"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	URL          string     `json:"url"`
	Image        string     `json:"image"`
	Guides       string     `json:"guides"`
	Requirements string     `json:"requirements"`
	Roles        []RoleSlot `json:"roles"`
}

// Role returns the slot for a role key, if the template declares it.
func (t *Template) Role(key string) (RoleSlot, bool) {
	for _, slot := range t.Roles {
		if slot.Key == key {
			return slot, true
		}
	}
	return RoleSlot{}, false
}

// Offered reports whether a role key is declared with capacity > 0.
func (t *Template) Offered(key string) bool {
	slot, ok := t.Role(key)
	return ok && slot.Capacity > 0
}

// Entry is one catalog listing line: the command abbreviation and the
// display title it resolves to.
type Entry struct {
	Key   string
	Title string
}

// Catalog is the loaded-once, read-only template lookup.
type Catalog struct {
	templates map[models.EventType]map[string]*Template
	order     map[models.EventType][]string
}

// Load parses the embedded template files. Called once at startup; the
// result is never mutated afterwards.
func Load() (*Catalog, error) {
	c := &Catalog{
		templates: make(map[models.EventType]map[string]*Template),
		order:     make(map[models.EventType][]string),
	}

	for eventType, path := range templateFiles {
		data, err := templateFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template file %s: %w", path, err)
		}

		var templates []*Template
		if err := json.Unmarshal(data, &templates); err != nil {
			return nil, fmt.Errorf("failed to parse template file %s: %w", path, err)
		}

		byKey := make(map[string]*Template, len(templates))
		keys := make([]string, 0, len(templates))
		for _, tpl := range templates {
			if tpl.Key == "" {
				return nil, fmt.Errorf("template without key in %s", path)
			}
			if _, exists := byKey[tpl.Key]; exists {
				return nil, fmt.Errorf("duplicate template key %q in %s", tpl.Key, path)
			}
			byKey[tpl.Key] = tpl
			keys = append(keys, tpl.Key)
		}

		c.templates[eventType] = byKey
		c.order[eventType] = keys
	}

	return c, nil
}

// Lookup resolves an event name for an event type.
func (c *Catalog) Lookup(eventType models.EventType, name string) (*Template, error) {
	byKey, ok := c.templates[eventType]
	if !ok {
		return nil, errors.NewUnsupportedEventTypeError(string(eventType))
	}

	tpl, ok := byKey[name]
	if !ok {
		return nil, errors.NewUnknownEventError(string(eventType), name)
	}

	return tpl, nil
}

// Entries lists the catalog for one event type, in file order.
func (c *Catalog) Entries(eventType models.EventType) ([]Entry, error) {
	byKey, ok := c.templates[eventType]
	if !ok {
		return nil, errors.NewUnsupportedEventTypeError(string(eventType))
	}

	entries := make([]Entry, 0, len(byKey))
	for _, key := range c.order[eventType] {
		entries = append(entries, Entry{Key: key, Title: byKey[key].Title})
	}
	return entries, nil
}
