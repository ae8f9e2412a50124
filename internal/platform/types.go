package platform

import (
	"encoding/json"
	"time"
)

// State is an entity's state snapshot as mirrored from the platform
// bridge onto the retained state topics.
type State struct {
	// EntityID is the platform entity identifier, e.g. "climate.living_room".
	EntityID string `json:"entity_id"`

	// Value is the entity's state string ("on", "off", "heat", "21.5", ...).
	Value string `json:"state"`

	// Attributes carries the entity's attribute map. May be nil.
	Attributes map[string]any `json:"attributes,omitempty"`

	// LastUpdated is when the bridge last published this state.
	LastUpdated time.Time `json:"last_updated"`
}

// Attribute returns a named attribute, or nil if absent.
func (s State) Attribute(name string) any {
	if s.Attributes == nil {
		return nil
	}
	return s.Attributes[name]
}

// FloatAttribute returns a numeric attribute and whether it was present
// and numeric. JSON numbers decode as float64; integers are widened.
func (s State) FloatAttribute(name string) (float64, bool) {
	switch v := s.Attribute(name).(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ServiceCall is a request to the platform bridge to execute a service
// against an entity, published on ember/service/{domain}/{service}.
type ServiceCall struct {
	// ID is a unique call identifier for correlation in bridge logs.
	ID string `json:"id"`

	// Domain and Service name the operation, e.g. "climate" and
	// "set_temperature". Both are config-supplied strings; the
	// scheduler never assumes a fixed vocabulary.
	Domain  string `json:"domain"`
	Service string `json:"service"`

	// Data carries the service payload (entity_id, temperature, ...).
	Data map[string]any `json:"data"`
}

// Event is an application event published on ember/event/{type}.
type Event struct {
	// Type is the event name, e.g. "heaty_set_temp".
	Type string `json:"type"`

	// Data carries the event payload.
	Data map[string]any `json:"data"`
}
