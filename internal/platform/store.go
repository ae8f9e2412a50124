package platform

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emberhaus/ember-core/internal/infrastructure/mqtt"
)

// MQTTClient is the subset of the MQTT client the store depends on.
type MQTTClient interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// noopLogger is used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}

// ChangeHandler is invoked when an entity's state changes.
// old is nil on the first state seen for an entity.
type ChangeHandler func(old *State, new State)

// EventHandler is invoked for application events.
type EventHandler func(event Event)

// Store mirrors the platform's entity states from the retained MQTT
// state topics and exposes service calls and events.
//
// The bridge publishes every entity state change (retained) on
// ember/state/{entity_id}; on startup the broker replays the retained
// messages so the store warms up without an explicit sync step.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Change handlers run on the MQTT delivery goroutine; they must
//     hand work off promptly and never call back into Store setters.
type Store struct {
	client MQTTClient
	logger Logger
	qos    byte
	topics mqtt.Topics

	mu     sync.RWMutex
	states map[string]State

	handlerMu     sync.RWMutex
	changeHandler ChangeHandler
}

// NewStore creates a Store. logger may be nil.
func NewStore(client MQTTClient, qos byte, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Store{
		client: client,
		logger: logger,
		qos:    qos,
		states: make(map[string]State),
	}
}

// Start subscribes to the state topic tree. Retained messages populate
// the store immediately after subscription.
func (s *Store) Start() error {
	if err := s.client.Subscribe(s.topics.AllStates(), s.qos, s.handleStateMessage); err != nil {
		return fmt.Errorf("subscribing to entity states: %w", err)
	}
	return nil
}

// OnChange registers the handler invoked for every entity state change.
// Only one handler is supported; the dispatcher fans out internally.
func (s *Store) OnChange(handler ChangeHandler) {
	s.handlerMu.Lock()
	s.changeHandler = handler
	s.handlerMu.Unlock()
}

// handleStateMessage ingests one retained-state publish.
func (s *Store) handleStateMessage(topic string, payload []byte) error {
	entityID := entityFromTopic(topic)
	if entityID == "" {
		return fmt.Errorf("state topic %q: missing entity id", topic)
	}

	var incoming State
	if err := json.Unmarshal(payload, &incoming); err != nil {
		return fmt.Errorf("state payload for %s: %w", entityID, err)
	}
	incoming.EntityID = entityID
	if incoming.LastUpdated.IsZero() {
		incoming.LastUpdated = time.Now().UTC()
	}

	s.mu.Lock()
	var old *State
	if prev, ok := s.states[entityID]; ok {
		prevCopy := prev
		old = &prevCopy
	}
	s.states[entityID] = incoming
	s.mu.Unlock()

	// Suppress no-op updates: retained replays and bridge keepalives
	// repeat identical state and must not trigger reschedules.
	// Attribute changes count as changes (thermostat setpoints live in
	// attributes, and the actuator verifies against them).
	if old != nil && old.Value == incoming.Value &&
		reflect.DeepEqual(old.Attributes, incoming.Attributes) {
		return nil
	}

	s.handlerMu.RLock()
	handler := s.changeHandler
	s.handlerMu.RUnlock()
	if handler != nil {
		handler(old, incoming)
	}

	return nil
}

// entityFromTopic extracts the entity id from "ember/state/{entity_id}".
func entityFromTopic(topic string) string {
	const prefix = "ember/state/"
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}
	return topic[len(prefix):]
}

// Get returns the last known state of an entity.
func (s *Store) Get(entityID string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[entityID]
	return state, ok
}

// EntityState returns the state string of an entity, or "" if unknown.
// Implements tempexpr.StateReader.
func (s *Store) EntityState(entityID string) string {
	state, ok := s.Get(entityID)
	if !ok {
		return ""
	}
	return state.Value
}

// EntityAttribute returns a named attribute of an entity, or nil.
// Implements tempexpr.StateReader.
func (s *Store) EntityAttribute(entityID, attribute string) any {
	state, ok := s.Get(entityID)
	if !ok {
		return nil
	}
	return state.Attribute(attribute)
}

// CallService publishes a service call for the platform bridge.
//
// Parameters:
//   - domain: service domain, e.g. "climate"
//   - service: service name, e.g. "set_temperature"
//   - data: service payload; the bridge expects at least entity_id
//
// Returns:
//   - string: the generated call id (for log correlation)
//   - error: if the publish fails
func (s *Store) CallService(domain, service string, data map[string]any) (string, error) {
	call := ServiceCall{
		ID:      uuid.NewString(),
		Domain:  domain,
		Service: service,
		Data:    data,
	}

	payload, err := json.Marshal(call)
	if err != nil {
		return "", fmt.Errorf("encoding service call: %w", err)
	}

	topic := s.topics.Service(domain, service)
	if err := s.client.Publish(topic, payload, s.qos, false); err != nil {
		return "", fmt.Errorf("publishing service call %s.%s: %w", domain, service, err)
	}

	s.logger.Debug("service call published",
		"id", call.ID,
		"domain", domain,
		"service", service,
	)
	return call.ID, nil
}

// PublishRoomState publishes a room's runtime state (retained) for
// dashboards and other consumers.
func (s *Store) PublishRoomState(room string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding room state: %w", err)
	}
	if err := s.client.Publish(s.topics.RoomState(room), body, s.qos, true); err != nil {
		return fmt.Errorf("publishing room state for %s: %w", room, err)
	}
	return nil
}
