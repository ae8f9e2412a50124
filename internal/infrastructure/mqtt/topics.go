package mqtt

import "fmt"

// Topic prefixes for the Ember MQTT hierarchy.
//
// All topics use the flat scheme: ember/{category}/{...}
//
//	ember/state/{entity_id}            retained entity state (climate, sensors, switches)
//	ember/service/{domain}/{service}   service calls to the platform bridge
//	ember/event/{event_type}           application events (set-temp, reschedule)
//	ember/room/{room}/state            retained room runtime state published by the scheduler
//	ember/system/status                scheduler online/offline status
const (
	// TopicPrefix is the base for all Ember topics.
	TopicPrefix = "ember"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "ember/system"
)

// Topics provides builders for Ember MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.EntityState("climate.living_room")
//	// Returns: "ember/state/climate.living_room"
type Topics struct{}

// =============================================================================
// Entity Topics
// =============================================================================

// EntityState returns the retained state topic for an entity.
//
// Example: ember/state/climate.living_room
func (Topics) EntityState(entityID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, entityID)
}

// Service returns the topic for a platform service call.
//
// Example: ember/service/climate/set_temperature
func (Topics) Service(domain, service string) string {
	return fmt.Sprintf("%s/service/%s/%s", TopicPrefix, domain, service)
}

// Event returns the topic for an application event.
//
// Example: ember/event/heaty_set_temp
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, eventType)
}

// RoomState returns the retained topic for a room's runtime state,
// published by the scheduler for dashboards and other consumers.
//
// Example: ember/room/living/state
func (Topics) RoomState(room string) string {
	return fmt.Sprintf("%s/room/%s/state", TopicPrefix, room)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: ember/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: ember/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllStates returns a pattern matching all entity state topics.
//
// Pattern: ember/state/+
func (Topics) AllStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllEvents returns a pattern matching all application events.
//
// Pattern: ember/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefix)
}

// AllRoomStates returns a pattern matching all room runtime state topics.
//
// Pattern: ember/room/+/state
func (Topics) AllRoomStates() string {
	return fmt.Sprintf("%s/room/+/state", TopicPrefix)
}

// AllTopics returns a pattern matching all Ember topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: ember/#
func (Topics) AllTopics() string {
	return "ember/#"
}
