package platform

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SubscribeEvents registers a handler for all application events on
// ember/event/+. The event type is recovered from the topic; the
// payload is the event's data object.
func (s *Store) SubscribeEvents(handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("subscribing to events: handler cannot be nil")
	}

	err := s.client.Subscribe(s.topics.AllEvents(), s.qos, func(topic string, payload []byte) error {
		eventType := eventFromTopic(topic)
		if eventType == "" {
			return fmt.Errorf("event topic %q: missing event type", topic)
		}

		var data map[string]any
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &data); err != nil {
				return fmt.Errorf("event payload for %s: %w", eventType, err)
			}
		}

		handler(Event{Type: eventType, Data: data})
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	return nil
}

// PublishEvent publishes an application event for other consumers.
func (s *Store) PublishEvent(eventType string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", eventType, err)
	}
	if err := s.client.Publish(s.topics.Event(eventType), payload, s.qos, false); err != nil {
		return fmt.Errorf("publishing event %s: %w", eventType, err)
	}
	return nil
}

// eventFromTopic extracts the event type from "ember/event/{type}".
func eventFromTopic(topic string) string {
	const prefix = "ember/event/"
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}
	return topic[len(prefix):]
}
