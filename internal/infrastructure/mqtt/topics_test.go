package mqtt

import "testing"

func TestTopics_Builders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "entity state",
			got:      topics.EntityState("climate.living_room"),
			expected: "ember/state/climate.living_room",
		},
		{
			name:     "service call",
			got:      topics.Service("climate", "set_temperature"),
			expected: "ember/service/climate/set_temperature",
		},
		{
			name:     "event",
			got:      topics.Event("heaty_set_temp"),
			expected: "ember/event/heaty_set_temp",
		},
		{
			name:     "room state",
			got:      topics.RoomState("living"),
			expected: "ember/room/living/state",
		},
		{
			name:     "system status",
			got:      topics.SystemStatus(),
			expected: "ember/system/status",
		},
		{
			name:     "system shutdown",
			got:      topics.SystemShutdown(),
			expected: "ember/system/shutdown",
		},
		{
			name:     "all states wildcard",
			got:      topics.AllStates(),
			expected: "ember/state/+",
		},
		{
			name:     "all events wildcard",
			got:      topics.AllEvents(),
			expected: "ember/event/+",
		},
		{
			name:     "all room states wildcard",
			got:      topics.AllRoomStates(),
			expected: "ember/room/+/state",
		},
		{
			name:     "all topics wildcard",
			got:      topics.AllTopics(),
			expected: "ember/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

// =============================================================================
// Validation Tests (no broker required)
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if err := client.Publish("", []byte("x"), 1, false); err != ErrInvalidTopic {
		t.Errorf("Publish(empty topic) error = %v, want ErrInvalidTopic", err)
	}

	if err := client.Publish("ember/state/x", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("Publish(qos=3) error = %v, want ErrInvalidQoS", err)
	}

	if err := client.Publish("ember/state/x", []byte("x"), 1, false); err != ErrNotConnected {
		t.Errorf("Publish(disconnected) error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); err != ErrInvalidTopic {
		t.Errorf("Subscribe(empty topic) error = %v, want ErrInvalidTopic", err)
	}

	if err := client.Subscribe("ember/state/+", 1, nil); err == nil {
		t.Error("Subscribe(nil handler) expected error, got nil")
	}

	if err := client.Subscribe("ember/state/+", 1, handler); err != ErrNotConnected {
		t.Errorf("Subscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
}

func TestSubscriptionTracking(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}

	if client.HasSubscription("ember/state/+") {
		t.Error("HasSubscription() = true for untracked topic")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
}
