// Package mqtt provides MQTT client connectivity for Ember Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Ember uses MQTT as the message bus connecting the scheduler to the
// home-automation platform bridge. The bridge mirrors entity states onto
// retained topics and executes service calls published by the scheduler.
// The broker (Mosquitto) decouples the scheduler from platform specifics.
//
//	Ember Core ↔ MQTT Broker ↔ Platform Bridge
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all entity state updates
//	err = client.Subscribe(mqtt.Topics{}.AllStates(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish service call
//	topic := mqtt.Topics{}.Service("climate", "set_temperature")
//	client.Publish(topic, []byte(`{"entity_id":"climate.living","temperature":21.5}`), 1, false)
package mqtt
