// Package platform is the scheduler's view of the home-automation
// platform it controls.
//
// The platform bridge mirrors entity states (thermostats, window
// sensors, switches) onto retained MQTT topics and executes service
// calls published by the scheduler:
//
//	ember/state/{entity_id}           retained state, bridge → scheduler
//	ember/service/{domain}/{service}  service calls, scheduler → bridge
//	ember/event/{type}                application events, both directions
//
// Store keeps the last known state of every entity and notifies a
// change handler on genuine transitions (retained replays and repeated
// identical states are suppressed). Because the broker replays retained
// state on subscription, the store is warm shortly after startup and the
// scheduler can resolve schedules against real state immediately.
package platform
