// Package heating implements rule-based room temperature control.
//
// Each room runs as its own controller goroutine that exclusively owns
// the room's runtime state. External inputs (schedule ticks, override
// events, sensor and thermostat state changes, the master switch) are
// serialized through the controller's event channel, so no locking is
// needed around scheduling decisions.
//
//	                    ┌──────────────┐
//	  entity changes ──►│   Manager    │──► per-room routing
//	                    └──────┬───────┘
//	                           │
//	              ┌────────────┼────────────┐
//	              ▼            ▼            ▼
//	        ┌──────────┐ ┌──────────┐ ┌──────────┐
//	        │Controller│ │Controller│ │Controller│   one per room
//	        └────┬─────┘ └────┬─────┘ └────┬─────┘
//	             │ commands (one goroutine per thermostat)
//	             ▼
//	        ┌──────────┐    send / verify / retry
//	        │ Actuator │──► platform services
//	        └──────────┘
//
// Room state precedence, highest first: master switch off, open
// window, temperature override, schedule. A settled-open window forces
// the off temperature and cancels any override; when the last window
// closes the room returns to its schedule, never to the override.
//
// Thermostat commands are verified against reported state and resent
// on a fixed interval until accepted or the retry budget is spent. A
// newer target for the same thermostat supersedes a still-retrying
// command. Every resolved command is journalled.
package heating
