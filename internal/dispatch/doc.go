// Package dispatch connects the outside world to the room
// controllers.
//
// Three input paths feed the heating manager:
//
//   - a fixed-interval tick that soft-reschedules every room, so rule
//     transitions are observed within one tick of wall-clock time
//   - debounced state changes of configured reschedule entities,
//     collapsed into a single hard reschedule per settled burst
//   - the external control events heaty_set_temp and heaty_reschedule,
//     validated and routed to the addressed room
//
// Malformed events are logged and dropped; they never abort the
// dispatcher or affect other rooms.
package dispatch
