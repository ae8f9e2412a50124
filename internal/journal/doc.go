// Package journal stores the outcome of every thermostat command in
// SQLite: what was sent, where, how many attempts it took, and whether
// the device ever confirmed it. The history backs the status API and
// makes actuation failures diagnosable after the fact.
package journal
