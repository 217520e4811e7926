// Package websocket pushes fired alarms to connected displays.
//
// A Hub owns the set of clients and fans broadcast messages out to them. A
// client that cannot keep up is disconnected instead of slowing the hub.
// New connections receive the most recent alarms first, then one "alarm"
// message per fired alarm.
package websocket
