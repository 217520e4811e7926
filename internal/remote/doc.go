// Package remote talks to a receive endpoint of another maritime-alarm node.
//
// The Client reads the ship snapshot (GET ?type=ships), forwards fired alarms
// and posts ingested ships (POST type=alarms|ships with json_data). Every call
// goes through a circuit breaker so a dead peer is not hammered every poll.
package remote
