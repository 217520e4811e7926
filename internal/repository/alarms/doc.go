// Package alarms implements the append-only alarm sink.
//
// Two backends share the Repository interface: a JSON array file replaced
// atomically on every append, and a SQLite database. Alarms are never
// deduplicated or expired.
package alarms
