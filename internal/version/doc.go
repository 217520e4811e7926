// Package version exposes build metadata for maritime-alarm.
//
// Version, Commit and BuildTime are injected via ldflags.
package version
