// Package tracker keeps the per-vessel state the alarm rules run on.
//
// State is never persisted and is owned by a single goroutine, the engine
// loop, so nothing in this package is safe for concurrent use.
package tracker
