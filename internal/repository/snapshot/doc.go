// Package snapshot implements the vessel snapshot store.
//
// The FileRepository keeps the latest report of every vessel in a single JSON
// object keyed by MMSI. Every upsert first drops entries older than the
// retention window, then refuses to grow the file beyond MaxStoreSize.
// Files are replaced atomically so readers never see a partial document.
package snapshot
