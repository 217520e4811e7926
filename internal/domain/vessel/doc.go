// Package vessel contains the domain types describing a polled vessel.
//
// A Report is one observation of a vessel keyed by its MMSI. Reports are
// immutable values: the snapshot store replaces them wholesale and the
// tracker only reads them.
package vessel
