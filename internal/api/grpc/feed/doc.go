// Package feed implements the gRPC alarm feed.
//
// The service is described by hand with well-known protobuf types, so no
// generated stubs are needed: RecentAlarms takes a UInt32Value count and
// returns a ListValue of alarm structs, TrackedVessels returns the number of
// vessels in the engine state.
package feed
