// Package client implements the alarms command.
//
// The command connects to the gRPC alarm feed of a running server, prints the
// most recent alarms and, when following, keeps polling for new ones.
package client
