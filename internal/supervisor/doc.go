// Package supervisor runs the long-lived parts of the server under a suture
// supervision tree.
//
// Services that stop with an error are restarted with backoff. The HTTP and
// gRPC listeners are wrapped as services so the whole process shuts down
// through a single context.
package supervisor
