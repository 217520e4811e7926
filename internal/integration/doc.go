// Package integration runs the real server end to end in tests.
package integration
