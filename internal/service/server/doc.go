// Package server wires the alarm engine, its stores and its transports into
// one supervised process.
package server
