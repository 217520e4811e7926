// Package engine runs the alarm engine lifecycle.
//
// One loop goroutine owns the tracker state. It polls the snapshot source on
// a fast ticker, sweeps for silent vessels on a slow ticker and hands fired
// alarms to a dispatcher goroutine through a bounded queue. Fetches run in
// their own goroutine, at most one at a time, so a slow source never delays
// the sweep.
package engine
