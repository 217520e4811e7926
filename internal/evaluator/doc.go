// Package evaluator applies the alarm rules to the tracked vessel state.
//
// Dwell rules (proximity to infrastructure, low-speed loitering) run on every
// poll from a rule table and share tracker.Timer. The inactivity rule runs on
// the slower sweep over every tracked vessel and is suppressed inside the
// buffered border zones.
//
// A failed geometry query leaves the rule's state as it was: nothing fires
// and the rule is evaluated again on the next cycle.
package evaluator
