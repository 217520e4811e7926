package tracker

import "time"

// Timer is a two-state dwell clock ("clear" or "running since T") with a
// latch used by rules that must fire once per period.
type Timer struct {
	start   time.Time
	latched bool
}

// Running reports whether a period is in progress.
func (t *Timer) Running() bool {
	return !t.start.IsZero()
}

// Since returns the start of the current period, zero when clear.
func (t *Timer) Since() time.Time {
	return t.start
}

// Elapsed returns how long the current period has lasted at now.
func (t *Timer) Elapsed(now time.Time) time.Duration {
	if !t.Running() {
		return 0
	}

	return now.Sub(t.start)
}

// Observe advances a dwell period. It starts the period on the first active
// observation, fires once the period exceeds threshold and then clears, so
// the next period must accumulate from scratch. An inactive observation
// clears the period with no partial credit.
func (t *Timer) Observe(active bool, now time.Time, threshold time.Duration) bool {
	if !active {
		t.Clear()

		return false
	}

	if !t.Running() {
		t.start = now

		return false
	}

	if now.Sub(t.start) > threshold {
		t.Clear()

		return true
	}

	return false
}

// Clear drops the current period.
func (t *Timer) Clear() {
	t.start = time.Time{}
}

// Arm restarts the period at now and releases the latch.
func (t *Timer) Arm(now time.Time) {
	t.start = now
	t.latched = false
}

// Due reports whether the armed period exceeded threshold and has not latched yet.
func (t *Timer) Due(now time.Time, threshold time.Duration) bool {
	return t.Running() && !t.latched && now.Sub(t.start) > threshold
}

// Latch marks the period as reported until the next Arm.
func (t *Timer) Latch() {
	t.latched = true
}

// Latched reports whether the period was already reported.
func (t *Timer) Latched() bool {
	return t.latched
}
