// Package alarm contains the alarm record raised by the evaluator.
//
// An Alarm is immutable once fired and is only ever appended to a sink.
// Reason enumerates the suspicion patterns the engine detects.
package alarm
