package usagewatch

import "time"

// computeResetInfo derives the cycle reset date from the user's cycle
// start: one anniversary month after the start, preserving the start's
// day-of-month where the target month allows it. DaysRemaining is the
// ceiling of the time left in whole days and may be negative under clock
// skew; display code clamps it.
func computeResetInfo(cycleStart, now time.Time) ResetInfo {
	reset := addMonthClamped(cycleStart)
	remaining := reset.Sub(now)

	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}

	return ResetInfo{
		ResetDate:     reset,
		DaysRemaining: days,
	}
}

// addMonthClamped adds one month to t, clipping to the last day of the
// target month when t's day does not exist there (e.g. Jan 31 -> Feb 28).
// Plain AddDate would overflow into the following month instead.
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	// day=0 of month+1 is the last day of the target month.
	lastDay := time.Date(firstOfTarget.Year(), firstOfTarget.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
