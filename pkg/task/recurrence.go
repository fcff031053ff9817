package task

import "time"

// NextRun computes the next due timestamp after a successful execution.
//
// Daily, weekly and monthly tasks advance from the previous scheduled time,
// preserving the wall-clock time of day even when the execution ran late.
// Interval tasks anchor to the actual execution time instead, so a late tick
// shifts the cadence forward rather than triggering a catch-up storm.
//
// Monthly arithmetic uses time.Time.AddDate normalization: an anchor day
// missing from the target month rolls over (Jan 31 + 1 month = Mar 2 or 3).
func NextRun(t ScheduledTask, executedAt time.Time) time.Time {
	switch t.ScheduleType {
	case ScheduleDaily:
		return t.ScheduledAt.AddDate(0, 0, 1)
	case ScheduleWeekly:
		return t.ScheduledAt.AddDate(0, 0, 7)
	case ScheduleMonthly:
		return t.ScheduledAt.AddDate(0, 1, 0)
	case ScheduleInterval:
		return executedAt.Add(time.Duration(t.IntervalMinutes) * time.Minute)
	default:
		// once: the caller finalizes status separately.
		return t.ScheduledAt
	}
}
