package plan

import "time"

// DateOnly truncates a time to its calendar date in UTC.
// All engine date arithmetic happens on calendar days; wall-clock time
// of day never influences a schedule.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
// Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	da := DateOnly(a)
	db := DateOnly(b)
	return int(db.Sub(da).Hours() / 24)
}
