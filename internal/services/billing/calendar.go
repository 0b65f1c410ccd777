package billing

import "time"

// isLastDayOfMonth reports whether t falls on the final calendar day of its
// month, in t's own location. time.Date with day 0 resolves to the last day
// of the previous month, which handles February and leap years.
func isLastDayOfMonth(t time.Time) bool {
	y, m, d := t.Date()
	lastDay := time.Date(y, m+1, 0, 0, 0, 0, 0, t.Location()).Day()
	return d == lastDay
}
