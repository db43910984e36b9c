package agenda

import "time"

const (
	dateLayout     = "<2006-01-02 Mon>"
	dateTimeLayout = "<2006-01-02 Mon 15:04>"
)

// formatDate renders t as an agenda date stamp in loc.
func formatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// formatDateTime renders t as an agenda date-time stamp in loc.
func formatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateTimeLayout)
}

// isMidnight reports whether t is exactly 00:00:00.000000000 in loc.
func isMidnight(t time.Time, loc *time.Location) bool {
	t = t.In(loc)
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
