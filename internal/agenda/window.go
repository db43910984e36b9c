package agenda

import "time"

// MaxWindowDays bounds the look-around so both window edges stay within the
// range time.Time can represent.
const MaxWindowDays = 100_000_000

// Window is the open interval (Start, End) of instants that produce entries.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns [now - days, now + days] in loc, a day being exactly 24
// hours. days above MaxWindowDays is clamped.
func NewWindow(now time.Time, days uint, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	if days > MaxWindowDays {
		days = MaxWindowDays
	}
	now = now.In(loc)
	// time.Duration tops out near 292 years, so offset in whole seconds.
	half := int64(days) * 24 * 60 * 60
	sec, nsec := now.Unix(), int64(now.Nanosecond())
	return Window{
		Start: time.Unix(sec-half, nsec).In(loc),
		End:   time.Unix(sec+half, nsec).In(loc),
	}
}
