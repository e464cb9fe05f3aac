package stats

import "time"

// Window is a trailing time interval of whole days ending at the
// evaluation time. Both ends are inclusive. A zero-day window is empty
// and contains nothing; it is not "today".
type Window struct {
	Start time.Time
	End   time.Time
	empty bool
}

// NewWindow builds the window [now-days, now]. days must be validated
// as non-negative by the caller; a negative value is treated as empty.
func NewWindow(now time.Time, days int) Window {
	if days <= 0 {
		return Window{empty: true}
	}
	return Window{
		Start: now.AddDate(0, 0, -days),
		End:   now,
	}
}

// Empty reports whether the window can contain no event.
func (w Window) Empty() bool { return w.empty }

// Contains reports whether t falls inside the window, inclusive at both
// ends.
func (w Window) Contains(t time.Time) bool {
	if w.empty {
		return false
	}
	return !t.Before(w.Start) && !t.After(w.End)
}
