package reconcile

import "time"

// Window is the collection boundary applied to normalized local timestamps.
// A rolling window has only a start; a backfill window is closed on both
// ends, inclusive.
type Window struct {
	start time.Time
	end   time.Time
}

// Rolling returns a window accepting everything at or after start.
func Rolling(start time.Time) Window {
	return Window{start: start}
}

// Backfill returns a closed window accepting timestamps in [start, end].
func Backfill(start, end time.Time) Window {
	return Window{start: start, end: end}
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	if ts.Before(w.start) {
		return false
	}
	if !w.end.IsZero() && ts.After(w.end) {
		return false
	}
	return true
}

// Start returns the window's lower bound.
func (w Window) Start() time.Time { return w.start }

// Bounded reports whether the window has an upper bound.
func (w Window) Bounded() bool { return !w.end.IsZero() }
