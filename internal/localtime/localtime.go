// Package localtime converts provider-supplied timestamps into the single
// local reference frame shared by every dataset. Values are treated as naive
// wall-clock times: the provider reports UTC, a static signed-hour offset
// shifts it to operator-local time, and the result is compared and stored
// without any zone information. The offset is configuration, not tzdata, so
// the operator owns DST correctness.
package localtime

import "time"

// ProviderLayout is the timestamp format used by the scrobble-history
// provider, e.g. "29 Nov 2025, 13:01".
const ProviderLayout = "02 Jan 2006, 15:04"

// StorageLayout is the dataset timestamp format. The formatted string is the
// dedup key, so every producer must use it verbatim.
const StorageLayout = "2006-01-02 15:04:05"

// Normalizer converts provider timestamps to local wall-clock time.
type Normalizer struct {
	offset time.Duration
	now    func() time.Time
}

// New builds a Normalizer applying the given signed hour offset. The now
// function may be nil, in which case time.Now is used.
func New(offsetHours int, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		offset: time.Duration(offsetHours) * time.Hour,
		now:    now,
	}
}

// Normalize converts a raw provider timestamp into local wall-clock time.
// An empty raw value means "currently in progress" and yields the current
// time. A malformed value also yields the current time but reports the
// fallback, so callers can warn without dropping the event.
func (n *Normalizer) Normalize(raw string) (time.Time, bool) {
	if raw == "" {
		return n.localNow(), false
	}
	parsed, err := time.Parse(ProviderLayout, raw)
	if err != nil {
		return n.localNow(), true
	}
	return parsed.Add(n.offset), false
}

func (n *Normalizer) localNow() time.Time {
	return WallClock(n.now())
}

// WallClock strips the location from t, re-encoding its wall-clock reading
// so it compares correctly against parsed naive timestamps.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// Format renders t in the dataset storage format.
func Format(t time.Time) string {
	return t.Format(StorageLayout)
}

// ParseStored parses a dataset timestamp back into a wall-clock value.
func ParseStored(value string) (time.Time, error) {
	return time.Parse(StorageLayout, value)
}
