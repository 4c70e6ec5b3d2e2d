package common

import "time"

// Default staleness thresholds
const (
	DefaultThresholdHours    = 24
	DefaultMaxStaleFallbacks = 5
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	return IsFreshAt(updated, ttl, time.Now())
}

// IsFreshAt is IsFresh evaluated against a supplied clock reading.
func IsFreshAt(updated time.Time, ttl time.Duration, now time.Time) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}

// AgeHours returns the whole number of hours elapsed since ts. A zero ts is
// treated as infinitely old.
func AgeHours(ts, now time.Time) int64 {
	if ts.IsZero() {
		return 1<<62 - 1
	}
	return int64(now.Sub(ts) / time.Hour)
}
