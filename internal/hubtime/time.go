// Package hubtime provides the wall-clock timestamp used by the hub core.
//
// A Time is a duration since the Unix epoch as reported by the host. It is
// deliberately smaller than time.Time: no location, no monotonic reading.
package hubtime

import (
	"fmt"
	"time"
)

// Time is a point in time expressed as a duration since the Unix epoch.
type Time struct {
	sinceEpoch time.Duration
}

// New creates a Time from a duration since the Unix epoch.
func New(sinceEpoch time.Duration) Time {
	return Time{sinceEpoch: sinceEpoch}
}

// FromTime converts a time.Time into a Time.
func FromTime(t time.Time) Time {
	return Time{sinceEpoch: time.Duration(t.UnixNano())}
}

// SinceEpoch returns the duration since the Unix epoch.
func (t Time) SinceEpoch() time.Duration {
	return t.sinceEpoch
}

// Unix returns the number of whole seconds since the Unix epoch.
func (t Time) Unix() int64 {
	return int64(t.sinceEpoch / time.Second)
}

// Sub returns the duration t-earlier. It panics if earlier is after t:
// a negative elapsed time means the caller mixed up its timestamps.
func (t Time) Sub(earlier Time) time.Duration {
	if earlier.sinceEpoch > t.sinceEpoch {
		panic(fmt.Sprintf("hubtime: negative duration (%v - %v)", t.sinceEpoch, earlier.sinceEpoch))
	}
	return t.sinceEpoch - earlier.sinceEpoch
}

// Add returns t+d.
func (t Time) Add(d time.Duration) Time {
	return Time{sinceEpoch: t.sinceEpoch + d}
}

// After reports whether t is strictly after u.
func (t Time) After(u Time) bool {
	return t.sinceEpoch > u.sinceEpoch
}

// Before reports whether t is strictly before u.
func (t Time) Before(u Time) bool {
	return t.sinceEpoch < u.sinceEpoch
}

// IsZero reports whether t is the Unix epoch itself.
func (t Time) IsZero() bool {
	return t.sinceEpoch == 0
}

func (t Time) String() string {
	return time.Unix(0, int64(t.sinceEpoch)).UTC().Format(time.RFC3339Nano)
}
