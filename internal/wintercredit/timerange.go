package wintercredit

import (
	"fmt"
	"time"
)

// TimeRange is an immutable half-open interval [start, end) tagged with
// the critical status of the event it belongs to.
type TimeRange struct {
	start    time.Time
	end      time.Time
	critical bool
}

// NewTimeRange builds a range, failing if end is not strictly after start
func NewTimeRange(start, end time.Time, critical bool) (TimeRange, error) {
	if !end.After(start) {
		return TimeRange{}, &InvalidRangeError{Start: start, End: end}
	}
	return TimeRange{start: start, end: end, critical: critical}, nil
}

// Start returns the start of the range
func (r TimeRange) Start() time.Time { return r.start }

// End returns the end of the range
func (r TimeRange) End() time.Time { return r.end }

// IsCritical reports whether the range belongs to a declared critical event
func (r TimeRange) IsCritical() bool { return r.critical }

// Contains reports whether t falls strictly inside the range. Both bounds are
// exclusive: an event starting exactly now is not in progress yet, and one
// ending exactly now is already over.
func (r TimeRange) Contains(t time.Time) bool {
	return t.After(r.start) && t.Before(r.end)
}

func (r TimeRange) String() string {
	if r.critical {
		return fmt.Sprintf("<TimeRange - %s - critical>", r.start)
	}
	return fmt.Sprintf("<TimeRange - %s>", r.start)
}

// Anchor is the comfort-baseline window preceding a peak's pre-heat period
type Anchor struct {
	TimeRange
}

// PreHeat is the pre-warming window right before a peak
type PreHeat struct {
	TimeRange
}
