package wintercredit

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoData is returned by queries made before the first successful RefreshData
var ErrNoData = errors.New("winter credit data has not been fetched")

// ErrNoUpcomingPeak is returned by NextPeak once every peak of the season has
// ended. This is deliberately an error while NextCriticalPeak reports the same
// situation as absence; the upstream behavior is asymmetric and consumers
// depend on it.
var ErrNoUpcomingPeak = errors.New("no upcoming peak in the season")

// InvalidRangeError reports a time range whose end is not after its start
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid time range: end %s is not after start %s", e.End, e.Start)
}

// InvalidKindError reports a peak variant that is neither morning nor evening
type InvalidKindError struct {
	Kind string
}

func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("peak kind %q must be %q or %q", e.Kind, Morning, Evening)
}

// CalendarError reports a query that matched more peaks than the calendar
// structure allows. It means the derived calendar is corrupted and must reach
// the caller.
type CalendarError struct {
	Query string
	Count int
}

func (e *CalendarError) Error() string {
	return fmt.Sprintf("%s: found %d peaks where at most one is possible", e.Query, e.Count)
}
