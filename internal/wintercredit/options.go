package wintercredit

import (
	"fmt"
	"time"
)

// ReferenceTimezone is the timezone the winter credit program operates in.
// Every peak window is defined as wall-clock time in this zone.
const ReferenceTimezone = "America/Toronto"

// TimeOfDay is a wall-clock time within a day
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// String formats the time of day the way the Hydro-Québec API does ("HH:MM:SS")
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Options holds the tunable constants of the winter credit program
type Options struct {
	// AnchorStartOffset is how long before peak start the anchor window opens
	AnchorStartOffset time.Duration
	// AnchorDuration is the length of the anchor window
	AnchorDuration time.Duration
	// PreHeatStartOffset is how long before peak start the pre-heat window opens
	PreHeatStartOffset time.Duration
	// PreHeatEndOffset is how long before peak start the pre-heat window closes
	// (0 means pre-heat runs right up to the peak)
	PreHeatEndOffset time.Duration

	MorningStart TimeOfDay
	MorningEnd   TimeOfDay
	EveningStart TimeOfDay
	EveningEnd   TimeOfDay

	Location *time.Location
}

// DefaultOptions returns the program defaults: anchor 5h before the peak for
// 3h, pre-heat for the 3h right before the peak, morning window 06:00-09:00
// and evening window 16:00-20:00 Eastern.
func DefaultOptions() Options {
	return Options{
		AnchorStartOffset:  5 * time.Hour,
		AnchorDuration:     3 * time.Hour,
		PreHeatStartOffset: 3 * time.Hour,
		PreHeatEndOffset:   0,
		MorningStart:       TimeOfDay{Hour: 6},
		MorningEnd:         TimeOfDay{Hour: 9},
		EveningStart:       TimeOfDay{Hour: 16},
		EveningEnd:         TimeOfDay{Hour: 20},
		Location:           referenceLocation,
	}
}

var referenceLocation = func() *time.Location {
	loc, err := time.LoadLocation(ReferenceTimezone)
	if err != nil {
		panic(fmt.Sprintf("loading reference timezone: %v", err))
	}
	return loc
}()

// Validate checks that the options describe well-formed windows
func (o Options) Validate() error {
	if o.Location == nil {
		return fmt.Errorf("options: location is required")
	}
	if o.AnchorDuration <= 0 {
		return fmt.Errorf("options: anchor duration must be positive")
	}
	if o.PreHeatStartOffset <= o.PreHeatEndOffset {
		return fmt.Errorf("options: pre-heat start offset must be greater than end offset")
	}
	if !before(o.MorningStart, o.MorningEnd) {
		return fmt.Errorf("options: morning window end must be after start")
	}
	if !before(o.EveningStart, o.EveningEnd) {
		return fmt.Errorf("options: evening window end must be after start")
	}
	return nil
}

func before(a, b TimeOfDay) bool {
	as := a.Hour*3600 + a.Minute*60 + a.Second
	bs := b.Hour*3600 + b.Minute*60 + b.Second
	return as < bs
}
