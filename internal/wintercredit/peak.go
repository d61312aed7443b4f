package wintercredit

import (
	"time"

	"github.com/peakwatch/peakwatch/pkg/models"
)

// Kind identifies which daily window a peak belongs to
type Kind string

const (
	Morning Kind = "morning"
	Evening Kind = "evening"
)

// Peak is a single demand-response window for one calendar day. Its start and
// end are derived from the day and the configured windows; the anchor and
// pre-heat periods are derived from the start on demand.
type Peak struct {
	day      time.Time // midnight in the reference timezone
	kind     Kind
	opts     Options
	critical bool
	stats    *models.CriticalPeak
}

// NewPeak builds the peak of the given day and variant. The kind is validated
// here so the derived window accessors cannot fail later.
func NewPeak(date time.Time, kind Kind, opts Options) (*Peak, error) {
	if kind != Morning && kind != Evening {
		return nil, &InvalidKindError{Kind: string(kind)}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	d := date.In(opts.Location)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, opts.Location)
	return &Peak{day: day, kind: kind, opts: opts}, nil
}

// Kind returns the morning/evening variant
func (p *Peak) Kind() Kind { return p.kind }

// IsMorning reports whether this is a morning peak
func (p *Peak) IsMorning() bool { return p.kind == Morning }

// IsEvening reports whether this is an evening peak
func (p *Peak) IsEvening() bool { return p.kind == Evening }

// Day returns the peak's calendar day at midnight in the reference timezone
func (p *Peak) Day() time.Time { return p.day }

// Start returns the peak window start
func (p *Peak) Start() time.Time {
	if p.kind == Morning {
		return p.at(p.opts.MorningStart)
	}
	return p.at(p.opts.EveningStart)
}

// End returns the peak window end
func (p *Peak) End() time.Time {
	if p.kind == Morning {
		return p.at(p.opts.MorningEnd)
	}
	return p.at(p.opts.EveningEnd)
}

// at places a time of day on the peak's day in the reference timezone
func (p *Peak) at(tod TimeOfDay) time.Time {
	return time.Date(p.day.Year(), p.day.Month(), p.day.Day(),
		tod.Hour, tod.Minute, tod.Second, 0, p.opts.Location)
}

// Contains reports whether t falls strictly inside the peak window
func (p *Peak) Contains(t time.Time) bool {
	return t.After(p.Start()) && t.Before(p.End())
}

// Range returns the peak window as a TimeRange
func (p *Peak) Range() TimeRange {
	return TimeRange{start: p.Start(), end: p.End(), critical: p.critical}
}

// Anchor returns the comfort-baseline window of the peak. It opens
// AnchorStartOffset before the peak and lasts AnchorDuration.
func (p *Peak) Anchor() Anchor {
	start := p.Start().Add(-p.opts.AnchorStartOffset)
	end := start.Add(p.opts.AnchorDuration)
	return Anchor{TimeRange{start: start, end: end, critical: p.critical}}
}

// PreHeat returns the pre-warming window of the peak. It opens
// PreHeatStartOffset before the peak and closes PreHeatEndOffset before it.
func (p *Peak) PreHeat() PreHeat {
	start := p.Start().Add(-p.opts.PreHeatStartOffset)
	end := p.Start().Add(-p.opts.PreHeatEndOffset)
	return PreHeat{TimeRange{start: start, end: end, critical: p.critical}}
}

// IsCritical reports whether the utility declared this peak as a billed event
func (p *Peak) IsCritical() bool { return p.critical }

// setCritical marks the peak as a declared event and keeps the billed
// statistics. Called at most once per peak by the handler's matching step.
func (p *Peak) setCritical(stats models.CriticalPeak) {
	p.critical = true
	p.stats = &stats
}

// Credit returns the credit earned during this peak, nil when not critical
func (p *Peak) Credit() *float64 {
	if p.stats == nil {
		return nil
	}
	return p.stats.Credit
}

// RefConsumption returns the reference consumption, nil when not critical
func (p *Peak) RefConsumption() *float64 {
	if p.stats == nil {
		return nil
	}
	return p.stats.RefConsumption
}

// ActualConsumption returns the measured consumption, nil when not critical
func (p *Peak) ActualConsumption() *float64 {
	if p.stats == nil {
		return nil
	}
	return p.stats.ActualConsumption
}

// SavedConsumption returns the curtailed consumption, nil when not critical
func (p *Peak) SavedConsumption() *float64 {
	if p.stats == nil {
		return nil
	}
	return p.stats.SavedConsumption
}

// ConsumptionCode returns the consumption status code, nil when not critical
func (p *Peak) ConsumptionCode() *string {
	if p.stats == nil {
		return nil
	}
	return p.stats.ConsumptionCode
}

// IsBilled reports whether the credit was billed, nil when not critical
func (p *Peak) IsBilled() *bool {
	if p.stats == nil {
		return nil
	}
	return p.stats.Billed
}
