package wintercredit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/peakwatch/peakwatch/pkg/models"
)

// State is the current position of the clock relative to the derived calendar
type State string

const (
	StateNormal         State = "normal"
	StateAnchor         State = "anchor"
	StateCriticalAnchor State = "critical_anchor"
	StatePeak           State = "peak"
	StateCriticalPeak   State = "critical_peak"
)

// Fetcher retrieves the raw winter credit payload for a contract
type Fetcher interface {
	GetWinterCredit(ctx context.Context, webUserID, customerID, contractID string) (*models.WinterData, error)
}

// Handler owns the raw seasonal payload for one contract and derives the peak
// calendar and the current/next/previous event from it. Every query is a pure
// function of the payload and the injected clock; only RefreshData does I/O.
type Handler struct {
	webUserID  string
	customerID string
	contractID string
	client     Fetcher
	opts       Options
	now        func() time.Time

	raw *models.WinterData
}

// NewHandler creates a handler with the program defaults and the system clock
func NewHandler(webUserID, customerID, contractID string, client Fetcher) *Handler {
	return NewHandlerWithOptions(webUserID, customerID, contractID, client, DefaultOptions())
}

// NewHandlerWithOptions creates a handler with overridden program constants
func NewHandlerWithOptions(webUserID, customerID, contractID string, client Fetcher, opts Options) *Handler {
	return &Handler{
		webUserID:  webUserID,
		customerID: customerID,
		contractID: contractID,
		client:     client,
		opts:       opts,
		now:        time.Now,
	}
}

// SetClock replaces the wall clock, letting tests freeze time
func (h *Handler) SetClock(now func() time.Time) { h.now = now }

// WebUserID returns the web user id
func (h *Handler) WebUserID() string { return h.webUserID }

// CustomerID returns the customer id
func (h *Handler) CustomerID() string { return h.customerID }

// ContractID returns the contract id
func (h *Handler) ContractID() string { return h.contractID }

// RefreshData replaces the raw payload with a fresh one from the API. The
// declared critical peak records are sorted by (date, start time) so that
// matching order does not depend on upstream ordering. Fetch failures
// propagate to the caller; retry policy lives with the client.
func (h *Handler) RefreshData(ctx context.Context) error {
	raw, err := h.client.GetWinterCredit(ctx, h.webUserID, h.customerID, h.contractID)
	if err != nil {
		return fmt.Errorf("fetching winter credit data: %w", err)
	}
	if len(raw.WinterPeriods) > 0 {
		recs := raw.WinterPeriods[0].CriticalPeaks
		sort.SliceStable(recs, func(i, j int) bool {
			if recs[i].Date != recs[j].Date {
				return recs[i].Date < recs[j].Date
			}
			return recs[i].StartTime < recs[j].StartTime
		})
	}
	h.raw = raw
	return nil
}

// RawData returns the last fetched payload, nil before the first refresh
func (h *Handler) RawData() *models.WinterData { return h.raw }

// IsEnabled reports whether the contract's rate option is the winter credit
// option. Before the first fetch the answer is unknown and assumed true, so
// callers probing before data is available are not turned away.
func (h *Handler) IsEnabled() bool {
	if h.raw == nil || h.raw.RateOption == "" {
		return true
	}
	return h.raw.RateOption == models.RateOptionCPC
}

// season returns the current winter period of the payload
func (h *Handler) season() (*models.WinterPeriod, error) {
	if h.raw == nil || len(h.raw.WinterPeriods) == 0 {
		return nil, ErrNoData
	}
	return &h.raw.WinterPeriods[0], nil
}

// timeNow reads the clock in the reference timezone
func (h *Handler) timeNow() time.Time {
	return h.now().In(h.opts.Location)
}

// WinterStartDate returns the start of the winter credit season
func (h *Handler) WinterStartDate() (time.Time, error) {
	season, err := h.season()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(models.HydroTimestampFormat, season.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing winter start date %q: %w", season.StartDate, err)
	}
	return t, nil
}

// WinterEndDate returns the end of the winter credit season
func (h *Handler) WinterEndDate() (time.Time, error) {
	season, err := h.season()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(models.HydroTimestampFormat, season.EndDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing winter end date %q: %w", season.EndDate, err)
	}
	return t, nil
}

// CumulatedCredit returns the projected total credit for the season
func (h *Handler) CumulatedCredit() (float64, error) {
	if h.raw == nil {
		return 0, ErrNoData
	}
	credit, err := strconv.ParseFloat(h.raw.ProjectedCredit, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing cumulated credit %q: %w", h.raw.ProjectedCredit, err)
	}
	return credit, nil
}

// Peaks materializes the full calendar: one morning and one evening peak per
// season day, each matched against the declared critical peak records, sorted
// by start time. The calendar is rebuilt on every call so it always reflects
// the latest payload.
func (h *Handler) Peaks() ([]*Peak, error) {
	start, err := h.WinterStartDate()
	if err != nil {
		return nil, err
	}
	end, err := h.WinterEndDate()
	if err != nil {
		return nil, err
	}

	var peaks []*Peak
	for cur := start.In(h.opts.Location); cur.Before(end); cur = cur.AddDate(0, 0, 1) {
		for _, kind := range []Kind{Morning, Evening} {
			peak, err := NewPeak(cur, kind, h.opts)
			if err != nil {
				return nil, err
			}
			if err := h.matchCritical(peak); err != nil {
				return nil, err
			}
			peaks = append(peaks, peak)
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Start().Before(peaks[j].Start())
	})
	return peaks, nil
}

// matchCritical marks the peak critical if a declared record exists for its
// day and expected start time. Morning records are keyed on the morning
// window start; evening records are keyed on the evening window END time
// (20:00), which is how the upstream API publishes them. First match wins,
// which is deterministic because RefreshData pre-sorts the records.
func (h *Handler) matchCritical(peak *Peak) error {
	season, err := h.season()
	if err != nil {
		return err
	}

	var want string
	switch peak.Kind() {
	case Morning:
		want = h.opts.MorningStart.String()
	case Evening:
		want = h.opts.EveningEnd.String()
	default:
		return &InvalidKindError{Kind: string(peak.Kind())}
	}

	for i := range season.CriticalPeaks {
		rec := season.CriticalPeaks[i]
		date, err := rec.ParseDate()
		if err != nil {
			return err
		}
		if sameDay(date.In(h.opts.Location), peak.Day()) && rec.StartTime == want {
			peak.setCritical(rec)
			return nil
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// CriticalPeaks returns the declared peaks of the season
func (h *Handler) CriticalPeaks() ([]*Peak, error) {
	peaks, err := h.Peaks()
	if err != nil {
		return nil, err
	}
	var critical []*Peak
	for _, p := range peaks {
		if p.IsCritical() {
			critical = append(critical, p)
		}
	}
	return critical, nil
}

// CurrentPeak returns the peak strictly containing the present moment, nil
// when none is in progress. More than one match means the calendar is
// corrupted and surfaces as a CalendarError.
func (h *Handler) CurrentPeak() (*Peak, error) {
	peaks, err := h.Peaks()
	if err != nil {
		return nil, err
	}
	now := h.timeNow()
	var matches []*Peak
	for _, p := range peaks {
		if p.Contains(now) {
			matches = append(matches, p)
		}
	}
	if len(matches) > 1 {
		return nil, &CalendarError{Query: "current peak", Count: len(matches)}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	return nil, nil
}

// CurrentPeakIsCritical reports whether the running peak is critical, nil
// when no peak is running
func (h *Handler) CurrentPeakIsCritical() (*bool, error) {
	peak, err := h.CurrentPeak()
	if err != nil {
		return nil, err
	}
	if peak == nil {
		return nil, nil
	}
	critical := peak.IsCritical()
	return &critical, nil
}

// CurrentState classifies the present moment against the calendar. Anchor
// membership is checked before peak membership; the first peak in calendar
// order whose window matches decides the answer.
func (h *Handler) CurrentState() (State, error) {
	peaks, err := h.Peaks()
	if err != nil {
		return "", err
	}
	now := h.timeNow()

	for _, p := range peaks {
		if anchor := p.Anchor(); anchor.Contains(now) {
			if anchor.IsCritical() {
				return StateCriticalAnchor, nil
			}
			return StateAnchor, nil
		}
	}
	for _, p := range peaks {
		if p.Contains(now) {
			if p.IsCritical() {
				return StateCriticalPeak, nil
			}
			return StatePeak, nil
		}
	}
	return StateNormal, nil
}

// PreheatInProgress reports whether the next peak's pre-heat window is
// running. It shares NextPeak's failure mode once the season has elapsed.
func (h *Handler) PreheatInProgress() (bool, error) {
	next, err := h.NextPeak()
	if err != nil {
		return false, err
	}
	return next.PreHeat().Contains(h.timeNow()), nil
}

// NextPeak returns the earliest peak that has not ended yet, which may be the
// one currently running. Once the season has fully elapsed this is
// ErrNoUpcomingPeak, not an empty result.
func (h *Handler) NextPeak() (*Peak, error) {
	peaks, err := h.Peaks()
	if err != nil {
		return nil, err
	}
	now := h.timeNow()
	var next *Peak
	for _, p := range peaks {
		if now.Before(p.End()) && (next == nil || p.Start().Before(next.Start())) {
			next = p
		}
	}
	if next == nil {
		return nil, ErrNoUpcomingPeak
	}
	return next, nil
}

// NextCriticalPeak returns the earliest declared peak that has not ended yet,
// nil when none remain. Unlike NextPeak, running out of critical peaks is an
// ordinary absence, not an error.
func (h *Handler) NextCriticalPeak() (*Peak, error) {
	critical, err := h.CriticalPeaks()
	if err != nil {
		return nil, err
	}
	now := h.timeNow()
	var next *Peak
	for _, p := range critical {
		if now.Before(p.End()) && (next == nil || p.Start().Before(next.Start())) {
			next = p
		}
	}
	return next, nil
}

// IsAnyCriticalPeakComing reports whether a declared peak is still ahead
func (h *Handler) IsAnyCriticalPeakComing() (bool, error) {
	next, err := h.NextCriticalPeak()
	if err != nil {
		return false, err
	}
	return next != nil, nil
}

// peakOnDay returns the peak of the given variant on today+offset, nil when
// the day is outside the season
func (h *Handler) peakOnDay(offsetDays int, kind Kind, query string) (*Peak, error) {
	peaks, err := h.Peaks()
	if err != nil {
		return nil, err
	}
	now := h.timeNow()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.opts.Location).
		AddDate(0, 0, offsetDays)

	var matches []*Peak
	for _, p := range peaks {
		if p.Kind() == kind && p.Day().Equal(day) {
			matches = append(matches, p)
		}
	}
	if len(matches) > 1 {
		return nil, &CalendarError{Query: query, Count: len(matches)}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	return nil, nil
}

// TodayMorningPeak returns today's morning peak, nil outside the season
func (h *Handler) TodayMorningPeak() (*Peak, error) {
	return h.peakOnDay(0, Morning, "today morning peak")
}

// TodayEveningPeak returns today's evening peak, nil outside the season
func (h *Handler) TodayEveningPeak() (*Peak, error) {
	return h.peakOnDay(0, Evening, "today evening peak")
}

// TomorrowMorningPeak returns tomorrow's morning peak, nil outside the season
func (h *Handler) TomorrowMorningPeak() (*Peak, error) {
	return h.peakOnDay(1, Morning, "tomorrow morning peak")
}

// TomorrowEveningPeak returns tomorrow's evening peak, nil outside the season
func (h *Handler) TomorrowEveningPeak() (*Peak, error) {
	return h.peakOnDay(1, Evening, "tomorrow evening peak")
}

// YesterdayMorningPeak returns yesterday's morning peak, nil outside the season
func (h *Handler) YesterdayMorningPeak() (*Peak, error) {
	return h.peakOnDay(-1, Morning, "yesterday morning peak")
}

// YesterdayEveningPeak returns yesterday's evening peak, nil outside the season
func (h *Handler) YesterdayEveningPeak() (*Peak, error) {
	return h.peakOnDay(-1, Evening, "yesterday evening peak")
}

// NextAnchor returns the earliest anchor window that has not ended yet, nil
// when none remain
func (h *Handler) NextAnchor() (*Anchor, error) {
	peaks, err := h.Peaks()
	if err != nil {
		return nil, err
	}
	now := h.timeNow()
	var next *Anchor
	for _, p := range peaks {
		anchor := p.Anchor()
		if now.Before(anchor.End()) && (next == nil || anchor.Start().Before(next.Start())) {
			next = &anchor
		}
	}
	return next, nil
}
