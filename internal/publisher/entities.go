package publisher

import (
	"errors"
	"fmt"
	"time"

	"github.com/peakwatch/peakwatch/internal/wintercredit"
)

// Entity is one Home Assistant entity published for a contract. The set is
// closed: every entity peakwatch can publish is declared below.
type Entity struct {
	Component   string // "sensor" or "binary_sensor"
	Key         string
	Name        string
	DeviceClass string // HA device class, empty for none
	Unit        string
}

// Entities is the full entity set published per contract
var Entities = []Entity{
	{Component: "sensor", Key: "current_state", Name: "Current state"},
	{Component: "sensor", Key: "next_peak_start", Name: "Next peak start", DeviceClass: "timestamp"},
	{Component: "sensor", Key: "next_peak_end", Name: "Next peak end", DeviceClass: "timestamp"},
	{Component: "sensor", Key: "next_critical_peak_start", Name: "Next critical peak start", DeviceClass: "timestamp"},
	{Component: "sensor", Key: "cumulated_credit", Name: "Cumulated credit", DeviceClass: "monetary", Unit: "CAD"},
	{Component: "sensor", Key: "winter_start", Name: "Winter start", DeviceClass: "timestamp"},
	{Component: "sensor", Key: "winter_end", Name: "Winter end", DeviceClass: "timestamp"},
	{Component: "binary_sensor", Key: "critical_peak_in_progress", Name: "Critical peak in progress"},
	{Component: "binary_sensor", Key: "preheat_in_progress", Name: "Pre-heat in progress"},
	{Component: "binary_sensor", Key: "upcoming_critical_peak", Name: "Upcoming critical peak"},
	{Component: "binary_sensor", Key: "today_critical_peak", Name: "Critical peak today"},
	{Component: "binary_sensor", Key: "tomorrow_critical_peak", Name: "Critical peak tomorrow"},
}

// SelectEntities resolves a sensor key selection to entities. An empty
// selection means every entity; an unknown key is an error so config typos
// surface instead of silently dropping a sensor.
func SelectEntities(keys []string) ([]Entity, error) {
	if len(keys) == 0 {
		return Entities, nil
	}
	byKey := make(map[string]Entity, len(Entities))
	for _, e := range Entities {
		byKey[e.Key] = e
	}
	selected := make([]Entity, 0, len(keys))
	for _, key := range keys {
		e, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("unknown sensor %q", key)
		}
		selected = append(selected, e)
	}
	return selected, nil
}

// EntityState is a computed value for one entity. Unavailable entities keep
// their last value but are flagged offline in Home Assistant.
type EntityState struct {
	Value     string
	Available bool
}

func available(value string) EntityState {
	return EntityState{Value: value, Available: true}
}

func unavailable() EntityState {
	return EntityState{}
}

func onOff(v bool) EntityState {
	if v {
		return available("ON")
	}
	return available("OFF")
}

// ContractStates derives the value of every entity from the handler's current
// calendar. Absent values (no next critical peak, season elapsed) become
// unavailable entities rather than errors; anything else propagates.
func ContractStates(h *wintercredit.Handler) (map[string]EntityState, error) {
	states := make(map[string]EntityState, len(Entities))

	state, err := h.CurrentState()
	if err != nil {
		return nil, fmt.Errorf("computing current state: %w", err)
	}
	states["current_state"] = available(string(state))

	next, err := h.NextPeak()
	switch {
	case errors.Is(err, wintercredit.ErrNoUpcomingPeak):
		states["next_peak_start"] = unavailable()
		states["next_peak_end"] = unavailable()
		states["preheat_in_progress"] = unavailable()
	case err != nil:
		return nil, fmt.Errorf("computing next peak: %w", err)
	default:
		states["next_peak_start"] = available(next.Start().Format(time.RFC3339))
		states["next_peak_end"] = available(next.End().Format(time.RFC3339))
		preheat, err := h.PreheatInProgress()
		if err != nil {
			return nil, fmt.Errorf("computing pre-heat state: %w", err)
		}
		states["preheat_in_progress"] = onOff(preheat)
	}

	nextCritical, err := h.NextCriticalPeak()
	if err != nil {
		return nil, fmt.Errorf("computing next critical peak: %w", err)
	}
	if nextCritical != nil {
		states["next_critical_peak_start"] = available(nextCritical.Start().Format(time.RFC3339))
	} else {
		states["next_critical_peak_start"] = unavailable()
	}
	states["upcoming_critical_peak"] = onOff(nextCritical != nil)

	currentCritical, err := h.CurrentPeakIsCritical()
	if err != nil {
		return nil, fmt.Errorf("computing current peak: %w", err)
	}
	states["critical_peak_in_progress"] = onOff(currentCritical != nil && *currentCritical)

	credit, err := h.CumulatedCredit()
	if err != nil {
		return nil, fmt.Errorf("computing cumulated credit: %w", err)
	}
	states["cumulated_credit"] = available(fmt.Sprintf("%.2f", credit))

	winterStart, err := h.WinterStartDate()
	if err != nil {
		return nil, fmt.Errorf("computing winter start: %w", err)
	}
	states["winter_start"] = available(winterStart.Format(time.RFC3339))

	winterEnd, err := h.WinterEndDate()
	if err != nil {
		return nil, fmt.Errorf("computing winter end: %w", err)
	}
	states["winter_end"] = available(winterEnd.Format(time.RFC3339))

	todayCritical, err := dayIsCritical(h.TodayMorningPeak, h.TodayEveningPeak)
	if err != nil {
		return nil, fmt.Errorf("computing today peaks: %w", err)
	}
	states["today_critical_peak"] = onOff(todayCritical)

	tomorrowCritical, err := dayIsCritical(h.TomorrowMorningPeak, h.TomorrowEveningPeak)
	if err != nil {
		return nil, fmt.Errorf("computing tomorrow peaks: %w", err)
	}
	states["tomorrow_critical_peak"] = onOff(tomorrowCritical)

	return states, nil
}

// dayIsCritical reports whether either peak of a day was declared critical
func dayIsCritical(lookups ...func() (*wintercredit.Peak, error)) (bool, error) {
	for _, lookup := range lookups {
		peak, err := lookup()
		if err != nil {
			return false, err
		}
		if peak != nil && peak.IsCritical() {
			return true, nil
		}
	}
	return false, nil
}
