package models

import (
	"fmt"
	"time"
)

// HydroTimestampFormat is the timestamp layout used by the Hydro-Québec API
// (ISO-8601 with microseconds and a numeric zone offset).
const HydroTimestampFormat = "2006-01-02T15:04:05.000000-07:00"

// RateOptionCPC is the rate option code for the winter credit program.
const RateOptionCPC = "CPC"

// WinterData is the raw winter credit payload returned by the Hydro-Québec API
type WinterData struct {
	RateOption      string         `json:"optionTarifActuel"`
	ProjectedCredit string         `json:"montantEffaceProjete"`
	WinterPeriods   []WinterPeriod `json:"periodesEffacementsHivers"`
}

// WinterPeriod is one winter season; the API returns the current season first
type WinterPeriod struct {
	StartDate     string         `json:"dateDebutPeriodeHiver"`
	EndDate       string         `json:"dateFinPeriodeHiver"`
	CriticalPeaks []CriticalPeak `json:"periodesEffacementHiver"`
}

// CriticalPeak is one declared curtailment event with its billed statistics
type CriticalPeak struct {
	Date            string   `json:"dateEffacement"`
	StartTime       string   `json:"heureDebut"`
	Credit          *float64 `json:"montantEffacee"`
	RefConsumption  *float64 `json:"consoReference"`
	ActualConsumption *float64 `json:"consoReelle"`
	SavedConsumption  *float64 `json:"consoEffacee"`
	ConsumptionCode *string  `json:"codeConso"`
	Billed          *bool    `json:"indFacture"`
}

// ParseDate returns the effacement date of the critical peak record
func (c *CriticalPeak) ParseDate() (time.Time, error) {
	t, err := time.Parse(HydroTimestampFormat, c.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing effacement date %q: %w", c.Date, err)
	}
	return t, nil
}
