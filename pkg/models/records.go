package models

import "time"

// SyncRecord is one stored daemon sync for a contract
type SyncRecord struct {
	ID              int
	ContractID      string
	SyncedAt        time.Time
	CumulatedCredit float64
	CurrentState    string
}

// CriticalPeakRecord is a declared critical peak persisted locally so the
// season history survives upstream pruning
type CriticalPeakRecord struct {
	ID         int
	ContractID string
	Kind       string
	StartTime  time.Time
	EndTime    time.Time
	Credit     *float64
	Billed     *bool
}
