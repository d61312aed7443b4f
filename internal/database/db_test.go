package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakwatch/peakwatch/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSyncHistory(t *testing.T) {
	db := newTestDB(t)

	latest, err := db.LatestSync("contract1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := time.Date(2023, 12, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.InsertSync(&models.SyncRecord{
		ContractID:      "contract1",
		SyncedAt:        first,
		CumulatedCredit: 3.25,
		CurrentState:    "normal",
	}))
	require.NoError(t, db.InsertSync(&models.SyncRecord{
		ContractID:      "contract1",
		SyncedAt:        first.Add(5 * time.Minute),
		CumulatedCredit: 6.50,
		CurrentState:    "critical_peak",
	}))
	require.NoError(t, db.InsertSync(&models.SyncRecord{
		ContractID:      "other",
		SyncedAt:        first,
		CumulatedCredit: 1.0,
		CurrentState:    "normal",
	}))

	latest, err = db.LatestSync("contract1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 6.50, latest.CumulatedCredit)
	assert.Equal(t, "critical_peak", latest.CurrentState)
	assert.True(t, latest.SyncedAt.Equal(first.Add(5*time.Minute)))

	syncs, err := db.ListSyncs("contract1")
	require.NoError(t, err)
	require.Len(t, syncs, 2)
	assert.True(t, syncs[0].SyncedAt.After(syncs[1].SyncedAt), "newest first")
}

func TestCriticalPeaks(t *testing.T) {
	db := newTestDB(t)

	start := time.Date(2023, 12, 1, 21, 0, 0, 0, time.UTC) // 16:00 EST
	credit := 3.25
	require.NoError(t, db.UpsertCriticalPeak(&models.CriticalPeakRecord{
		ContractID: "contract1",
		Kind:       "evening",
		StartTime:  start,
		EndTime:    start.Add(4 * time.Hour),
		Credit:     &credit,
	}))

	peaks, err := db.ListCriticalPeaks("contract1")
	require.NoError(t, err)
	require.Len(t, peaks, 1)
	assert.Equal(t, "evening", peaks[0].Kind)
	require.NotNil(t, peaks[0].Credit)
	assert.Equal(t, 3.25, *peaks[0].Credit)
	assert.Nil(t, peaks[0].Billed, "billing flag unknown until upstream sets it")

	t.Run("replaces on same start time", func(t *testing.T) {
		billed := true
		updated := 4.00
		require.NoError(t, db.UpsertCriticalPeak(&models.CriticalPeakRecord{
			ContractID: "contract1",
			Kind:       "evening",
			StartTime:  start,
			EndTime:    start.Add(4 * time.Hour),
			Credit:     &updated,
			Billed:     &billed,
		}))

		peaks, err := db.ListCriticalPeaks("contract1")
		require.NoError(t, err)
		require.Len(t, peaks, 1, "same start time must not duplicate")
		assert.Equal(t, 4.00, *peaks[0].Credit)
		require.NotNil(t, peaks[0].Billed)
		assert.True(t, *peaks[0].Billed)
	})

	t.Run("sorted by start time", func(t *testing.T) {
		earlier := start.Add(-10 * time.Hour)
		require.NoError(t, db.UpsertCriticalPeak(&models.CriticalPeakRecord{
			ContractID: "contract1",
			Kind:       "morning",
			StartTime:  earlier,
			EndTime:    earlier.Add(3 * time.Hour),
		}))

		peaks, err := db.ListCriticalPeaks("contract1")
		require.NoError(t, err)
		require.Len(t, peaks, 2)
		assert.Equal(t, "morning", peaks[0].Kind)
		assert.Equal(t, "evening", peaks[1].Kind)
	})
}
