package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/peakwatch/peakwatch/pkg/models"
	_ "modernc.org/sqlite"
)

const timeFormat = "2006-01-02 15:04:05"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contract_id TEXT NOT NULL,
		synced_at TEXT NOT NULL,
		cumulated_credit REAL NOT NULL,
		current_state TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sync_contract ON sync_history(contract_id);
	CREATE INDEX IF NOT EXISTS idx_sync_synced_at ON sync_history(synced_at);

	CREATE TABLE IF NOT EXISTS critical_peaks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contract_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		credit REAL,
		billed INTEGER,
		created_at TEXT NOT NULL,
		UNIQUE(contract_id, start_time)
	);
	CREATE INDEX IF NOT EXISTS idx_peaks_contract ON critical_peaks(contract_id);
	CREATE INDEX IF NOT EXISTS idx_peaks_start ON critical_peaks(start_time);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertSync records one sync run for a contract
func (db *DB) InsertSync(rec *models.SyncRecord) error {
	query := `
	INSERT INTO sync_history (contract_id, synced_at, cumulated_credit, current_state)
	VALUES (?, ?, ?, ?)
	`

	_, err := db.conn.Exec(query,
		rec.ContractID,
		rec.SyncedAt.UTC().Format(timeFormat),
		rec.CumulatedCredit,
		rec.CurrentState,
	)
	if err != nil {
		return fmt.Errorf("inserting sync record: %w", err)
	}

	return nil
}

// LatestSync returns the most recent sync for a contract, nil when none exists
func (db *DB) LatestSync(contractID string) (*models.SyncRecord, error) {
	query := `
	SELECT id, contract_id, synced_at, cumulated_credit, current_state
	FROM sync_history
	WHERE contract_id = ?
	ORDER BY synced_at DESC
	LIMIT 1
	`

	row := db.conn.QueryRow(query, contractID)

	var rec models.SyncRecord
	var syncedAtStr string
	err := row.Scan(&rec.ID, &rec.ContractID, &syncedAtStr, &rec.CumulatedCredit, &rec.CurrentState)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest sync: %w", err)
	}

	rec.SyncedAt, err = time.ParseInLocation(timeFormat, syncedAtStr, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parsing synced_at: %w", err)
	}

	return &rec, nil
}

// ListSyncs retrieves the sync history for a contract, newest first
func (db *DB) ListSyncs(contractID string) ([]models.SyncRecord, error) {
	query := `
	SELECT id, contract_id, synced_at, cumulated_credit, current_state
	FROM sync_history
	WHERE contract_id = ?
	ORDER BY synced_at DESC
	`

	rows, err := db.conn.Query(query, contractID)
	if err != nil {
		return nil, fmt.Errorf("querying sync history: %w", err)
	}
	defer rows.Close()

	var results []models.SyncRecord
	for rows.Next() {
		var rec models.SyncRecord
		var syncedAtStr string

		if err := rows.Scan(&rec.ID, &rec.ContractID, &syncedAtStr, &rec.CumulatedCredit, &rec.CurrentState); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		rec.SyncedAt, err = time.ParseInLocation(timeFormat, syncedAtStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parsing synced_at: %w", err)
		}

		results = append(results, rec)
	}

	return results, rows.Err()
}

// UpsertCriticalPeak stores a declared critical peak, replacing any previous
// record for the same contract and start time so late billing data wins
func (db *DB) UpsertCriticalPeak(rec *models.CriticalPeakRecord) error {
	query := `
	INSERT OR REPLACE INTO critical_peaks (contract_id, kind, start_time, end_time, credit, billed, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var credit sql.NullFloat64
	if rec.Credit != nil {
		credit = sql.NullFloat64{Float64: *rec.Credit, Valid: true}
	}
	var billed sql.NullBool
	if rec.Billed != nil {
		billed = sql.NullBool{Bool: *rec.Billed, Valid: true}
	}
	createdAt := time.Now().UTC().Format(timeFormat)

	_, err := db.conn.Exec(query,
		rec.ContractID,
		rec.Kind,
		rec.StartTime.UTC().Format(timeFormat),
		rec.EndTime.UTC().Format(timeFormat),
		credit,
		billed,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("upserting critical peak: %w", err)
	}

	return nil
}

// ListCriticalPeaks retrieves the stored critical peaks for a contract,
// ordered by start time
func (db *DB) ListCriticalPeaks(contractID string) ([]models.CriticalPeakRecord, error) {
	query := `
	SELECT id, contract_id, kind, start_time, end_time, credit, billed
	FROM critical_peaks
	WHERE contract_id = ?
	ORDER BY start_time ASC
	`

	rows, err := db.conn.Query(query, contractID)
	if err != nil {
		return nil, fmt.Errorf("querying critical peaks: %w", err)
	}
	defer rows.Close()

	var results []models.CriticalPeakRecord
	for rows.Next() {
		var rec models.CriticalPeakRecord
		var startStr, endStr string
		var credit sql.NullFloat64
		var billed sql.NullBool

		if err := rows.Scan(&rec.ID, &rec.ContractID, &rec.Kind, &startStr, &endStr, &credit, &billed); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		rec.StartTime, err = time.ParseInLocation(timeFormat, startStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parsing start_time: %w", err)
		}
		rec.EndTime, err = time.ParseInLocation(timeFormat, endStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parsing end_time: %w", err)
		}
		if credit.Valid {
			rec.Credit = &credit.Float64
		}
		if billed.Valid {
			rec.Billed = &billed.Bool
		}

		results = append(results, rec)
	}

	return results, rows.Err()
}
