package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/peakwatch/peakwatch/internal/config"
	"github.com/peakwatch/peakwatch/internal/database"
	"github.com/peakwatch/peakwatch/internal/wintercredit"
	"github.com/peakwatch/peakwatch/pkg/models"
)

var fetchContract string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch winter credit data from Hydro-Québec",
	Long: `Logs into the Hydro-Québec customer portal, refreshes the winter credit
data for the configured contracts and stores the sync and any declared
critical peaks in the local SQLite database.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchContract, "contract", "", "Contract name to fetch (default: all contracts)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Fetch started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(cfg.Contracts) == 0 {
		return fmt.Errorf("no contracts configured. Add one to %s or set PW_CONTRACTS_0_* env vars", getConfigPath())
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	for i := range cfg.Contracts {
		contract := &cfg.Contracts[i]
		if fetchContract != "" && contract.Name != fetchContract {
			continue
		}
		if err := fetchOne(ctx, cfg, contract, db); err != nil {
			return fmt.Errorf("fetching contract %s: %w", contract.Name, err)
		}
	}

	fmt.Println("✓ Fetch complete")
	return nil
}

// fetchOne refreshes one contract and persists the results
func fetchOne(ctx context.Context, cfg *config.Config, contract *config.ContractConfig, db *database.DB) error {
	handler, client, err := newHandler(cfg, contract)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Printf("Fetching %s (contract %s)...\n", contract.Name, contract.Contract)
	if err := handler.RefreshData(ctx); err != nil {
		return err
	}

	if !handler.IsEnabled() {
		fmt.Printf("  contract %s is not on the winter credit rate option, skipping\n", contract.Contract)
		return nil
	}

	stored, err := storeSync(handler, db)
	if err != nil {
		return err
	}
	fmt.Printf("  stored sync with %d critical peaks\n", stored)
	return nil
}

// storeSync records the sync and upserts every declared critical peak,
// returning how many critical peaks the season carries
func storeSync(handler *wintercredit.Handler, db *database.DB) (int, error) {
	credit, err := handler.CumulatedCredit()
	if err != nil {
		return 0, err
	}
	state, err := handler.CurrentState()
	if err != nil {
		return 0, err
	}

	if err := db.InsertSync(&models.SyncRecord{
		ContractID:      handler.ContractID(),
		SyncedAt:        time.Now(),
		CumulatedCredit: credit,
		CurrentState:    string(state),
	}); err != nil {
		return 0, err
	}

	critical, err := handler.CriticalPeaks()
	if err != nil {
		return 0, err
	}
	for _, peak := range critical {
		if err := db.UpsertCriticalPeak(&models.CriticalPeakRecord{
			ContractID: handler.ContractID(),
			Kind:       string(peak.Kind()),
			StartTime:  peak.Start(),
			EndTime:    peak.End(),
			Credit:     peak.Credit(),
			Billed:     peak.IsBilled(),
		}); err != nil {
			return 0, err
		}
	}

	return len(critical), nil
}
