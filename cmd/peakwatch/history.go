package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	historyContract string
	historySyncs    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored critical peaks and sync history",
	Long: `Displays the critical peaks recorded in the local database for a contract.
With --syncs the sync history is shown instead.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyContract, "contract", "", "Contract name (default: the only configured contract)")
	historyCmd.Flags().BoolVar(&historySyncs, "syncs", false, "Show the sync history instead of critical peaks")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	contract, err := cfg.FindContract(historyContract)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if historySyncs {
		syncs, err := db.ListSyncs(contract.Contract)
		if err != nil {
			return fmt.Errorf("listing syncs: %w", err)
		}
		if len(syncs) == 0 {
			fmt.Printf("No syncs recorded for %s\n", contract.Name)
			return nil
		}

		fmt.Printf("\nSync history for %s:\n", contract.Name)
		fmt.Println("------------------------------------------------------------")
		fmt.Printf("%-20s  %-15s  %10s\n", "Synced", "State", "Credit")
		fmt.Println("------------------------------------------------------------")
		for _, rec := range syncs {
			fmt.Printf("%-20s  %-15s  %9.2f$\n",
				humanize.Time(rec.SyncedAt), rec.CurrentState, rec.CumulatedCredit)
		}
		return nil
	}

	peaks, err := db.ListCriticalPeaks(contract.Contract)
	if err != nil {
		return fmt.Errorf("listing critical peaks: %w", err)
	}
	if len(peaks) == 0 {
		fmt.Printf("No critical peaks recorded for %s\n", contract.Name)
		return nil
	}

	fmt.Printf("\nCritical peaks for %s:\n", contract.Name)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("%-12s  %-7s  %-13s  %8s  %s\n", "Date", "Kind", "Window", "Credit", "Billed")
	fmt.Println("------------------------------------------------------------")

	var total float64
	for _, rec := range peaks {
		credit := "-"
		if rec.Credit != nil {
			credit = fmt.Sprintf("%.2f$", *rec.Credit)
			total += *rec.Credit
		}
		billed := "-"
		if rec.Billed != nil {
			billed = fmt.Sprintf("%t", *rec.Billed)
		}
		fmt.Printf("%-12s  %-7s  %s - %s  %8s  %s\n",
			rec.StartTime.Local().Format("2006-01-02"),
			rec.Kind,
			rec.StartTime.Local().Format("15:04"),
			rec.EndTime.Local().Format("15:04"),
			credit, billed)
	}

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Total: %.2f$ (%d critical peaks)\n", total, len(peaks))
	return nil
}
