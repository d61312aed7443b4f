package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	peaksContract string
	peaksCritical bool
)

var peaksCmd = &cobra.Command{
	Use:   "peaks",
	Short: "List the winter credit peak calendar",
	Long: `Fetches the winter credit data for a contract and prints the full peak
calendar for the season: one morning and one evening window per day, with
the declared critical events and their credits.`,
	RunE: runPeaks,
}

func init() {
	peaksCmd.Flags().StringVar(&peaksContract, "contract", "", "Contract name (default: the only configured contract)")
	peaksCmd.Flags().BoolVar(&peaksCritical, "critical", false, "Only show declared critical peaks")
	rootCmd.AddCommand(peaksCmd)
}

func runPeaks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	contract, err := cfg.FindContract(peaksContract)
	if err != nil {
		return err
	}

	handler, client, err := newHandler(cfg, contract)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := handler.RefreshData(cmd.Context()); err != nil {
		return fmt.Errorf("refreshing winter credit data: %w", err)
	}

	peaks, err := handler.Peaks()
	if err != nil {
		return err
	}

	start, _ := handler.WinterStartDate()
	end, _ := handler.WinterEndDate()
	fmt.Printf("Season %s to %s (%d peaks)\n\n",
		start.Format("2006-01-02"), end.Format("2006-01-02"), len(peaks))

	for _, peak := range peaks {
		if peaksCritical && !peak.IsCritical() {
			continue
		}
		line := fmt.Sprintf("%s  %-7s  %s - %s",
			peak.Day().Format("2006-01-02"),
			peak.Kind(),
			peak.Start().Format("15:04"),
			peak.End().Format("15:04"),
		)
		if peak.IsCritical() {
			line += "  CRITICAL"
			if credit := peak.Credit(); credit != nil {
				line += fmt.Sprintf("  %.2f$", *credit)
			}
		}
		fmt.Println(line)
	}

	return nil
}
