package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/peakwatch/peakwatch/internal/wintercredit"
)

var statusContract string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current winter credit state",
	Long: `Fetches the winter credit data for a contract and prints the current
state, the next peak and critical peak, and the season totals.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusContract, "contract", "", "Contract name (default: the only configured contract)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	contract, err := cfg.FindContract(statusContract)
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

	if !handler.IsEnabled() {
		fmt.Printf("Contract %s is not on the winter credit rate option\n", contract.Contract)
		return nil
	}

	state, err := handler.CurrentState()
	if err != nil {
		return err
	}
	fmt.Printf("Current state: %s\n", state)

	next, err := handler.NextPeak()
	switch {
	case errors.Is(err, wintercredit.ErrNoUpcomingPeak):
		fmt.Println("Next peak:     none, season over")
	case err != nil:
		return err
	default:
		fmt.Printf("Next peak:     %s %s (%s - %s, %s)\n",
			next.Day().Format("2006-01-02"), next.Kind(),
			next.Start().Format("15:04"), next.End().Format("15:04"),
			humanize.Time(next.Start()))

		preheat, err := handler.PreheatInProgress()
		if err != nil {
			return err
		}
		if preheat {
			fmt.Println("Pre-heat:      in progress")
		}
	}

	critical, err := handler.NextCriticalPeak()
	if err != nil {
		return err
	}
	if critical != nil {
		fmt.Printf("Next critical: %s %s (%s)\n",
			critical.Day().Format("2006-01-02"), critical.Kind(),
			humanize.Time(critical.Start()))
	} else {
		fmt.Println("Next critical: none declared")
	}

	credit, err := handler.CumulatedCredit()
	if err != nil {
		return err
	}
	fmt.Printf("Season credit: %.2f$\n", credit)

	return nil
}
