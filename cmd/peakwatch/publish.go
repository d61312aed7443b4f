package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/peakwatch/peakwatch/internal/publisher"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish winter credit states to Home Assistant",
	Long: `Fetches the winter credit data for every configured contract, registers
the Home Assistant MQTT discovery configs and publishes the current entity
states. For continuous publishing use the daemon command.`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(cfg.Contracts) == 0 {
		return fmt.Errorf("no contracts configured")
	}

	pub, err := publisher.New(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	ctx := cmd.Context()
	for i := range cfg.Contracts {
		contract := &cfg.Contracts[i]

		handler, client, err := newHandler(cfg, contract)
		if err != nil {
			return err
		}

		fmt.Printf("Publishing %s...\n", contract.Name)
		err = func() error {
			defer client.Close()
			if err := handler.RefreshData(ctx); err != nil {
				return fmt.Errorf("refreshing winter credit data: %w", err)
			}
			if err := pub.Register(contract.Name, contract.Contract, contract.Sensors); err != nil {
				return fmt.Errorf("registering entities: %w", err)
			}
			return pub.PublishStates(handler, contract.Name, contract.Sensors)
		}()
		if err != nil {
			return fmt.Errorf("publishing contract %s: %w", contract.Name, err)
		}
	}

	fmt.Println("✓ Publish complete")
	return nil
}
