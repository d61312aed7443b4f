package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/peakwatch/peakwatch/internal/config"
	"github.com/peakwatch/peakwatch/internal/database"
	"github.com/peakwatch/peakwatch/internal/hydro"
	"github.com/peakwatch/peakwatch/internal/publisher"
	"github.com/peakwatch/peakwatch/internal/wintercredit"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the fetch-and-publish loop",
	Long: `Fetches winter credit data and publishes Home Assistant states for every
configured contract, then repeats every sync_frequency seconds until stopped.
With unregister_on_stop set, the discovery configs are removed on shutdown.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

// daemonContract is one contract's long-lived handler and portal client
type daemonContract struct {
	cfg     *config.ContractConfig
	handler *wintercredit.Handler
	client  *hydro.Client
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(cfg.Contracts) == 0 {
		return fmt.Errorf("no contracts configured")
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	pub, err := publisher.New(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	var contracts []daemonContract
	for i := range cfg.Contracts {
		contract := &cfg.Contracts[i]
		handler, client, err := newHandler(cfg, contract)
		if err != nil {
			return err
		}
		defer client.Close()
		contracts = append(contracts, daemonContract{cfg: contract, handler: handler, client: client})

		if err := pub.Register(contract.Name, contract.Contract, contract.Sensors); err != nil {
			return fmt.Errorf("registering entities for %s: %w", contract.Name, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.GetSyncFrequency()) * time.Second
	logger.Info("daemon started", "contracts", len(contracts), "sync_frequency", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, dc := range contracts {
			if err := syncContract(ctx, dc, db, pub); err != nil {
				// A failed sync keeps the daemon alive; sensors go stale
				// until the next attempt
				logger.Error("sync failed", "contract", dc.cfg.Name, "error", err.Error())
			} else {
				logger.Info("sync complete", "contract", dc.cfg.Name)
			}
		}

		select {
		case <-ctx.Done():
			logger.Info("daemon stopping")
			if cfg.UnregisterOnStop {
				for _, dc := range contracts {
					if err := pub.Unregister(dc.cfg.Name, dc.cfg.Contract, dc.cfg.Sensors); err != nil {
						logger.Error("unregister failed", "contract", dc.cfg.Name, "error", err.Error())
					}
				}
			}
			return nil
		case <-ticker.C:
		}
	}
}

// syncContract refreshes one contract, stores the sync and publishes states
func syncContract(ctx context.Context, dc daemonContract, db *database.DB, pub *publisher.Publisher) error {
	if err := dc.handler.RefreshData(ctx); err != nil {
		return fmt.Errorf("refreshing data: %w", err)
	}
	if !dc.handler.IsEnabled() {
		return fmt.Errorf("contract is not on the winter credit rate option")
	}
	if _, err := storeSync(dc.handler, db); err != nil {
		return fmt.Errorf("storing sync: %w", err)
	}
	if err := pub.PublishStates(dc.handler, dc.cfg.Name, dc.cfg.Sensors); err != nil {
		return fmt.Errorf("publishing states: %w", err)
	}
	return nil
}
