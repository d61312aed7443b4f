package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/peakwatch/peakwatch/internal/config"
	"github.com/peakwatch/peakwatch/internal/database"
	"github.com/peakwatch/peakwatch/internal/hydro"
	"github.com/peakwatch/peakwatch/internal/wintercredit"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "peakwatch",
	Short: "Track Hydro-Québec winter credit peak events",
	Long: `Peakwatch follows the winter credit (demand-response) calendar of a
Hydro-Québec contract: peak windows, declared critical events, anchor and
pre-heat periods. It fetches the seasonal data from the customer portal,
stores the history in a local SQLite database and publishes the current
state to Home Assistant over MQTT.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./data.db)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "data.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// winterOptions maps the config overrides onto the program defaults
func winterOptions(cfg *config.Config) wintercredit.Options {
	opts := wintercredit.DefaultOptions()
	wc := cfg.WinterCredit
	if wc.AnchorStartOffsetHours > 0 {
		opts.AnchorStartOffset = time.Duration(wc.AnchorStartOffsetHours * float64(time.Hour))
	}
	if wc.AnchorDurationHours > 0 {
		opts.AnchorDuration = time.Duration(wc.AnchorDurationHours * float64(time.Hour))
	}
	if wc.PreHeatStartOffsetHours > 0 {
		opts.PreHeatStartOffset = time.Duration(wc.PreHeatStartOffsetHours * float64(time.Hour))
	}
	if wc.PreHeatEndOffsetHours > 0 {
		opts.PreHeatEndOffset = time.Duration(wc.PreHeatEndOffsetHours * float64(time.Hour))
	}
	return opts
}

// newHandler builds a portal client and winter credit handler for a contract
func newHandler(cfg *config.Config, contract *config.ContractConfig) (*wintercredit.Handler, *hydro.Client, error) {
	client, err := hydro.NewClient(contract.Username, contract.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("creating portal client: %w", err)
	}
	handler := wintercredit.NewHandlerWithOptions(
		contract.WebUser, contract.Customer, contract.Contract,
		client, winterOptions(cfg),
	)
	return handler, client, nil
}
