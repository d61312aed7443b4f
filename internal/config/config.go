package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Contracts        []ContractConfig `yaml:"contracts"`
	MQTT             MQTTConfig       `yaml:"mqtt,omitempty"`
	WinterCredit     WinterConfig     `yaml:"winter_credit,omitempty"`
	SyncFrequency    int              `yaml:"sync_frequency,omitempty"`     // Seconds between daemon syncs (fallback: 300)
	UnregisterOnStop bool             `yaml:"unregister_on_stop,omitempty"` // Remove discovery configs on daemon shutdown
}

// ContractConfig identifies one Hydro-Québec contract and its credentials.
// Sensors limits which entities get published for the contract; empty means
// all of them.
type ContractConfig struct {
	Name     string   `yaml:"name"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	WebUser  string   `yaml:"webuser"`
	Customer string   `yaml:"customer"`
	Contract string   `yaml:"contract"`
	Sensors  []string `yaml:"sensors,omitempty"`
}

// MQTTConfig holds MQTT broker and topic configuration
type MQTTConfig struct {
	Broker             string `yaml:"broker"`
	Username           string `yaml:"username,omitempty"`
	Password           string `yaml:"password,omitempty"`
	DiscoveryRootTopic string `yaml:"discovery_root_topic,omitempty"` // default: homeassistant
	DataRootTopic      string `yaml:"data_root_topic,omitempty"`      // default: peakwatch
}

// WinterConfig overrides the winter credit program constants. Zero values
// keep the program defaults.
type WinterConfig struct {
	AnchorStartOffsetHours  float64 `yaml:"anchor_start_offset_hours,omitempty"`
	AnchorDurationHours     float64 `yaml:"anchor_duration_hours,omitempty"`
	PreHeatStartOffsetHours float64 `yaml:"preheat_start_offset_hours,omitempty"`
	PreHeatEndOffsetHours   float64 `yaml:"preheat_end_offset_hours,omitempty"`
}

// contractOverrideRegex matches env vars like PW_CONTRACTS_0_USERNAME that
// override contract settings without touching the config file
var contractOverrideRegex = regexp.MustCompile(`^PW_CONTRACTS_(\d+)_(NAME|USERNAME|PASSWORD|WEBUSER|CUSTOMER|CONTRACT|SENSORS)=(.*)$`)

// Load reads the config file and applies environment overrides
func Load(configPath string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Missing file is fine, env vars may carry everything
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides(os.Environ())
	return &cfg, nil
}

// applyEnvOverrides merges PW_CONTRACTS_<n>_<FIELD> environment variables
// into the contracts list, growing it as needed
func (c *Config) applyEnvOverrides(environ []string) {
	for _, env := range environ {
		match := contractOverrideRegex.FindStringSubmatch(env)
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		for len(c.Contracts) <= index {
			c.Contracts = append(c.Contracts, ContractConfig{})
		}
		contract := &c.Contracts[index]
		value := match[3]
		switch strings.ToUpper(match[2]) {
		case "NAME":
			contract.Name = value
		case "USERNAME":
			contract.Username = value
		case "PASSWORD":
			contract.Password = value
		case "WEBUSER":
			contract.WebUser = value
		case "CUSTOMER":
			contract.Customer = value
		case "CONTRACT":
			contract.Contract = value
		case "SENSORS":
			contract.Sensors = nil
			for _, key := range strings.Split(value, ",") {
				if key = strings.TrimSpace(key); key != "" {
					contract.Sensors = append(contract.Sensors, key)
				}
			}
		}
	}
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetSyncFrequency returns the seconds between daemon syncs with a default of 300
func (c *Config) GetSyncFrequency() int {
	if c.SyncFrequency <= 0 {
		return 300
	}
	return c.SyncFrequency
}

// GetDiscoveryRootTopic returns the Home Assistant discovery topic root
func (m *MQTTConfig) GetDiscoveryRootTopic() string {
	if m.DiscoveryRootTopic == "" {
		return "homeassistant"
	}
	return m.DiscoveryRootTopic
}

// GetDataRootTopic returns the root topic for state payloads
func (m *MQTTConfig) GetDataRootTopic() string {
	if m.DataRootTopic == "" {
		return "peakwatch"
	}
	return m.DataRootTopic
}

// FindContract returns the named contract, or the only one when name is empty
func (c *Config) FindContract(name string) (*ContractConfig, error) {
	if name == "" {
		if len(c.Contracts) == 1 {
			return &c.Contracts[0], nil
		}
		return nil, fmt.Errorf("config has %d contracts, specify one by name", len(c.Contracts))
	}
	for i := range c.Contracts {
		if c.Contracts[i].Name == name {
			return &c.Contracts[i], nil
		}
	}
	return nil, fmt.Errorf("no contract named %q in config", name)
}

// Validate checks that every contract carries the required identifiers
func (c *Config) Validate() error {
	for i, contract := range c.Contracts {
		if contract.Username == "" || contract.Password == "" {
			return fmt.Errorf("contract %d: username and password are required", i)
		}
		if contract.WebUser == "" || contract.Customer == "" || contract.Contract == "" {
			return fmt.Errorf("contract %d: webuser, customer and contract ids are required", i)
		}
	}
	return nil
}
