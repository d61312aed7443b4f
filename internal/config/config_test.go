package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{
		Contracts: []ContractConfig{{
			Name:     "home",
			Username: "user@example.com",
			Password: "hunter2",
			WebUser:  "web1",
			Customer: "cust1",
			Contract: "contract1",
		}},
		MQTT: MQTTConfig{
			Broker: "localhost:1883",
		},
		SyncFrequency: 600,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Contracts, 1)
	assert.Equal(t, "home", loaded.Contracts[0].Name)
	assert.Equal(t, "contract1", loaded.Contracts[0].Contract)
	assert.Equal(t, "localhost:1883", loaded.MQTT.Broker)
	assert.Equal(t, 600, loaded.GetSyncFrequency())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Contracts)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("fills an existing contract", func(t *testing.T) {
		cfg := &Config{Contracts: []ContractConfig{{Name: "home", Username: "old"}}}
		cfg.applyEnvOverrides([]string{
			"PW_CONTRACTS_0_USERNAME=new@example.com",
			"PW_CONTRACTS_0_PASSWORD=secret",
			"UNRELATED=1",
		})
		assert.Equal(t, "new@example.com", cfg.Contracts[0].Username)
		assert.Equal(t, "secret", cfg.Contracts[0].Password)
		assert.Equal(t, "home", cfg.Contracts[0].Name)
	})

	t.Run("grows the contract list", func(t *testing.T) {
		cfg := &Config{}
		cfg.applyEnvOverrides([]string{
			"PW_CONTRACTS_1_NAME=cottage",
			"PW_CONTRACTS_1_CONTRACT=c2",
			"PW_CONTRACTS_0_NAME=home",
		})
		require.Len(t, cfg.Contracts, 2)
		assert.Equal(t, "home", cfg.Contracts[0].Name)
		assert.Equal(t, "cottage", cfg.Contracts[1].Name)
		assert.Equal(t, "c2", cfg.Contracts[1].Contract)
	})

	t.Run("splits the sensor selection", func(t *testing.T) {
		cfg := &Config{Contracts: []ContractConfig{{Name: "home"}}}
		cfg.applyEnvOverrides([]string{
			"PW_CONTRACTS_0_SENSORS=current_state, cumulated_credit",
		})
		assert.Equal(t, []string{"current_state", "cumulated_credit"}, cfg.Contracts[0].Sensors)
	})
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 300, cfg.GetSyncFrequency())
	assert.Equal(t, "homeassistant", cfg.MQTT.GetDiscoveryRootTopic())
	assert.Equal(t, "peakwatch", cfg.MQTT.GetDataRootTopic())
}

func TestFindContract(t *testing.T) {
	cfg := &Config{Contracts: []ContractConfig{
		{Name: "home"},
		{Name: "cottage"},
	}}

	found, err := cfg.FindContract("cottage")
	require.NoError(t, err)
	assert.Equal(t, "cottage", found.Name)

	_, err = cfg.FindContract("")
	assert.Error(t, err, "empty name is ambiguous with two contracts")

	_, err = cfg.FindContract("garage")
	assert.Error(t, err)

	single := &Config{Contracts: []ContractConfig{{Name: "home"}}}
	found, err = single.FindContract("")
	require.NoError(t, err)
	assert.Equal(t, "home", found.Name)
}

func TestValidate(t *testing.T) {
	valid := &Config{Contracts: []ContractConfig{{
		Username: "u", Password: "p", WebUser: "w", Customer: "c", Contract: "k",
	}}}
	assert.NoError(t, valid.Validate())

	missing := &Config{Contracts: []ContractConfig{{Username: "u", Password: "p"}}}
	assert.Error(t, missing.Validate())
}
