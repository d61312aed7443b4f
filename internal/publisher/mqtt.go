package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/peakwatch/peakwatch/internal/config"
	"github.com/peakwatch/peakwatch/internal/wintercredit"
)

const publishTimeout = 10 * time.Second

// Publisher pushes contract entities to Home Assistant over MQTT using the
// MQTT discovery protocol
type Publisher struct {
	client        mqtt.Client
	discoveryRoot string
	dataRoot      string
}

// New connects to the MQTT broker and returns a publisher
func New(cfg config.MQTTConfig) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required")
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID("peakwatch-" + uuid.NewString()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:        client,
		discoveryRoot: cfg.GetDiscoveryRootTopic(),
		dataRoot:      cfg.GetDataRootTopic(),
	}, nil
}

// deviceInfo is the HA discovery device block shared by a contract's entities
type deviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// discoveryPayload is one entity's HA discovery config
type discoveryPayload struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	ObjectID          string     `json:"object_id"`
	StateTopic        string     `json:"state_topic"`
	AvailabilityTopic string     `json:"availability_topic"`
	DeviceClass       string     `json:"device_class,omitempty"`
	UnitOfMeasurement string     `json:"unit_of_measurement,omitempty"`
	Device            deviceInfo `json:"device"`
}

// DiscoveryTopic returns the retained config topic for one entity
func (p *Publisher) DiscoveryTopic(contractID string, e Entity) string {
	return fmt.Sprintf("%s/%s/peakwatch_%s/%s/config", p.discoveryRoot, e.Component, contractID, e.Key)
}

// StateTopic returns the data topic for one entity
func (p *Publisher) StateTopic(contract string, e Entity) string {
	return fmt.Sprintf("%s/%s/%s/state", p.dataRoot, contract, e.Key)
}

// AvailabilityTopic returns the availability topic for one entity
func (p *Publisher) AvailabilityTopic(contract string, e Entity) string {
	return fmt.Sprintf("%s/%s/%s/availability", p.dataRoot, contract, e.Key)
}

// DiscoveryConfig builds the retained discovery payload for one entity
func (p *Publisher) DiscoveryConfig(contract, contractID string, e Entity) ([]byte, error) {
	payload := discoveryPayload{
		Name:              e.Name,
		UniqueID:          fmt.Sprintf("%s-%s", contractID, e.Key),
		ObjectID:          fmt.Sprintf("peakwatch_%s_%s", contract, e.Key),
		StateTopic:        p.StateTopic(contract, e),
		AvailabilityTopic: p.AvailabilityTopic(contract, e),
		DeviceClass:       e.DeviceClass,
		UnitOfMeasurement: e.Unit,
		Device: deviceInfo{
			Identifiers:  []string{contractID},
			Name:         fmt.Sprintf("peakwatch_%s", contract),
			Manufacturer: "peakwatch",
			Model:        "winter credit contract",
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding discovery config: %w", err)
	}
	return data, nil
}

// Register publishes the retained discovery configs for the contract's
// entities so Home Assistant creates them
func (p *Publisher) Register(contract, contractID string, sensors []string) error {
	entities, err := SelectEntities(sensors)
	if err != nil {
		return err
	}
	for _, e := range entities {
		data, err := p.DiscoveryConfig(contract, contractID, e)
		if err != nil {
			return err
		}
		if err := p.publish(p.DiscoveryTopic(contractID, e), data, true); err != nil {
			return fmt.Errorf("registering %s: %w", e.Key, err)
		}
	}
	return nil
}

// Unregister publishes empty retained payloads, removing the contract's
// entities from Home Assistant
func (p *Publisher) Unregister(contract, contractID string, sensors []string) error {
	entities, err := SelectEntities(sensors)
	if err != nil {
		return err
	}
	for _, e := range entities {
		if err := p.publish(p.DiscoveryTopic(contractID, e), []byte{}, true); err != nil {
			return fmt.Errorf("unregistering %s: %w", e.Key, err)
		}
	}
	return nil
}

// PublishStates derives the contract's entity values from the handler and
// publishes states and availability
func (p *Publisher) PublishStates(h *wintercredit.Handler, contract string, sensors []string) error {
	entities, err := SelectEntities(sensors)
	if err != nil {
		return err
	}
	states, err := ContractStates(h)
	if err != nil {
		return err
	}

	for _, e := range entities {
		state, ok := states[e.Key]
		if !ok || !state.Available {
			if err := p.publish(p.AvailabilityTopic(contract, e), []byte("offline"), false); err != nil {
				return fmt.Errorf("publishing %s availability: %w", e.Key, err)
			}
			continue
		}
		if err := p.publish(p.StateTopic(contract, e), []byte(state.Value), false); err != nil {
			return fmt.Errorf("publishing %s: %w", e.Key, err)
		}
		if err := p.publish(p.AvailabilityTopic(contract, e), []byte("online"), false); err != nil {
			return fmt.Errorf("publishing %s availability: %w", e.Key, err)
		}
	}
	return nil
}

// publish sends one payload and waits for the broker to take it
func (p *Publisher) publish(topic string, payload []byte, retained bool) error {
	token := p.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	return token.Error()
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
