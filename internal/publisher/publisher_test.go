package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakwatch/peakwatch/internal/wintercredit"
	"github.com/peakwatch/peakwatch/pkg/models"
)

type staticFetcher struct {
	data *models.WinterData
}

func (s *staticFetcher) GetWinterCredit(ctx context.Context, webUserID, customerID, contractID string) (*models.WinterData, error) {
	return s.data, nil
}

func f64(v float64) *float64 { return &v }

func seasonData() *models.WinterData {
	return &models.WinterData{
		RateOption:      models.RateOptionCPC,
		ProjectedCredit: "3.25",
		WinterPeriods: []models.WinterPeriod{{
			StartDate: "2023-12-01T00:00:00.000000-05:00",
			EndDate:   "2023-12-03T00:00:00.000000-05:00",
			CriticalPeaks: []models.CriticalPeak{{
				Date:      "2023-12-01T00:00:00.000000-05:00",
				StartTime: "20:00:00",
				Credit:    f64(3.25),
			}},
		}},
	}
}

func frozenHandler(t *testing.T, now time.Time) *wintercredit.Handler {
	t.Helper()
	h := wintercredit.NewHandler("web", "cust", "contract1", &staticFetcher{data: seasonData()})
	h.SetClock(func() time.Time { return now })
	require.NoError(t, h.RefreshData(context.Background()))
	return h
}

func eastern(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, wintercredit.DefaultOptions().Location)
}

func testPublisher() *Publisher {
	return &Publisher{discoveryRoot: "homeassistant", dataRoot: "peakwatch"}
}

func findEntity(t *testing.T, key string) Entity {
	t.Helper()
	for _, e := range Entities {
		if e.Key == key {
			return e
		}
	}
	t.Fatalf("no entity with key %q", key)
	return Entity{}
}

func TestTopics(t *testing.T) {
	p := testPublisher()
	state := findEntity(t, "current_state")

	assert.Equal(t, "homeassistant/sensor/peakwatch_contract1/current_state/config",
		p.DiscoveryTopic("contract1", state))
	assert.Equal(t, "peakwatch/home/current_state/state", p.StateTopic("home", state))
	assert.Equal(t, "peakwatch/home/current_state/availability", p.AvailabilityTopic("home", state))

	preheat := findEntity(t, "preheat_in_progress")
	assert.Equal(t, "homeassistant/binary_sensor/peakwatch_contract1/preheat_in_progress/config",
		p.DiscoveryTopic("contract1", preheat))
}

func TestDiscoveryConfig(t *testing.T) {
	p := testPublisher()
	credit := findEntity(t, "cumulated_credit")

	data, err := p.DiscoveryConfig("home", "contract1", credit)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "Cumulated credit", payload["name"])
	assert.Equal(t, "contract1-cumulated_credit", payload["unique_id"])
	assert.Equal(t, "peakwatch_home_cumulated_credit", payload["object_id"])
	assert.Equal(t, "peakwatch/home/cumulated_credit/state", payload["state_topic"])
	assert.Equal(t, "monetary", payload["device_class"])
	assert.Equal(t, "CAD", payload["unit_of_measurement"])

	device := payload["device"].(map[string]interface{})
	assert.Equal(t, "peakwatch", device["manufacturer"])
	assert.Equal(t, []interface{}{"contract1"}, device["identifiers"])

	t.Run("omits empty device class", func(t *testing.T) {
		data, err := p.DiscoveryConfig("home", "contract1", findEntity(t, "current_state"))
		require.NoError(t, err)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		_, present := payload["device_class"]
		assert.False(t, present)
	})
}

func TestContractStatesDuringCriticalPeak(t *testing.T) {
	// 17:00 on Dec 1: inside the declared critical evening peak
	h := frozenHandler(t, eastern(2023, 12, 1, 17, 0))

	states, err := ContractStates(h)
	require.NoError(t, err)

	assert.Equal(t, "critical_peak", states["current_state"].Value)
	assert.Equal(t, "ON", states["critical_peak_in_progress"].Value)
	assert.Equal(t, "ON", states["upcoming_critical_peak"].Value)
	assert.Equal(t, "ON", states["today_critical_peak"].Value)
	assert.Equal(t, "OFF", states["tomorrow_critical_peak"].Value)
	assert.Equal(t, "OFF", states["preheat_in_progress"].Value)
	assert.Equal(t, "3.25", states["cumulated_credit"].Value)

	next := states["next_peak_start"]
	require.True(t, next.Available)
	assert.Equal(t, eastern(2023, 12, 1, 16, 0).Format(time.RFC3339), next.Value)
	assert.Equal(t, states["next_peak_start"].Value, states["next_critical_peak_start"].Value)
}

func TestContractStatesQuietDay(t *testing.T) {
	// 21:00 on Dec 1: the only critical peak has ended, Dec 2 still ahead
	h := frozenHandler(t, eastern(2023, 12, 1, 21, 0))

	states, err := ContractStates(h)
	require.NoError(t, err)

	assert.Equal(t, "normal", states["current_state"].Value)
	assert.Equal(t, "OFF", states["critical_peak_in_progress"].Value)
	assert.Equal(t, "OFF", states["upcoming_critical_peak"].Value)
	assert.False(t, states["next_critical_peak_start"].Available)

	next := states["next_peak_start"]
	require.True(t, next.Available)
	assert.Equal(t, eastern(2023, 12, 2, 6, 0).Format(time.RFC3339), next.Value)
}

func TestContractStatesAfterSeason(t *testing.T) {
	h := frozenHandler(t, eastern(2024, 4, 15, 12, 0))

	states, err := ContractStates(h)
	require.NoError(t, err)

	// Season elapsed: next-peak entities go unavailable instead of erroring
	assert.False(t, states["next_peak_start"].Available)
	assert.False(t, states["next_peak_end"].Available)
	assert.False(t, states["preheat_in_progress"].Available)
	assert.False(t, states["next_critical_peak_start"].Available)
	assert.Equal(t, "OFF", states["upcoming_critical_peak"].Value)
	assert.Equal(t, "normal", states["current_state"].Value)

	// Season facts remain published
	require.True(t, states["winter_start"].Available)
	assert.Equal(t, "3.25", states["cumulated_credit"].Value)
}

func TestContractStatesCoverEveryEntity(t *testing.T) {
	h := frozenHandler(t, eastern(2023, 12, 1, 12, 0))

	states, err := ContractStates(h)
	require.NoError(t, err)

	for _, e := range Entities {
		_, ok := states[e.Key]
		assert.True(t, ok, "no state computed for entity %s", e.Key)
	}
	assert.Len(t, states, len(Entities))
}

func TestSelectEntities(t *testing.T) {
	t.Run("empty selection returns all", func(t *testing.T) {
		entities, err := SelectEntities(nil)
		require.NoError(t, err)
		assert.Equal(t, Entities, entities)
	})

	t.Run("subset keeps order of selection", func(t *testing.T) {
		entities, err := SelectEntities([]string{"cumulated_credit", "current_state"})
		require.NoError(t, err)
		require.Len(t, entities, 2)
		assert.Equal(t, "cumulated_credit", entities[0].Key)
		assert.Equal(t, "current_state", entities[1].Key)
	})

	t.Run("unknown key errors", func(t *testing.T) {
		_, err := SelectEntities([]string{"current_state", "nope"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope")
	})
}
