package wintercredit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeRange(t *testing.T) {
	start := time.Date(2023, 12, 1, 6, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)

	t.Run("valid", func(t *testing.T) {
		r, err := NewTimeRange(start, end, true)
		require.NoError(t, err)
		assert.Equal(t, start, r.Start())
		assert.Equal(t, end, r.End())
		assert.True(t, r.IsCritical())
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := NewTimeRange(end, start, false)
		var rangeErr *InvalidRangeError
		require.ErrorAs(t, err, &rangeErr)
		assert.Equal(t, end, rangeErr.Start)
		assert.Equal(t, start, rangeErr.End)
	})

	t.Run("zero length", func(t *testing.T) {
		_, err := NewTimeRange(start, start, false)
		var rangeErr *InvalidRangeError
		assert.ErrorAs(t, err, &rangeErr)
	})
}

func TestTimeRangeContains(t *testing.T) {
	start := time.Date(2023, 12, 1, 6, 0, 0, 0, time.UTC)
	r, err := NewTimeRange(start, start.Add(3*time.Hour), false)
	require.NoError(t, err)

	// Both bounds are exclusive
	assert.False(t, r.Contains(start))
	assert.False(t, r.Contains(start.Add(3*time.Hour)))
	assert.True(t, r.Contains(start.Add(time.Second)))
	assert.True(t, r.Contains(start.Add(3*time.Hour-time.Second)))
	assert.False(t, r.Contains(start.Add(-time.Second)))
}
