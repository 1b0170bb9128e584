package hubtime_test

import (
	"testing"
	"time"

	"github.com/srg/blehub/internal/hubtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeArithmetic(t *testing.T) {
	start := hubtime.New(10 * time.Second)

	t.Run("add is total", func(t *testing.T) {
		later := start.Add(5 * time.Second)
		assert.Equal(t, 15*time.Second, later.SinceEpoch())
		assert.True(t, later.After(start))
		assert.True(t, start.Before(later))
	})

	t.Run("sub yields elapsed duration", func(t *testing.T) {
		later := start.Add(1500 * time.Millisecond)
		assert.Equal(t, 1500*time.Millisecond, later.Sub(start))
		assert.Equal(t, time.Duration(0), start.Sub(start))
	})

	t.Run("sub panics on negative duration", func(t *testing.T) {
		later := start.Add(time.Second)
		require.Panics(t, func() { _ = start.Sub(later) })
	})
}

func TestTimeConversions(t *testing.T) {
	wall := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := hubtime.FromTime(wall)

	assert.Equal(t, wall.Unix(), ts.Unix())
	assert.Equal(t, "2024-03-01T12:00:00Z", ts.String())
	assert.False(t, ts.IsZero())
	assert.True(t, hubtime.Time{}.IsZero())
}
