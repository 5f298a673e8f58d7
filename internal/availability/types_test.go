package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func interval(startHour, startMin, endHour, endMin int) Interval {
	return Interval{
		Start: time.Date(2025, 6, 2, startHour, startMin, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 2, endHour, endMin, 0, 0, time.UTC),
	}
}

func TestOverlapsIsExclusiveAtEndpoints(t *testing.T) {
	busy := interval(10, 0, 10, 30)

	require.True(t, Overlaps(interval(10, 0, 10, 30), busy), "identical intervals overlap")
	require.True(t, Overlaps(interval(9, 45, 10, 15), busy), "straddles the start")
	require.True(t, Overlaps(interval(10, 15, 10, 45), busy), "straddles the end")
	require.True(t, Overlaps(interval(9, 0, 11, 0), busy), "contains")
	require.True(t, Overlaps(interval(10, 10, 10, 20), busy), "contained")

	// Touching boundaries do not count as overlap.
	require.False(t, Overlaps(interval(9, 30, 10, 0), busy))
	require.False(t, Overlaps(interval(10, 30, 11, 0), busy))
	require.False(t, Overlaps(interval(8, 0, 9, 0), busy))
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	require.Equal(t, TimeOfDay{Hour: 9, Minute: 30}, got)

	// Database time columns come back with seconds attached.
	got, err = ParseTimeOfDay("17:00:00")
	require.NoError(t, err)
	require.Equal(t, TimeOfDay{Hour: 17, Minute: 0}, got)

	_, err = ParseTimeOfDay("9:3")
	require.Error(t, err)
	_, err = ParseTimeOfDay("25:00")
	require.Error(t, err)
	_, err = ParseTimeOfDay("")
	require.Error(t, err)
}

func TestTimeOfDayOrdering(t *testing.T) {
	require.True(t, TimeOfDay{9, 0}.Before(TimeOfDay{17, 0}))
	require.True(t, TimeOfDay{9, 0}.Before(TimeOfDay{9, 1}))
	require.False(t, TimeOfDay{9, 0}.Before(TimeOfDay{9, 0}))
	require.Equal(t, "09:05", TimeOfDay{9, 5}.String())
}
