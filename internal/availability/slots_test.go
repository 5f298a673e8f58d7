package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tod(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// 2025-06-02 is a Monday.
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestGenerateSlotsTilesOpenInterval(t *testing.T) {
	open := &OpenInterval{Start: tod(9, 0), End: tod(17, 0)}
	slots := GenerateSlots(monday, 30, open, time.UTC)

	require.Len(t, slots, 16)
	require.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), slots[0].Start)
	require.Equal(t, time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC), slots[0].End)
	require.Equal(t, time.Date(2025, 6, 2, 16, 30, 0, 0, time.UTC), slots[15].Start)
	require.Equal(t, time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC), slots[15].End)

	for i, s := range slots {
		require.Equal(t, 30*time.Minute, s.End.Sub(s.Start))
		require.True(t, s.Available)
		if i > 0 {
			require.Equal(t, slots[i-1].End, s.Start, "slots must be back to back")
		}
	}
}

func TestGenerateSlotsCount(t *testing.T) {
	// floor(window minutes / duration) whole slots, never a clipped tail.
	tests := []struct {
		name     string
		open     OpenInterval
		duration int
		want     int
	}{
		{"exact fit", OpenInterval{tod(9, 0), tod(10, 0)}, 30, 2},
		{"trailing partial discarded", OpenInterval{tod(9, 0), tod(10, 45)}, 30, 3},
		{"duration equals window", OpenInterval{tod(9, 0), tod(10, 0)}, 60, 1},
		{"duration exceeds window", OpenInterval{tod(9, 0), tod(10, 0)}, 90, 0},
		{"odd duration", OpenInterval{tod(9, 0), tod(17, 0)}, 45, 10},
		{"full day hourly", OpenInterval{tod(0, 0), tod(23, 59)}, 60, 23},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := GenerateSlots(monday, tt.duration, &tt.open, time.UTC)
			require.Len(t, slots, tt.want)

			end := tt.open.End.On(monday, time.UTC)
			for _, s := range slots {
				require.False(t, s.End.After(end), "slot must stay within the interval")
			}
		})
	}
}

func TestGenerateSlotsClosedDay(t *testing.T) {
	require.Empty(t, GenerateSlots(monday, 30, nil, time.UTC))
}

func TestGenerateSlotsDefensiveInputs(t *testing.T) {
	open := &OpenInterval{Start: tod(9, 0), End: tod(17, 0)}
	require.Empty(t, GenerateSlots(monday, 0, open, time.UTC))
	require.Empty(t, GenerateSlots(monday, -15, open, time.UTC))

	inverted := &OpenInterval{Start: tod(17, 0), End: tod(9, 0)}
	require.Empty(t, GenerateSlots(monday, 30, inverted, time.UTC))

	empty := &OpenInterval{Start: tod(9, 0), End: tod(9, 0)}
	require.Empty(t, GenerateSlots(monday, 30, empty, time.UTC))
}

func TestGenerateSlotsAnchoredToLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	slots := GenerateSlots(monday, 60, &OpenInterval{Start: tod(9, 0), End: tod(12, 0)}, loc)
	require.Len(t, slots, 3)
	require.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, loc), slots[0].Start)
	// 09:00 Eastern in June is 13:00 UTC.
	require.Equal(t, time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC).Unix(), slots[0].Start.Unix())
}
