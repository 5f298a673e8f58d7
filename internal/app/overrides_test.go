package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestValidateOverride(t *testing.T) {
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		override DateOverride
		wantErr  bool
	}{
		{
			name:     "blocked day",
			override: DateOverride{Date: date, IsAvailable: false},
		},
		{
			name: "custom hours",
			override: DateOverride{
				Date: date, IsAvailable: true,
				StartTime: strptr("10:00"), EndTime: strptr("14:00"),
			},
		},
		{
			name:     "available without custom hours",
			override: DateOverride{Date: date, IsAvailable: true},
		},
		{
			name:     "missing date",
			override: DateOverride{IsAvailable: false},
			wantErr:  true,
		},
		{
			name: "start without end",
			override: DateOverride{
				Date: date, IsAvailable: true, StartTime: strptr("10:00"),
			},
			wantErr: true,
		},
		{
			name: "custom hours on blocked day",
			override: DateOverride{
				Date: date, IsAvailable: false,
				StartTime: strptr("10:00"), EndTime: strptr("14:00"),
			},
			wantErr: true,
		},
		{
			name: "inverted hours",
			override: DateOverride{
				Date: date, IsAvailable: true,
				StartTime: strptr("14:00"), EndTime: strptr("10:00"),
			},
			wantErr: true,
		},
		{
			name: "malformed time",
			override: DateOverride{
				Date: date, IsAvailable: true,
				StartTime: strptr("25:99"), EndTime: strptr("14:00"),
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateOverride(&tc.override)
			if tc.wantErr {
				require.True(t, IsValidation(err), "got %v", err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDatesInRange(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
	}

	got := datesInRange(day(2), day(5))
	require.Equal(t, []time.Time{day(2), day(3), day(4), day(5)}, got)

	require.Equal(t, []time.Time{day(2)}, datesInRange(day(2), day(2)))

	require.Empty(t, datesInRange(day(5), day(2)))

	// Time-of-day is stripped before expanding.
	noon := time.Date(2025, 6, 2, 12, 30, 0, 0, time.UTC)
	require.Equal(t, []time.Time{day(2), day(3)}, datesInRange(noon, day(3)))
}

func TestTruncateToDate(t *testing.T) {
	in := time.Date(2025, 6, 2, 23, 59, 59, 0, time.UTC)
	require.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), truncateToDate(in))
}
