package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRule(t *testing.T) {
	cases := []struct {
		name    string
		rule    AvailabilityRule
		wantErr bool
	}{
		{
			name: "working hours",
			rule: AvailabilityRule{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", Timezone: "UTC"},
		},
		{
			name: "sunday",
			rule: AvailabilityRule{DayOfWeek: 0, StartTime: "10:00", EndTime: "12:00", Timezone: "America/New_York"},
		},
		{
			name:    "day out of range",
			rule:    AvailabilityRule{DayOfWeek: 7, StartTime: "09:00", EndTime: "17:00"},
			wantErr: true,
		},
		{
			name:    "negative day",
			rule:    AvailabilityRule{DayOfWeek: -1, StartTime: "09:00", EndTime: "17:00"},
			wantErr: true,
		},
		{
			name:    "malformed start",
			rule:    AvailabilityRule{DayOfWeek: 1, StartTime: "9am", EndTime: "17:00"},
			wantErr: true,
		},
		{
			name:    "end before start",
			rule:    AvailabilityRule{DayOfWeek: 1, StartTime: "17:00", EndTime: "09:00"},
			wantErr: true,
		},
		{
			name:    "zero-length window",
			rule:    AvailabilityRule{DayOfWeek: 1, StartTime: "09:00", EndTime: "09:00"},
			wantErr: true,
		},
		{
			name:    "unknown timezone",
			rule:    AvailabilityRule{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", Timezone: "Moon/Tycho"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateRule(&tc.rule)
			if tc.wantErr {
				require.True(t, IsValidation(err), "got %v", err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateRuleDefaultsTimezone(t *testing.T) {
	r := AvailabilityRule{DayOfWeek: 3, StartTime: "09:00", EndTime: "17:00"}
	require.NoError(t, validateRule(&r))
	require.Equal(t, "UTC", r.Timezone)
}
