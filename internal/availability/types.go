package availability

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time within a day, parsed from "HH:MM".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "HH:MM" and longer database forms like "09:00:00".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) < 5 {
		return TimeOfDay{}, fmt.Errorf("invalid time string: %s", s)
	}
	s = s[:5]
	tt, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, err
	}
	return TimeOfDay{Hour: tt.Hour(), Minute: tt.Minute()}, nil
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.Minutes() < o.Minutes()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On anchors the wall-clock time to a calendar date in the given location.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	year, month, day := date.Date()
	return time.Date(year, month, day, t.Hour, t.Minute, 0, 0, loc)
}

// Interval is a half-open [Start, End) time range.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals overlap. Endpoints are
// exclusive: intervals that merely touch do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// Slot is a candidate booking window for one day, tagged with whether it is
// still free.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}
