package availability

import "time"

// OpenInterval is the bookable window of a single day, expressed as local
// times of day. Start must precede End.
type OpenInterval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// GenerateSlots tiles the open interval with back-to-back slots of exactly
// durationMinutes, starting at the interval start. A trailing slot that would
// run past the interval end is dropped rather than clipped. A nil interval
// means the day is closed and yields no slots, as do a non-positive duration
// and an inverted interval.
//
// Only the calendar date of `date` is used; slot instants are built in loc.
func GenerateSlots(date time.Time, durationMinutes int, open *OpenInterval, loc *time.Location) []Slot {
	if open == nil || durationMinutes <= 0 {
		return nil
	}
	if !open.Start.Before(open.End) {
		return nil
	}

	start := open.Start.On(date, loc)
	end := open.End.On(date, loc)
	slotLen := time.Duration(durationMinutes) * time.Minute

	var slots []Slot
	for s := start; !s.Add(slotLen).After(end); s = s.Add(slotLen) {
		slots = append(slots, Slot{
			Start:     s,
			End:       s.Add(slotLen),
			Available: true,
		})
	}
	return slots
}
