package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrEventTypeNotFound is returned when the requested event type does not
// exist or is not active.
var ErrEventTypeNotFound = errors.New("event type not found or inactive")

// Rule is one weekday's recurring open window. Times are wall clock in the
// rule's own timezone; a weekday without a rule is closed.
type Rule struct {
	Weekday  int // 0 = Sunday .. 6 = Saturday
	Start    TimeOfDay
	End      TimeOfDay
	Timezone string
}

// Override is a date-specific exception. Available=false blocks the whole
// date; Available=true with Start/End substitutes custom hours for it.
type Override struct {
	Available bool
	Start     *TimeOfDay
	End       *TimeOfDay
}

// EventType carries the pieces of a bookable meeting template the resolver
// needs.
type EventType struct {
	ID              string
	UserID          string
	DurationMinutes int
	Active          bool
}

// RuleSource returns the recurring rule for a host and weekday, or nil when
// that weekday has none.
type RuleSource interface {
	RuleForWeekday(ctx context.Context, userID string, weekday int) (*Rule, error)
}

// OverrideSource returns the date override for a host and calendar date, or
// nil when the date has none. Only the date components of `date` matter.
type OverrideSource interface {
	OverrideForDate(ctx context.Context, userID string, date time.Time) (*Override, error)
}

// EventTypeSource returns an event type by id, or nil when it does not exist.
type EventTypeSource interface {
	EventTypeByID(ctx context.Context, id string) (*EventType, error)
}

// Resolver computes the bookable slot list for one event type and calendar
// day. The current time is injected so callers and tests control "now".
type Resolver struct {
	eventTypes EventTypeSource
	rules      RuleSource
	overrides  OverrideSource
	busy       *BusyAggregator
	now        func() time.Time
	logger     *zap.Logger
}

func NewResolver(
	eventTypes EventTypeSource,
	rules RuleSource,
	overrides OverrideSource,
	busy *BusyAggregator,
	now func() time.Time,
	logger *zap.Logger,
) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		eventTypes: eventTypes,
		rules:      rules,
		overrides:  overrides,
		busy:       busy,
		now:        now,
		logger:     logger,
	}
}

// Resolve returns the day's candidate slots in chronological order, each
// marked available unless it overlaps a busy interval. Slots starting at or
// before "now" are dropped entirely. Business hours are evaluated in the
// rule's declared timezone, not the viewer's; converting the requested date
// boundary is the caller's job.
func (r *Resolver) Resolve(ctx context.Context, eventTypeID string, date time.Time) ([]Slot, error) {
	et, err := r.eventTypes.EventTypeByID(ctx, eventTypeID)
	if err != nil {
		return nil, fmt.Errorf("load event type: %w", err)
	}
	if et == nil || !et.Active {
		return nil, ErrEventTypeNotFound
	}

	override, err := r.overrides.OverrideForDate(ctx, et.UserID, date)
	if err != nil {
		return nil, fmt.Errorf("load date override: %w", err)
	}
	if override != nil && !override.Available {
		return []Slot{}, nil
	}

	rule, err := r.rules.RuleForWeekday(ctx, et.UserID, int(date.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("load availability rule: %w", err)
	}

	open, loc, err := r.openInterval(rule, override)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return []Slot{}, nil
	}

	slots := GenerateSlots(date, et.DurationMinutes, open, loc)
	if len(slots) == 0 {
		return []Slot{}, nil
	}

	// AddDate lands on the next local midnight even when a DST transition
	// makes the day 23 or 25 hours long.
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	busy, err := r.busy.CollectBusy(ctx, et.UserID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("collect busy intervals: %w", err)
	}

	now := r.now()
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if !s.Start.After(now) {
			continue
		}
		s.Available = !overlapsAny(Interval{Start: s.Start, End: s.End}, busy)
		out = append(out, s)
	}
	return out, nil
}

// openInterval picks the day's window: override custom hours win over the
// weekday rule, and the rule's timezone anchors both. A custom-hours override
// on a weekday with no rule falls back to UTC.
func (r *Resolver) openInterval(rule *Rule, override *Override) (*OpenInterval, *time.Location, error) {
	loc := time.UTC
	if rule != nil {
		var err error
		loc, err = time.LoadLocation(rule.Timezone)
		if err != nil {
			return nil, nil, fmt.Errorf("load rule timezone %q: %w", rule.Timezone, err)
		}
	}

	if override != nil && override.Start != nil && override.End != nil {
		return &OpenInterval{Start: *override.Start, End: *override.End}, loc, nil
	}
	if rule == nil {
		return nil, loc, nil
	}
	return &OpenInterval{Start: rule.Start, End: rule.End}, loc, nil
}

func overlapsAny(slot Interval, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(slot, b) {
			return true
		}
	}
	return false
}
