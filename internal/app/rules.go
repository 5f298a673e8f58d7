package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"slotwise/internal/availability"
)

// RuleStore persists recurring weekly availability rules.
type RuleStore struct {
	pool *pgxpool.Pool
}

func NewRuleStore(pool *pgxpool.Pool) *RuleStore {
	return &RuleStore{pool: pool}
}

// Replace swaps the user's entire rule set for the given one. Delete and
// insert run in one transaction so concurrent readers never observe a
// half-written week.
func (s *RuleStore) Replace(ctx context.Context, userID string, rules []AvailabilityRule) ([]AvailabilityRule, error) {
	for i := range rules {
		if err := validateRule(&rules[i]); err != nil {
			return nil, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin replace rules: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM availability_rules WHERE user_id=$1`, userID); err != nil {
		return nil, fmt.Errorf("delete rules: %w", err)
	}

	q := `INSERT INTO availability_rules (user_id, day_of_week, start_time, end_time, timezone)
	      VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`
	out := make([]AvailabilityRule, 0, len(rules))
	for _, r := range rules {
		r.UserID = userID
		if err := tx.QueryRow(ctx, q, userID, r.DayOfWeek, r.StartTime, r.EndTime, r.Timezone).
			Scan(&r.ID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert rule: %w", err)
		}
		out = append(out, r)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit replace rules: %w", err)
	}
	return out, nil
}

func (s *RuleStore) ListByUser(ctx context.Context, userID string) ([]AvailabilityRule, error) {
	q := `SELECT id, user_id, day_of_week, start_time, end_time, timezone, created_at
	      FROM availability_rules WHERE user_id=$1 ORDER BY day_of_week, start_time`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []AvailabilityRule
	for rows.Next() {
		var r AvailabilityRule
		if err := rows.Scan(&r.ID, &r.UserID, &r.DayOfWeek, &r.StartTime, &r.EndTime,
			&r.Timezone, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RuleForWeekday satisfies availability.RuleSource.
func (s *RuleStore) RuleForWeekday(ctx context.Context, userID string, weekday int) (*availability.Rule, error) {
	q := `SELECT day_of_week, start_time, end_time, timezone
	      FROM availability_rules WHERE user_id=$1 AND day_of_week=$2 LIMIT 1`
	var r AvailabilityRule
	err := s.pool.QueryRow(ctx, q, userID, weekday).
		Scan(&r.DayOfWeek, &r.StartTime, &r.EndTime, &r.Timezone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rule for weekday: %w", err)
	}

	start, err := availability.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return nil, fmt.Errorf("rule %d start time: %w", r.ID, err)
	}
	end, err := availability.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return nil, fmt.Errorf("rule %d end time: %w", r.ID, err)
	}
	return &availability.Rule{
		Weekday:  r.DayOfWeek,
		Start:    start,
		End:      end,
		Timezone: r.Timezone,
	}, nil
}

func validateRule(r *AvailabilityRule) error {
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		return invalidf("day_of_week", "must be 0 (Sunday) through 6 (Saturday)")
	}
	start, err := availability.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return invalidf("start_time", "must be HH:MM")
	}
	end, err := availability.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return invalidf("end_time", "must be HH:MM")
	}
	if !start.Before(end) {
		return invalidf("end_time", "must be after start_time")
	}
	if r.Timezone == "" {
		r.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return invalidf("timezone", "unknown IANA zone %q", r.Timezone)
	}
	return nil
}
