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

// OverrideStore persists date-specific availability exceptions. The table
// carries a unique (user_id, date) constraint, so writes are upserts and two
// racing requests for the same date cannot leave duplicates behind.
type OverrideStore struct {
	pool *pgxpool.Pool
}

func NewOverrideStore(pool *pgxpool.Pool) *OverrideStore {
	return &OverrideStore{pool: pool}
}

// Upsert creates or replaces the override for (user, date).
func (s *OverrideStore) Upsert(ctx context.Context, o *DateOverride) error {
	if err := validateOverride(o); err != nil {
		return err
	}
	o.Date = truncateToDate(o.Date)

	q := `INSERT INTO date_overrides (id, user_id, date, is_available, start_time, end_time)
	      VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
	      ON CONFLICT (user_id, date)
	      DO UPDATE SET is_available=EXCLUDED.is_available,
	                    start_time=EXCLUDED.start_time,
	                    end_time=EXCLUDED.end_time
	      RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, q, o.UserID, o.Date, o.IsAvailable, o.StartTime, o.EndTime).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	return nil
}

// UpsertRange writes one override per calendar day in the inclusive
// [from, to] range, all inside one transaction. Returns the number of days
// written.
func (s *OverrideStore) UpsertRange(ctx context.Context, userID string, from, to time.Time, isAvailable bool) (int, error) {
	dates := datesInRange(from, to)
	if len(dates) == 0 {
		return 0, invalidf("end_date", "must not be before start_date")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin override range: %w", err)
	}
	defer tx.Rollback(ctx)

	q := `INSERT INTO date_overrides (id, user_id, date, is_available, start_time, end_time)
	      VALUES (gen_random_uuid(), $1, $2, $3, NULL, NULL)
	      ON CONFLICT (user_id, date)
	      DO UPDATE SET is_available=EXCLUDED.is_available, start_time=NULL, end_time=NULL`
	for _, d := range dates {
		if _, err := tx.Exec(ctx, q, userID, d, isAvailable); err != nil {
			return 0, fmt.Errorf("upsert override for %s: %w", d.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit override range: %w", err)
	}
	return len(dates), nil
}

// ListByUser returns overrides ordered by date, optionally windowed.
func (s *OverrideStore) ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]DateOverride, error) {
	q := `SELECT id, user_id, date, is_available, start_time, end_time, created_at
	      FROM date_overrides WHERE user_id=$1`
	args := []any{userID}
	if from != nil {
		args = append(args, truncateToDate(*from))
		q += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, truncateToDate(*to))
		q += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	q += " ORDER BY date"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var out []DateOverride
	for rows.Next() {
		var o DateOverride
		if err := rows.Scan(&o.ID, &o.UserID, &o.Date, &o.IsAvailable,
			&o.StartTime, &o.EndTime, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *OverrideStore) Delete(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM date_overrides WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("override %s: %w", id, ErrNotFound)
	}
	return nil
}

// OverrideForDate satisfies availability.OverrideSource.
func (s *OverrideStore) OverrideForDate(ctx context.Context, userID string, date time.Time) (*availability.Override, error) {
	q := `SELECT is_available, start_time, end_time
	      FROM date_overrides WHERE user_id=$1 AND date=$2`
	var o DateOverride
	err := s.pool.QueryRow(ctx, q, userID, truncateToDate(date)).
		Scan(&o.IsAvailable, &o.StartTime, &o.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("override for date: %w", err)
	}

	out := &availability.Override{Available: o.IsAvailable}
	if o.StartTime != nil && o.EndTime != nil {
		start, err := availability.ParseTimeOfDay(*o.StartTime)
		if err != nil {
			return nil, fmt.Errorf("override start time: %w", err)
		}
		end, err := availability.ParseTimeOfDay(*o.EndTime)
		if err != nil {
			return nil, fmt.Errorf("override end time: %w", err)
		}
		out.Start = &start
		out.End = &end
	}
	return out, nil
}

func validateOverride(o *DateOverride) error {
	if o.Date.IsZero() {
		return invalidf("date", "required (YYYY-MM-DD)")
	}
	if (o.StartTime == nil) != (o.EndTime == nil) {
		return invalidf("start_time", "custom hours need both start_time and end_time")
	}
	if o.StartTime != nil {
		if !o.IsAvailable {
			return invalidf("start_time", "custom hours only apply when is_available is true")
		}
		start, err := availability.ParseTimeOfDay(*o.StartTime)
		if err != nil {
			return invalidf("start_time", "must be HH:MM")
		}
		end, err := availability.ParseTimeOfDay(*o.EndTime)
		if err != nil {
			return invalidf("end_time", "must be HH:MM")
		}
		if !start.Before(end) {
			return invalidf("end_time", "must be after start_time")
		}
	}
	return nil
}

// datesInRange expands an inclusive date range to its individual days,
// time-of-day stripped. Empty when to precedes from.
func datesInRange(from, to time.Time) []time.Time {
	from = truncateToDate(from)
	to = truncateToDate(to)

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
