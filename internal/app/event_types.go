package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"slotwise/internal/availability"
)

// EventTypeStore persists bookable meeting templates. Slug is unique per
// owner; only active event types are offered for booking.
type EventTypeStore struct {
	pool *pgxpool.Pool
}

func NewEventTypeStore(pool *pgxpool.Pool) *EventTypeStore {
	return &EventTypeStore{pool: pool}
}

func (s *EventTypeStore) Create(ctx context.Context, et *EventType) error {
	if err := validateEventType(et); err != nil {
		return err
	}
	et.ID = uuid.NewString()

	q := `INSERT INTO event_types (id, user_id, name, slug, description, duration, color, location, meeting_link, is_active)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	      RETURNING created_at, updated_at`
	err := s.pool.QueryRow(ctx, q, et.ID, et.UserID, et.Name, et.Slug, et.Description,
		et.Duration, et.Color, et.Location, et.MeetingLink, et.IsActive).
		Scan(&et.CreatedAt, &et.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("slug %q already in use: %w", et.Slug, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create event type: %w", err)
	}
	return nil
}

// GetByID returns nil when the event type does not exist.
func (s *EventTypeStore) GetByID(ctx context.Context, id string) (*EventType, error) {
	q := eventTypeColumns + ` WHERE id=$1`
	et, err := s.scanOne(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("get event type: %w", err)
	}
	return et, nil
}

// GetBySlug resolves the public booking-page identity (owner, slug).
func (s *EventTypeStore) GetBySlug(ctx context.Context, userID, slug string) (*EventType, error) {
	q := eventTypeColumns + ` WHERE user_id=$1 AND slug=$2`
	et, err := s.scanOne(s.pool.QueryRow(ctx, q, userID, slug))
	if err != nil {
		return nil, fmt.Errorf("get event type by slug: %w", err)
	}
	return et, nil
}

func (s *EventTypeStore) ListByUser(ctx context.Context, userID string) ([]EventType, error) {
	q := eventTypeColumns + ` WHERE user_id=$1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	defer rows.Close()

	var out []EventType
	for rows.Next() {
		var et EventType
		if err := rows.Scan(&et.ID, &et.UserID, &et.Name, &et.Slug, &et.Description,
			&et.Duration, &et.Color, &et.Location, &et.MeetingLink, &et.IsActive,
			&et.CreatedAt, &et.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event type: %w", err)
		}
		out = append(out, et)
	}
	return out, rows.Err()
}

func (s *EventTypeStore) Update(ctx context.Context, et *EventType) error {
	if err := validateEventType(et); err != nil {
		return err
	}

	q := `UPDATE event_types
	      SET name=$1, slug=$2, description=$3, duration=$4, color=$5,
	          location=$6, meeting_link=$7, is_active=$8, updated_at=now()
	      WHERE id=$9 AND user_id=$10
	      RETURNING updated_at`
	err := s.pool.QueryRow(ctx, q, et.Name, et.Slug, et.Description, et.Duration,
		et.Color, et.Location, et.MeetingLink, et.IsActive, et.ID, et.UserID).
		Scan(&et.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("event type %s: %w", et.ID, ErrNotFound)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("slug %q already in use: %w", et.Slug, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update event type: %w", err)
	}
	return nil
}

func (s *EventTypeStore) Delete(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM event_types WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete event type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event type %s: %w", id, ErrNotFound)
	}
	return nil
}

// EventTypeByID satisfies availability.EventTypeSource.
func (s *EventTypeStore) EventTypeByID(ctx context.Context, id string) (*availability.EventType, error) {
	et, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if et == nil {
		return nil, nil
	}
	return &availability.EventType{
		ID:              et.ID,
		UserID:          et.UserID,
		DurationMinutes: et.Duration,
		Active:          et.IsActive,
	}, nil
}

const eventTypeColumns = `SELECT id, user_id, name, slug, description, duration, color, location, meeting_link, is_active, created_at, updated_at FROM event_types`

func (s *EventTypeStore) scanOne(row pgx.Row) (*EventType, error) {
	var et EventType
	err := row.Scan(&et.ID, &et.UserID, &et.Name, &et.Slug, &et.Description,
		&et.Duration, &et.Color, &et.Location, &et.MeetingLink, &et.IsActive,
		&et.CreatedAt, &et.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &et, nil
}

func validateEventType(et *EventType) error {
	if et.Name == "" {
		return invalidf("name", "required")
	}
	if et.Slug == "" {
		return invalidf("slug", "required")
	}
	if et.Duration <= 0 {
		return invalidf("duration", "must be a positive number of minutes")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
