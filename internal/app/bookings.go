package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"slotwise/internal/availability"
)

// BookingStore is the system of record for bookings. CreateIfFree and
// Reschedule carry the mutual-exclusion contract: the overlap check and the
// write happen inside one atomicity boundary, so of N concurrent attempts at
// the same slot at most one succeeds.
type BookingStore interface {
	CreateIfFree(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	Cancel(ctx context.Context, id, reason string) (*Booking, error)
	Reschedule(ctx context.Context, id string, newStart, newEnd time.Time) (*Booking, error)
	List(ctx context.Context, userID string, status BookingStatus, after *time.Time) ([]Booking, error)
	ConfirmedIntervals(ctx context.Context, userID string, from, to time.Time) ([]availability.Interval, error)
	SetGoogleEventID(ctx context.Context, id, eventID string) error
}

// PGBookingStore implements BookingStore on postgres. A SELECT ... FOR UPDATE
// pre-check inside the insert transaction handles the common case; the
// bookings_no_overlap exclusion constraint is the backstop for two
// transactions that both saw the slot free, since FOR UPDATE cannot lock rows
// that do not exist yet. Exactly one of them commits.
type PGBookingStore struct {
	pool *pgxpool.Pool
}

func NewPGBookingStore(pool *pgxpool.Pool) *PGBookingStore {
	return &PGBookingStore{pool: pool}
}

const bookingColumns = `id, event_type_id, user_id, attendee_name, attendee_email, attendee_notes,
	start_time, end_time, timezone, status, cancellation_reason, google_event_id, created_at, updated_at`

func (s *PGBookingStore) CreateIfFree(ctx context.Context, b *Booking) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin booking: %w", err)
	}
	defer tx.Rollback(ctx)

	taken, err := hasOverlap(ctx, tx, b.UserID, b.StartTime, b.EndTime, "")
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("slot no longer available: %w", ErrConflict)
	}

	q := `INSERT INTO bookings
	      (id, event_type_id, user_id, attendee_name, attendee_email, attendee_notes,
	       start_time, end_time, timezone, status)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'confirmed')
	      RETURNING created_at, updated_at`
	if err := tx.QueryRow(ctx, q, b.ID, b.EventTypeID, b.UserID, b.AttendeeName,
		b.AttendeeEmail, b.AttendeeNotes, b.StartTime, b.EndTime, b.Timezone).
		Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		if isOverlapViolation(err) {
			return fmt.Errorf("slot no longer available: %w", ErrConflict)
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	b.Status = BookingStatusConfirmed

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	return nil
}

// hasOverlap locks and reports any confirmed booking of the host exclusively
// overlapping [start, end). excludeID skips one booking, for reschedules.
func hasOverlap(ctx context.Context, tx pgx.Tx, userID string, start, end time.Time, excludeID string) (bool, error) {
	q := `SELECT id FROM bookings
	      WHERE user_id=$1 AND status='confirmed'
	        AND start_time < $3 AND end_time > $2
	        AND ($4 = '' OR id::text <> $4)
	      LIMIT 1 FOR UPDATE`
	var id string
	err := tx.QueryRow(ctx, q, userID, start, end, excludeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return true, nil
}

func (s *PGBookingStore) GetByID(ctx context.Context, id string) (*Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id=$1`
	b, err := scanBooking(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// Cancel transitions confirmed -> cancelled. Cancelling an already-cancelled
// booking is a conflict, not a no-op; the row is kept for history.
func (s *PGBookingStore) Cancel(ctx context.Context, id, reason string) (*Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback(ctx)

	b, err := cancelInTx(ctx, tx, id, reason)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}
	return b, nil
}

func cancelInTx(ctx context.Context, tx pgx.Tx, id, reason string) (*Booking, error) {
	var status BookingStatus
	err := tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id=$1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock booking: %w", err)
	}
	if status == BookingStatusCancelled {
		return nil, fmt.Errorf("booking already cancelled: %w", ErrConflict)
	}

	q := `UPDATE bookings
	      SET status='cancelled', cancellation_reason=$2, updated_at=now()
	      WHERE id=$1
	      RETURNING ` + bookingColumns
	b, err := scanBooking(tx.QueryRow(ctx, q, id, reason))
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	return b, nil
}

// Reschedule cancels the old booking and inserts its replacement in one
// transaction, so a crash cannot leave the attendee with nothing.
func (s *PGBookingStore) Reschedule(ctx context.Context, id string, newStart, newEnd time.Time) (*Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule: %w", err)
	}
	defer tx.Rollback(ctx)

	old, err := cancelInTx(ctx, tx, id, "rescheduled")
	if err != nil {
		return nil, err
	}

	taken, err := hasOverlap(ctx, tx, old.UserID, newStart, newEnd, old.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("slot no longer available: %w", ErrConflict)
	}

	q := `INSERT INTO bookings
	      (id, event_type_id, user_id, attendee_name, attendee_email, attendee_notes,
	       start_time, end_time, timezone, status)
	      VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, 'confirmed')
	      RETURNING ` + bookingColumns
	created, err := scanBooking(tx.QueryRow(ctx, q, old.EventTypeID, old.UserID,
		old.AttendeeName, old.AttendeeEmail, old.AttendeeNotes, newStart, newEnd, old.Timezone))
	if err != nil {
		if isOverlapViolation(err) {
			return nil, fmt.Errorf("slot no longer available: %w", ErrConflict)
		}
		return nil, fmt.Errorf("insert rescheduled booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reschedule: %w", err)
	}
	return created, nil
}

func (s *PGBookingStore) List(ctx context.Context, userID string, status BookingStatus, after *time.Time) ([]Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id=$1 AND status=$2`
	args := []any{userID, status}
	if after != nil {
		args = append(args, *after)
		q += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	q += " ORDER BY start_time"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ConfirmedIntervals satisfies availability.BookingSource.
func (s *PGBookingStore) ConfirmedIntervals(ctx context.Context, userID string, from, to time.Time) ([]availability.Interval, error) {
	q := `SELECT start_time, end_time FROM bookings
	      WHERE user_id=$1 AND status='confirmed'
	        AND start_time < $3 AND end_time > $2`
	rows, err := s.pool.Query(ctx, q, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("confirmed intervals: %w", err)
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("scan interval: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (s *PGBookingStore) SetGoogleEventID(ctx context.Context, id, eventID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE bookings SET google_event_id=$2, updated_at=now() WHERE id=$1`, id, eventID)
	if err != nil {
		return fmt.Errorf("set google event id: %w", err)
	}
	return nil
}

// isOverlapViolation reports a 23P01 exclusion_violation, raised by the
// bookings_no_overlap constraint when a racing insert slipped past the
// FOR UPDATE pre-check.
func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var notes, reason, googleID *string
	err := row.Scan(&b.ID, &b.EventTypeID, &b.UserID, &b.AttendeeName, &b.AttendeeEmail,
		&notes, &b.StartTime, &b.EndTime, &b.Timezone, &b.Status, &reason, &googleID,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if notes != nil {
		b.AttendeeNotes = *notes
	}
	if reason != nil {
		b.CancellationReason = *reason
	}
	if googleID != nil {
		b.GoogleEventID = *googleID
	}
	return &b, nil
}
