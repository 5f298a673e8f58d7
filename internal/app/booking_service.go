package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventTypeGetter is the slice of EventTypeStore the booking path needs.
type EventTypeGetter interface {
	GetByID(ctx context.Context, id string) (*EventType, error)
}

// CalendarSync mirrors a booking into the host's external calendar.
type CalendarSync interface {
	CreateEvent(ctx context.Context, b *Booking, et *EventType) (string, error)
}

// BookingRequest is a public booking submission.
type BookingRequest struct {
	EventTypeID   string
	AttendeeName  string
	AttendeeEmail string
	AttendeeNotes string
	StartTime     time.Time
	Timezone      string
}

// BookingService runs the booking write path: validate, re-check the slot at
// commit time through the store's transactional contract, then fire
// best-effort follow-ups that never roll the booking back.
type BookingService struct {
	store      BookingStore
	eventTypes EventTypeGetter
	calendar   CalendarSync
	notifier   Notifier
	now        func() time.Time
	logger     *zap.Logger
}

func NewBookingService(
	store BookingStore,
	eventTypes EventTypeGetter,
	calendar CalendarSync,
	notifier Notifier,
	now func() time.Time,
	logger *zap.Logger,
) *BookingService {
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BookingService{
		store:      store,
		eventTypes: eventTypes,
		calendar:   calendar,
		notifier:   notifier,
		now:        now,
		logger:     logger,
	}
}

// Book creates a confirmed booking for the requested slot, or fails with
// ErrConflict when the slot was taken between display and submission.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (*Booking, error) {
	if err := validateBookingRequest(&req); err != nil {
		return nil, err
	}

	et, err := s.eventTypes.GetByID(ctx, req.EventTypeID)
	if err != nil {
		return nil, err
	}
	if et == nil || !et.IsActive {
		return nil, fmt.Errorf("event type %s: %w", req.EventTypeID, ErrNotFound)
	}

	if !req.StartTime.After(s.now()) {
		return nil, invalidf("start_time", "must be in the future")
	}

	b := &Booking{
		ID:            uuid.NewString(),
		EventTypeID:   et.ID,
		UserID:        et.UserID,
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.AttendeeEmail,
		AttendeeNotes: req.AttendeeNotes,
		StartTime:     req.StartTime.UTC(),
		EndTime:       req.StartTime.UTC().Add(time.Duration(et.Duration) * time.Minute),
		Timezone:      req.Timezone,
		Status:        BookingStatusConfirmed,
	}

	if err := s.store.CreateIfFree(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("event_type_id", et.ID),
		zap.Time("start_time", b.StartTime),
	)

	s.afterBooking(ctx, b, et)
	return b, nil
}

// Cancel marks the booking cancelled with an optional reason. A second
// cancel of the same booking fails with ErrConflict.
func (s *BookingService) Cancel(ctx context.Context, id, reason string) (*Booking, error) {
	b, err := s.store.Cancel(ctx, id, reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", b.ID),
		zap.String("reason", reason),
	)

	if err := s.notifier.BookingCancelled(ctx, b); err != nil {
		s.logger.Warn("cancellation notification failed",
			zap.String("booking_id", b.ID), zap.Error(err))
	}
	return b, nil
}

// Reschedule moves a confirmed booking to a new start. Cancel-old and
// create-new run in one store transaction.
func (s *BookingService) Reschedule(ctx context.Context, id string, newStart time.Time) (*Booking, error) {
	if !newStart.After(s.now()) {
		return nil, invalidf("start_time", "must be in the future")
	}

	old, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	et, err := s.eventTypes.GetByID(ctx, old.EventTypeID)
	if err != nil {
		return nil, err
	}
	if et == nil {
		return nil, fmt.Errorf("event type %s: %w", old.EventTypeID, ErrNotFound)
	}

	newEnd := newStart.UTC().Add(time.Duration(et.Duration) * time.Minute)
	created, err := s.store.Reschedule(ctx, id, newStart.UTC(), newEnd)
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking rescheduled",
		zap.String("old_booking_id", id),
		zap.String("new_booking_id", created.ID),
		zap.Time("start_time", created.StartTime),
	)

	s.afterBooking(ctx, created, et)
	return created, nil
}

// afterBooking runs the post-commit side effects. Each is independent and
// failures are logged, never propagated; the booking already committed.
func (s *BookingService) afterBooking(ctx context.Context, b *Booking, et *EventType) {
	if s.calendar != nil {
		eventID, err := s.calendar.CreateEvent(ctx, b, et)
		if err != nil {
			s.logger.Warn("calendar event creation failed",
				zap.String("booking_id", b.ID), zap.Error(err))
		} else if eventID != "" {
			if err := s.store.SetGoogleEventID(ctx, b.ID, eventID); err != nil {
				s.logger.Warn("recording calendar event id failed",
					zap.String("booking_id", b.ID), zap.Error(err))
			} else {
				b.GoogleEventID = eventID
			}
		}
	}

	if err := s.notifier.BookingConfirmed(ctx, b, et); err != nil {
		s.logger.Warn("confirmation notification failed",
			zap.String("booking_id", b.ID), zap.Error(err))
	}
}

func validateBookingRequest(req *BookingRequest) error {
	if req.EventTypeID == "" {
		return invalidf("event_type_id", "required")
	}
	if strings.TrimSpace(req.AttendeeName) == "" {
		return invalidf("attendee_name", "required")
	}
	if !strings.Contains(req.AttendeeEmail, "@") {
		return invalidf("attendee_email", "must be a valid email address")
	}
	if req.StartTime.IsZero() {
		return invalidf("start_time", "required (RFC3339)")
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return invalidf("timezone", "unknown IANA zone %q", req.Timezone)
	}
	return nil
}
