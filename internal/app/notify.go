package app

import (
	"context"

	"go.uber.org/zap"
)

// Notifier dispatches attendee/host notifications after a booking change.
// Delivery itself lives outside this service; implementations here only hand
// the event off. All calls are best effort.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *Booking, et *EventType) error
	BookingCancelled(ctx context.Context, b *Booking) error
}

// LogNotifier records notification events in the service log. It stands in
// wherever no delivery backend is wired.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) BookingConfirmed(ctx context.Context, b *Booking, et *EventType) error {
	n.Logger.Info("notify: booking confirmed",
		zap.String("booking_id", b.ID),
		zap.String("attendee_email", b.AttendeeEmail),
		zap.String("event_type", et.Name),
		zap.Time("start_time", b.StartTime),
	)
	return nil
}

func (n LogNotifier) BookingCancelled(ctx context.Context, b *Booking) error {
	n.Logger.Info("notify: booking cancelled",
		zap.String("booking_id", b.ID),
		zap.String("attendee_email", b.AttendeeEmail),
	)
	return nil
}

// NopNotifier drops all notifications.
type NopNotifier struct{}

func (NopNotifier) BookingConfirmed(context.Context, *Booking, *EventType) error { return nil }
func (NopNotifier) BookingCancelled(context.Context, *Booking) error             { return nil }
