package availability

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BookingSource yields the confirmed booking intervals of a host that
// intersect a time window. It is the system of record for conflicts.
type BookingSource interface {
	ConfirmedIntervals(ctx context.Context, userID string, from, to time.Time) ([]Interval, error)
}

// ExternalCalendar yields busy intervals from a connected third-party
// calendar. Implementations return no intervals for hosts without a
// connection.
type ExternalCalendar interface {
	BusyIntervals(ctx context.Context, userID string, from, to time.Time) ([]Interval, error)
}

// DefaultFetchTimeout bounds the external calendar fetch so an unreachable
// provider cannot stall slot computation.
const DefaultFetchTimeout = 5 * time.Second

// BusyAggregator merges internal bookings with external calendar busy time
// for one host and day. The external source is best effort: any failure is
// logged and treated as "no busy intervals from that source".
type BusyAggregator struct {
	bookings     BookingSource
	external     ExternalCalendar
	logger       *zap.Logger
	fetchTimeout time.Duration
}

func NewBusyAggregator(bookings BookingSource, external ExternalCalendar, logger *zap.Logger) *BusyAggregator {
	return &BusyAggregator{
		bookings:     bookings,
		external:     external,
		logger:       logger,
		fetchTimeout: DefaultFetchTimeout,
	}
}

// CollectBusy returns every occupied interval intersecting [from, to).
// An error from the booking store aborts the call; an error from the
// external calendar does not.
func (a *BusyAggregator) CollectBusy(ctx context.Context, userID string, from, to time.Time) ([]Interval, error) {
	busy, err := a.bookings.ConfirmedIntervals(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	if a.external == nil {
		return busy, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	externalBusy, err := a.external.BusyIntervals(fetchCtx, userID, from, to)
	if err != nil {
		a.logger.Warn("external calendar fetch failed, computing slots from bookings only",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return busy, nil
	}

	return append(busy, externalBusy...), nil
}
